package persist

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/cheese-rooms/internal/domain"
)

// MemoryStore keeps snapshots and results in process. It is the default
// store when neither Redis nor SQLite is configured, and the test double.
type MemoryStore struct {
	mu      sync.Mutex
	snaps   map[string][]byte
	results []domain.GameRecord
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{snaps: map[string][]byte{}} }

func (m *MemoryStore) Load(_ context.Context, id string) (*Snapshot, error) {
	m.mu.Lock()
	raw, ok := m.snaps[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decode(raw)
}

func (m *MemoryStore) Save(_ context.Context, snap *Snapshot) error {
	raw, err := encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.snaps[snap.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.snaps, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListByIdentity(_ context.Context, identity string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, raw := range m.snaps {
		s, err := decode(raw)
		if err != nil {
			continue
		}
		if _, ok := s.Players[identity]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) SaveResult(_ context.Context, rec *domain.GameRecord) error {
	if rec == nil {
		return nil
	}
	m.mu.Lock()
	m.results = append(m.results, *rec)
	m.mu.Unlock()
	return nil
}

// Results returns a copy of every recorded result.
func (m *MemoryStore) Results() []domain.GameRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GameRecord, len(m.results))
	copy(out, m.results)
	return out
}

// RecentByIdentity returns up to limit results identity played in, newest first.
func (m *MemoryStore) RecentByIdentity(_ context.Context, identity string, limit int) ([]domain.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.Lock()
	var out []domain.GameRecord
	for _, rec := range m.results {
		for _, p := range rec.Players {
			if p.Identity == identity {
				out = append(out, rec)
				break
			}
		}
	}
	m.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

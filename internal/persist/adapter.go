package persist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/cheese-rooms/internal/domain"
	"github.com/park285/cheese-rooms/internal/metrics"
	"github.com/park285/cheese-rooms/internal/obslog"
	"github.com/park285/cheese-rooms/internal/rules/chess"
)

// ResultSink receives one record per finished game.
type ResultSink interface {
	SaveResult(ctx context.Context, rec *domain.GameRecord) error
}

// Adapter joins a snapshot store and an optional result sink into the
// load/save/persist-result boundary rooms talk to.
type Adapter struct {
	snaps   SnapshotStore
	results ResultSink
	metrics *metrics.Metrics
}

func NewAdapter(snaps SnapshotStore, results ResultSink, m *metrics.Metrics) *Adapter {
	return &Adapter{snaps: snaps, results: results, metrics: m}
}

// LoadGameState returns nil, nil when nothing is stored under id.
func (a *Adapter) LoadGameState(ctx context.Context, id string) (*Snapshot, error) {
	snap, err := a.snaps.Load(ctx, id)
	switch {
	case err != nil:
		a.metrics.Snapshot("error")
		return nil, err
	case snap == nil:
		a.metrics.Snapshot("load_miss")
	default:
		a.metrics.Snapshot("load_hit")
	}
	return snap, nil
}

func (a *Adapter) SaveGameState(ctx context.Context, snap *Snapshot) error {
	if err := a.snaps.Save(ctx, snap); err != nil {
		a.metrics.Snapshot("error")
		return err
	}
	a.metrics.Snapshot("save")
	return nil
}

func (a *Adapter) DeleteGameState(ctx context.Context, id string) error {
	if err := a.snaps.Delete(ctx, id); err != nil {
		a.metrics.Snapshot("error")
		return err
	}
	a.metrics.Snapshot("delete")
	return nil
}

func (a *Adapter) SuspendedFor(ctx context.Context, identity string) ([]string, error) {
	return a.snaps.ListByIdentity(ctx, identity)
}

func (a *Adapter) PersistGameResult(ctx context.Context, res *Result) error {
	if res == nil {
		return nil
	}
	rec := BuildRecord(res)
	if a.results == nil {
		obslog.L().Info("game_result",
			zap.String("room", rec.RoomID),
			zap.String("game", rec.GameType),
			zap.String("winner", rec.WinnerIdentity),
			zap.String("reason", rec.Reason),
			zap.Int("moves", len(rec.Moves)),
		)
		return nil
	}
	if err := a.results.SaveResult(ctx, &rec); err != nil {
		return fmt.Errorf("save result %s: %w", rec.RoomID, err)
	}
	return nil
}

// BuildRecord flattens a result; chess games also get PGN and the final FEN.
func BuildRecord(res *Result) domain.GameRecord {
	rec := domain.GameRecord{
		RoomID:         res.RoomID,
		GameType:       res.GameType,
		WinnerIdentity: res.WinnerIdentity,
		Reason:         res.Reason,
		StartedAt:      res.StartedAt,
		EndedAt:        res.EndedAt,
		Duration:       res.Duration,
	}
	winnerIndex := -1
	for _, p := range res.Players {
		rec.Players = append(rec.Players, domain.PlayerRecord{
			Identity:    p.Identity,
			DisplayName: p.DisplayName,
			Index:       p.Index,
			Symbol:      p.Symbol,
			Score:       p.Score,
			Captured:    p.Captured,
		})
		if p.Identity == res.WinnerIdentity && res.WinnerIdentity != "" {
			winnerIndex = p.Index
		}
	}
	for _, e := range res.Moves {
		rec.Moves = append(rec.Moves, e.Notation)
	}
	if res.GameType == chess.Key {
		rec.PGN = buildPGN(&rec, mapResultToPGN(winnerIndex, true))
		fen, err := replayChess(res.Moves)
		if err != nil {
			obslog.L().Warn("chess_replay_failed", zap.String("room", res.RoomID), zap.Error(err))
		} else {
			rec.FinalFEN = fen
		}
	}
	return rec
}

package persist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultSnapshotTTL = 7 * 24 * time.Hour

// RedisStore keeps snapshots as JSON strings with a TTL plus a per-identity
// index set, so a player can find their suspended games.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// DialRedis parses a redis:// URL and pings the server.
func DialRedis(ctx context.Context, raw string) (*redis.Client, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis snapshot store")
	}
	opts, err := ParseRedisURL(raw)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}

func (s *RedisStore) keySnap(id string) string      { return "room:snap:" + strings.TrimSpace(id) }
func (s *RedisStore) keyUserIdx(user string) string { return "room:index:user:" + strings.TrimSpace(user) }

func (s *RedisStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	raw, err := s.rdb.Get(ctx, s.keySnap(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return decode(raw)
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := encode(snap)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keySnap(snap.ID), raw, s.ttl)
	for identity := range snap.Players {
		pipe.SAdd(ctx, s.keyUserIdx(identity), snap.ID)
		pipe.Expire(ctx, s.keyUserIdx(identity), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	snap, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keySnap(id))
	if snap != nil {
		for identity := range snap.Players {
			pipe.SRem(ctx, s.keyUserIdx(identity), id)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

// ListByIdentity drops index entries whose snapshot has already expired.
func (s *RedisStore) ListByIdentity(ctx context.Context, identity string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyUserIdx(identity)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, s.keySnap(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.SRem(ctx, s.keyUserIdx(identity), id).Err()
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

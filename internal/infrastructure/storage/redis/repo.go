package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"watchbar/internal/application/port"
)

// Repo 只读旁路镜像：最新价写进 hash，快照进 stream
// 选择集的权威存储在 sqlite，这里不参与恢复
type Repo struct {
	rdb        *redis.Client
	prefix     string
	ttl        time.Duration
	keyLatest  string // prefix + ":latest"
	snapStream string // prefix + ":snapshots"
}

type LatestPrice struct {
	ID        string  `json:"id"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Ts        int64   `json:"ts"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Repo {
	return &Repo{
		rdb:        rdb,
		prefix:     prefix,
		ttl:        ttl,
		keyLatest:  prefix + ":latest",
		snapStream: prefix + ":snapshots",
	}
}

func (r *Repo) SaveSelection(ctx context.Context, ids []string) error {
	b, _ := json.Marshal(ids)
	return r.rdb.Set(ctx, r.prefix+":selection", string(b), 0).Err()
}

// LoadSelection 镜像库不做恢复源；composite 会落到 sqlite
func (r *Repo) LoadSelection(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, id string, price, changePct float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	b, _ := json.Marshal(LatestPrice{ID: id, Price: price, ChangePct: changePct, Ts: ts})

	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, id, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.snapStream,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]any{
			"ts_ms":   ts,
			"payload": payload,
		},
	}).Result()
	return err
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.Repository = (*Repo)(nil)

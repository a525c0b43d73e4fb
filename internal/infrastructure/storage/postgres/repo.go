package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"watchbar/internal/application/port"
)

// Repo 可选的 postgres 后端：最新价 + 快照历史
// 选择集的权威存储在 sqlite，这里不参与恢复
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_prices (
  instrument_id TEXT PRIMARY KEY,
  price DOUBLE PRECISION NOT NULL,
  change_pct DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
`)
	return err
}

func (r *Repo) SaveSelection(ctx context.Context, ids []string) error {
	return nil
}

func (r *Repo) LoadSelection(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, id string, price, changePct float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(instrument_id, price, change_pct, ts_ms)
		VALUES($1, $2, $3, $4)
		ON CONFLICT(instrument_id) DO UPDATE SET
		price=excluded.price, change_pct=excluded.change_pct, ts_ms=excluded.ts_ms
	`, id, price, changePct, ts)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload) VALUES($1, $2)`, ts, payload)
	return err
}

var _ port.Repository = (*Repo)(nil)

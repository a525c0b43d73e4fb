package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"watchbar/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
CREATE TABLE IF NOT EXISTS selection (
  position INTEGER PRIMARY KEY,
  instrument_id TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  instrument_id TEXT NOT NULL,
  price REAL NOT NULL,
  change_pct REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  UNIQUE(instrument_id)
);
CREATE INDEX IF NOT EXISTS idx_prices_ts ON prices(ts_ms);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
`)
	return err
}

// SaveSelection 整表重写：选择集很小（≤3），没必要做增量
func (r *Repo) SaveSelection(ctx context.Context, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM selection`); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO selection(position, instrument_id, updated_at) VALUES(?, ?, strftime('%s','now'))`,
			i, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) LoadSelection(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT instrument_id FROM selection ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, id string, price, changePct float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prices(instrument_id, price, change_pct, ts_ms)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(instrument_id) DO UPDATE SET
		price=excluded.price, change_pct=excluded.change_pct, ts_ms=excluded.ts_ms
	`, id, price, changePct, ts)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload) VALUES(?, ?)`, ts, payload)
	return err
}

var _ port.Repository = (*Repo)(nil)

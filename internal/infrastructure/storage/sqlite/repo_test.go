package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSelectionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ids, err := repo.LoadSelection(ctx)
	if err != nil {
		t.Fatalf("LoadSelection on empty db: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("fresh db must have empty selection, got %v", ids)
	}

	want := []string{"CB:BTC-USD", "HLP:ETH", "TV:NASDAQ:AAPL"}
	if err := repo.SaveSelection(ctx, want); err != nil {
		t.Fatalf("SaveSelection: %v", err)
	}

	ids, err = repo.LoadSelection(ctx)
	if err != nil {
		t.Fatalf("LoadSelection: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order not preserved: got %v want %v", ids, want)
		}
	}

	// 整表重写：新集合完全取代旧集合
	if err := repo.SaveSelection(ctx, []string{"HLP:ETH"}); err != nil {
		t.Fatalf("SaveSelection rewrite: %v", err)
	}
	ids, _ = repo.LoadSelection(ctx)
	if len(ids) != 1 || ids[0] != "HLP:ETH" {
		t.Fatalf("rewrite failed: %v", ids)
	}
}

func TestUpsertLatestPrice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertLatestPrice(ctx, "CB:BTC-USD", 97000, 1.5, 1234567890); err != nil {
		t.Fatalf("UpsertLatestPrice: %v", err)
	}
	// 同一 id 再写是覆盖不是追加
	if err := repo.UpsertLatestPrice(ctx, "CB:BTC-USD", 97100, 1.6, 1234567891); err != nil {
		t.Fatalf("UpsertLatestPrice update: %v", err)
	}

	var price, chg float64
	var ts int64
	err := repo.db.QueryRow(`SELECT price, change_pct, ts_ms FROM prices WHERE instrument_id = ?`, "CB:BTC-USD").
		Scan(&price, &chg, &ts)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if price != 97100 || chg != 1.6 || ts != 1234567891 {
		t.Fatalf("upsert did not overwrite: %v %v %v", price, chg, ts)
	}

	var n int
	repo.db.QueryRow(`SELECT COUNT(*) FROM prices`).Scan(&n)
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestInsertSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.InsertSnapshot(ctx, 1234567890, "[WATCH] BTC/USD 97000 +1.50%"); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}
	if err := repo.InsertSnapshot(ctx, 1234567891, "[WATCH] BTC/USD 97100 +1.60%"); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}

	var n int
	repo.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n)
	if n != 2 {
		t.Fatalf("expected 2 snapshots, got %d", n)
	}
}

package port

import "context"

type Repository interface {
	// Selection persistence (flat ordered list of instrument ids)
	SaveSelection(ctx context.Context, ids []string) error
	// LoadSelection returns nil (not an error) when nothing is persisted
	LoadSelection(ctx context.Context) ([]string, error)

	// Latest price per instrument id
	UpsertLatestPrice(ctx context.Context, id string, price, changePct float64, ts int64) error

	// Rendered status lines, one row per periodic snapshot
	InsertSnapshot(ctx context.Context, ts int64, payload string) error

	// Connection management
	Close() error
}

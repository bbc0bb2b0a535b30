package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, b *StockBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*StockBatch, error)
	Update(ctx context.Context, b *StockBatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByDrug returns batches for a drug at a branch, oldest expiry
	// first.
	ListByDrug(ctx context.Context, drugID, branchID uuid.UUID) ([]*StockBatch, error)
	// ListExpiring returns batches expiring on or before cutoff that
	// still hold stock.
	ListExpiring(ctx context.Context, branchID uuid.UUID, cutoff time.Time) ([]*StockBatch, error)
	Level(ctx context.Context, drugID, branchID uuid.UUID) (*StockLevel, error)
}

package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	batches Repository
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(batches Repository, logger zerolog.Logger) *Service {
	return &Service{batches: batches, logger: logger, now: time.Now}
}

func (s *Service) ReceiveBatch(ctx context.Context, b *StockBatch) error {
	if b.DrugID == uuid.Nil {
		return fmt.Errorf("drug_id is required")
	}
	if b.BranchID == uuid.Nil {
		return fmt.Errorf("branch_id is required")
	}
	if b.BatchNo == "" {
		return fmt.Errorf("batch_no is required")
	}
	if b.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if b.ExpiryDate.IsZero() {
		return fmt.Errorf("expiry_date is required")
	}
	if b.IsExpired(s.now()) {
		return fmt.Errorf("cannot receive expired batch %s", b.BatchNo)
	}
	if b.ReceivedAt.IsZero() {
		b.ReceivedAt = s.now()
	}
	if err := s.batches.Create(ctx, b); err != nil {
		return err
	}
	s.logger.Info().
		Str("batch_no", b.BatchNo).
		Str("drug_id", b.DrugID.String()).
		Float64("quantity", b.Quantity).
		Msg("stock batch received")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*StockBatch, error) {
	return s.batches.GetByID(ctx, id)
}

// Adjust sets a batch quantity directly, for stocktake corrections.
func (s *Service) Adjust(ctx context.Context, id uuid.UUID, quantity float64) (*StockBatch, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity cannot be negative")
	}
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Quantity = quantity
	if err := s.batches.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListByDrug(ctx context.Context, drugID, branchID uuid.UUID) ([]*StockBatch, error) {
	return s.batches.ListByDrug(ctx, drugID, branchID)
}

// ExpiringSoon lists batches at the branch that expire within the next
// withinDays days and still hold stock.
func (s *Service) ExpiringSoon(ctx context.Context, branchID uuid.UUID, withinDays int) ([]*StockBatch, error) {
	if withinDays <= 0 {
		withinDays = 90
	}
	cutoff := s.now().AddDate(0, 0, withinDays)
	return s.batches.ListExpiring(ctx, branchID, cutoff)
}

func (s *Service) Level(ctx context.Context, drugID, branchID uuid.UUID) (*StockLevel, error) {
	return s.batches.Level(ctx, drugID, branchID)
}

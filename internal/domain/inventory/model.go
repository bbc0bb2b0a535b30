package inventory

import (
	"time"

	"github.com/google/uuid"
)

// StockBatch tracks a received lot of a drug at a branch. Quantity is
// decremented as prescription lines are dispensed against the batch.
type StockBatch struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DrugID     uuid.UUID `db:"drug_id" json:"drug_id"`
	BranchID   uuid.UUID `db:"branch_id" json:"branch_id"`
	BatchNo    string    `db:"batch_no" json:"batch_no"`
	Quantity   float64   `db:"quantity" json:"quantity"`
	UnitCost   float64   `db:"unit_cost" json:"unit_cost"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`
	ExpiryDate time.Time `db:"expiry_date" json:"expiry_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// IsExpired reports whether the batch has passed its expiry date.
func (b *StockBatch) IsExpired(now time.Time) bool {
	return !now.Before(b.ExpiryDate)
}

// DaysToExpiry returns whole days until expiry; negative when already
// expired.
func (b *StockBatch) DaysToExpiry(now time.Time) int {
	return int(b.ExpiryDate.Sub(now).Hours() / 24)
}

// StockLevel aggregates on-hand quantity for a drug at a branch.
type StockLevel struct {
	DrugID     uuid.UUID  `db:"drug_id" json:"drug_id"`
	BranchID   uuid.UUID  `db:"branch_id" json:"branch_id"`
	OnHand     float64    `db:"on_hand" json:"on_hand"`
	BatchCnt   int        `db:"batch_cnt" json:"batch_count"`
	NextExpiry *time.Time `db:"next_expiry" json:"next_expiry,omitempty"`
}

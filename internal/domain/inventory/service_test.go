package inventory

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockRepo struct {
	batches map[uuid.UUID]*StockBatch
}

func newMockRepo() *mockRepo {
	return &mockRepo{batches: make(map[uuid.UUID]*StockBatch)}
}

func (m *mockRepo) Create(_ context.Context, b *StockBatch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	m.batches[b.ID] = b
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*StockBatch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return b, nil
}

func (m *mockRepo) Update(_ context.Context, b *StockBatch) error {
	m.batches[b.ID] = b
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.batches, id)
	return nil
}

func (m *mockRepo) ListByDrug(_ context.Context, drugID, branchID uuid.UUID) ([]*StockBatch, error) {
	var result []*StockBatch
	for _, b := range m.batches {
		if b.DrugID == drugID && b.BranchID == branchID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiryDate.Before(result[j].ExpiryDate)
	})
	return result, nil
}

func (m *mockRepo) ListExpiring(_ context.Context, branchID uuid.UUID, cutoff time.Time) ([]*StockBatch, error) {
	var result []*StockBatch
	for _, b := range m.batches {
		if b.BranchID == branchID && !b.ExpiryDate.After(cutoff) && b.Quantity > 0 {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockRepo) Level(_ context.Context, drugID, branchID uuid.UUID) (*StockLevel, error) {
	level := &StockLevel{DrugID: drugID, BranchID: branchID}
	for _, b := range m.batches {
		if b.DrugID != drugID || b.BranchID != branchID || b.Quantity <= 0 {
			continue
		}
		level.OnHand += b.Quantity
		level.BatchCnt++
		if level.NextExpiry == nil || b.ExpiryDate.Before(*level.NextExpiry) {
			exp := b.ExpiryDate
			level.NextExpiry = &exp
		}
	}
	return level, nil
}

// -- Helpers --

func newTestService(repo *mockRepo, now time.Time) *Service {
	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func testBatch(days int, qty float64) *StockBatch {
	return &StockBatch{
		DrugID:     uuid.New(),
		BranchID:   uuid.New(),
		BatchNo:    "B-001",
		Quantity:   qty,
		UnitCost:   2.50,
		ExpiryDate: time.Now().AddDate(0, 0, days),
	}
}

// -- Tests --

func TestReceiveBatch(t *testing.T) {
	repo := newMockRepo()
	now := time.Now()
	svc := newTestService(repo, now)

	b := testBatch(180, 100)
	if err := svc.ReceiveBatch(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ReceivedAt.IsZero() {
		t.Error("expected received_at defaulted")
	}
	if len(repo.batches) != 1 {
		t.Error("expected batch stored")
	}
}

func TestReceiveBatch_RejectsExpired(t *testing.T) {
	svc := newTestService(newMockRepo(), time.Now())

	err := svc.ReceiveBatch(context.Background(), testBatch(-1, 100))
	if err == nil {
		t.Error("expected error for expired batch")
	}
}

func TestReceiveBatch_Validation(t *testing.T) {
	svc := newTestService(newMockRepo(), time.Now())

	b := testBatch(180, 100)
	b.Quantity = 0
	if err := svc.ReceiveBatch(context.Background(), b); err == nil {
		t.Error("expected error for zero quantity")
	}

	b = testBatch(180, 100)
	b.BatchNo = ""
	if err := svc.ReceiveBatch(context.Background(), b); err == nil {
		t.Error("expected error for missing batch number")
	}
}

func TestAdjust(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, time.Now())

	b := testBatch(180, 100)
	if err := svc.ReceiveBatch(context.Background(), b); err != nil {
		t.Fatalf("receive: %v", err)
	}

	got, err := svc.Adjust(context.Background(), b.ID, 42)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got.Quantity != 42 {
		t.Errorf("expected quantity 42, got %f", got.Quantity)
	}

	if _, err := svc.Adjust(context.Background(), b.ID, -1); err == nil {
		t.Error("expected error for negative quantity")
	}
}

func TestExpiringSoon(t *testing.T) {
	repo := newMockRepo()
	now := time.Now()
	svc := newTestService(repo, now)

	branch := uuid.New()
	near := testBatch(30, 50)
	near.BranchID = branch
	far := testBatch(365, 50)
	far.BranchID = branch
	empty := testBatch(30, 10)
	empty.BranchID = branch
	for _, b := range []*StockBatch{near, far, empty} {
		if err := svc.ReceiveBatch(context.Background(), b); err != nil {
			t.Fatalf("receive: %v", err)
		}
	}
	empty.Quantity = 0

	got, err := svc.ExpiringSoon(context.Background(), branch, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != near.ID {
		t.Errorf("expected only the near batch, got %d batches", len(got))
	}
}

func TestStockLevel(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, time.Now())

	drug, branch := uuid.New(), uuid.New()
	first := testBatch(60, 30)
	first.DrugID, first.BranchID = drug, branch
	second := testBatch(120, 20)
	second.DrugID, second.BranchID = drug, branch
	for _, b := range []*StockBatch{first, second} {
		if err := svc.ReceiveBatch(context.Background(), b); err != nil {
			t.Fatalf("receive: %v", err)
		}
	}

	level, err := svc.Level(context.Background(), drug, branch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level.OnHand != 50 {
		t.Errorf("expected 50 on hand, got %f", level.OnHand)
	}
	if level.BatchCnt != 2 {
		t.Errorf("expected 2 batches, got %d", level.BatchCnt)
	}
	if level.NextExpiry == nil || !level.NextExpiry.Equal(first.ExpiryDate) {
		t.Error("expected next expiry from the earliest batch")
	}
}

func TestBatchExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	b := &StockBatch{ExpiryDate: now.AddDate(0, 0, 10)}
	if b.IsExpired(now) {
		t.Error("future expiry should not be expired")
	}
	if got := b.DaysToExpiry(now); got != 10 {
		t.Errorf("expected 10 days to expiry, got %d", got)
	}

	b.ExpiryDate = now
	if !b.IsExpired(now) {
		t.Error("batch expiring now should be expired")
	}

	b.ExpiryDate = now.AddDate(0, 0, -3)
	if got := b.DaysToExpiry(now); got != -3 {
		t.Errorf("expected -3 days to expiry, got %d", got)
	}
}

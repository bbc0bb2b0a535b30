package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockDrugRepo struct {
	drugs map[uuid.UUID]*Drug
}

func newMockDrugRepo() *mockDrugRepo {
	return &mockDrugRepo{drugs: make(map[uuid.UUID]*Drug)}
}

func (m *mockDrugRepo) Create(_ context.Context, d *Drug) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.drugs[d.ID] = d
	return nil
}

func (m *mockDrugRepo) GetByID(_ context.Context, id uuid.UUID) (*Drug, error) {
	d, ok := m.drugs[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockDrugRepo) Update(_ context.Context, d *Drug) error {
	m.drugs[d.ID] = d
	return nil
}

func (m *mockDrugRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.drugs, id)
	return nil
}

func (m *mockDrugRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Drug, int, error) {
	var result []*Drug
	for _, d := range m.drugs {
		result = append(result, d)
	}
	return result, len(result), nil
}

type mockCategoryRepo struct {
	categories map[uuid.UUID]*Category
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{categories: make(map[uuid.UUID]*Category)}
}

func (m *mockCategoryRepo) Create(_ context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return c, nil
}

func (m *mockCategoryRepo) List(_ context.Context) ([]*Category, error) {
	var result []*Category
	for _, c := range m.categories {
		result = append(result, c)
	}
	return result, nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.categories, id)
	return nil
}

type mockInteractionRepo struct {
	interactions map[uuid.UUID]*Interaction
}

func newMockInteractionRepo() *mockInteractionRepo {
	return &mockInteractionRepo{interactions: make(map[uuid.UUID]*Interaction)}
}

func (m *mockInteractionRepo) Create(_ context.Context, i *Interaction) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	m.interactions[i.ID] = i
	return nil
}

func (m *mockInteractionRepo) ListForDrug(_ context.Context, drugID uuid.UUID) ([]*Interaction, error) {
	var result []*Interaction
	for _, i := range m.interactions {
		if i.Drug1ID == drugID || i.Drug2ID == drugID {
			result = append(result, i)
		}
	}
	return result, nil
}

func (m *mockInteractionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.interactions, id)
	return nil
}

func newTestService() *Service {
	return NewService(newMockDrugRepo(), newMockCategoryRepo(), newMockInteractionRepo())
}

// -- Tests --

func TestCreateDrug(t *testing.T) {
	svc := newTestService()

	d := &Drug{Name: "Amoxicillin 500mg", ListPrice: 12.50}
	if err := svc.CreateDrug(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.UOM != "unit" {
		t.Errorf("expected uom defaulted to unit, got %s", d.UOM)
	}
	if d.ExpiryAlertDays != 90 {
		t.Errorf("expected expiry alert defaulted to 90 days, got %d", d.ExpiryAlertDays)
	}
}

func TestCreateDrug_Validation(t *testing.T) {
	svc := newTestService()

	if err := svc.CreateDrug(context.Background(), &Drug{}); err == nil {
		t.Error("expected error for missing name")
	}

	form := "pill"
	err := svc.CreateDrug(context.Background(), &Drug{Name: "X", DosageForm: &form})
	if err == nil {
		t.Error("expected error for unknown dosage form")
	}

	err = svc.CreateDrug(context.Background(), &Drug{Name: "X", ListPrice: -1})
	if err == nil {
		t.Error("expected error for negative list price")
	}
}

func TestCreateInteraction(t *testing.T) {
	svc := newTestService()

	a, b := uuid.New(), uuid.New()
	i := &Interaction{Drug1ID: a, Drug2ID: b, Severity: SeverityMajor}
	if err := svc.CreateInteraction(context.Background(), i); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The lookup matches either side of the pair.
	for _, id := range []uuid.UUID{a, b} {
		got, err := svc.InteractionsForDrug(context.Background(), id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 interaction for drug %s, got %d", id, len(got))
		}
	}
}

func TestCreateInteraction_SelfRejected(t *testing.T) {
	svc := newTestService()

	id := uuid.New()
	err := svc.CreateInteraction(context.Background(), &Interaction{Drug1ID: id, Drug2ID: id, Severity: SeverityMinor})
	if err == nil {
		t.Error("expected error for self interaction")
	}
}

func TestCreateInteraction_InvalidSeverity(t *testing.T) {
	svc := newTestService()

	err := svc.CreateInteraction(context.Background(), &Interaction{Drug1ID: uuid.New(), Drug2ID: uuid.New(), Severity: "fatal"})
	if err == nil {
		t.Error("expected error for unknown severity")
	}
}

func TestDrugLookupSnapshot(t *testing.T) {
	svc := newTestService()

	d := &Drug{Name: "Paracetamol 500mg", UOM: "strip", ListPrice: 3.25, RequiresPrescription: true}
	if err := svc.CreateDrug(context.Background(), d); err != nil {
		t.Fatalf("create: %v", err)
	}

	info, err := svc.Drug(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != d.Name || info.UOM != "strip" || info.ListPrice != 3.25 {
		t.Errorf("snapshot mismatch: %+v", info)
	}
	if !info.RequiresPrescription {
		t.Error("expected requires_prescription carried over")
	}
}

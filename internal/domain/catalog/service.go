package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/careone/pharmacy/internal/domain/prescription"
)

type Service struct {
	drugs        DrugRepository
	categories   CategoryRepository
	interactions InteractionRepository
}

func NewService(drugs DrugRepository, categories CategoryRepository, interactions InteractionRepository) *Service {
	return &Service{drugs: drugs, categories: categories, interactions: interactions}
}

func (s *Service) CreateDrug(ctx context.Context, d *Drug) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.UOM == "" {
		d.UOM = "unit"
	}
	if d.DosageForm != nil && !ValidDosageForm(*d.DosageForm) {
		return fmt.Errorf("invalid dosage form: %s", *d.DosageForm)
	}
	if d.ListPrice < 0 {
		return fmt.Errorf("list price cannot be negative")
	}
	if d.ExpiryAlertDays == 0 {
		d.ExpiryAlertDays = 90
	}
	return s.drugs.Create(ctx, d)
}

func (s *Service) GetDrug(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return s.drugs.GetByID(ctx, id)
}

func (s *Service) UpdateDrug(ctx context.Context, d *Drug) error {
	if d.DosageForm != nil && !ValidDosageForm(*d.DosageForm) {
		return fmt.Errorf("invalid dosage form: %s", *d.DosageForm)
	}
	return s.drugs.Update(ctx, d)
}

func (s *Service) DeleteDrug(ctx context.Context, id uuid.UUID) error {
	return s.drugs.Delete(ctx, id)
}

func (s *Service) SearchDrugs(ctx context.Context, params map[string]string, limit, offset int) ([]*Drug, int, error) {
	return s.drugs.Search(ctx, params, limit, offset)
}

func (s *Service) CreateCategory(ctx context.Context, c *Category) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.categories.Create(ctx, c)
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.categories.List(ctx)
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}

func (s *Service) CreateInteraction(ctx context.Context, i *Interaction) error {
	if i.Drug1ID == uuid.Nil || i.Drug2ID == uuid.Nil {
		return fmt.Errorf("both drugs are required")
	}
	if i.Drug1ID == i.Drug2ID {
		return fmt.Errorf("a drug cannot interact with itself")
	}
	if !ValidSeverity(i.Severity) {
		return fmt.Errorf("invalid severity: %s", i.Severity)
	}
	return s.interactions.Create(ctx, i)
}

func (s *Service) InteractionsForDrug(ctx context.Context, drugID uuid.UUID) ([]*Interaction, error) {
	return s.interactions.ListForDrug(ctx, drugID)
}

func (s *Service) DeleteInteraction(ctx context.Context, id uuid.UUID) error {
	return s.interactions.Delete(ctx, id)
}

// Drug implements the workflow engine's catalog lookup, exposing the
// pricing snapshot a prescription line needs.
func (s *Service) Drug(ctx context.Context, id uuid.UUID) (*prescription.DrugInfo, error) {
	d, err := s.drugs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &prescription.DrugInfo{
		ID:                   d.ID,
		Name:                 d.Name,
		UOM:                  d.UOM,
		ListPrice:            d.ListPrice,
		RequiresPrescription: d.RequiresPrescription,
	}, nil
}

var _ prescription.DrugCatalog = (*Service)(nil)

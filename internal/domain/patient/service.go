package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.BranchID == uuid.Nil {
		return fmt.Errorf("branch_id is required")
	}
	if p.Gender != nil && !ValidGender(*p.Gender) {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	if p.BloodGroup != nil && !ValidBloodGroup(*p.BloodGroup) {
		return fmt.Errorf("invalid blood group: %s", *p.BloodGroup)
	}
	if p.PatientNo == "" {
		no, err := s.patients.NextPatientNo(ctx)
		if err != nil {
			return fmt.Errorf("generate patient number: %w", err)
		}
		p.PatientNo = no
	}
	p.Active = true
	return s.patients.Create(ctx, p)
}

// Get loads a patient with prescription count and last visit date filled.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.patients.VisitStats(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.Gender != nil && !ValidGender(*p.Gender) {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	if p.BloodGroup != nil && !ValidBloodGroup(*p.BloodGroup) {
		return fmt.Errorf("invalid blood group: %s", *p.BloodGroup)
	}
	return s.patients.Update(ctx, p)
}

// Deactivate archives a patient instead of deleting the row, so the
// prescription ledger keeps its history.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.Active = false
	return s.patients.Update(ctx, p)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, params, limit, offset)
}

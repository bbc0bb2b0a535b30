package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error)
	// NextPatientNo draws the next value from the patient number sequence.
	NextPatientNo(ctx context.Context) (string, error)
	// VisitStats fills PrescriptionCount and LastVisitDate from the
	// prescription ledger.
	VisitStats(ctx context.Context, p *Patient) error
}

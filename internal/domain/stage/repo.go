package stage

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists pipeline stages. First and Next return (nil, nil)
// when the branch has no matching stage.
type Repository interface {
	Create(ctx context.Context, s *Stage) error
	GetByID(ctx context.Context, id uuid.UUID) (*Stage, error)
	Update(ctx context.Context, s *Stage) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*Stage, error)
	First(ctx context.Context, branchID uuid.UUID) (*Stage, error)
	Next(ctx context.Context, branchID uuid.UUID, afterSequence int) (*Stage, error)
}

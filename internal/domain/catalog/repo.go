package catalog

import (
	"context"

	"github.com/google/uuid"
)

type DrugRepository interface {
	Create(ctx context.Context, d *Drug) error
	GetByID(ctx context.Context, id uuid.UUID) (*Drug, error)
	Update(ctx context.Context, d *Drug) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Drug, int, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type InteractionRepository interface {
	Create(ctx context.Context, i *Interaction) error
	// ListForDrug returns interactions where the drug appears on either side.
	ListForDrug(ctx context.Context, drugID uuid.UUID) ([]*Interaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

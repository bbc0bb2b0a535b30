package billing

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository persists sale orders together with their lines.
type OrderRepository interface {
	Create(ctx context.Context, o *SaleOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*SaleOrder, error)
	Update(ctx context.Context, o *SaleOrder) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*SaleOrder, int, error)
	NextReference(ctx context.Context) (string, error)
}

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
	NextReference(ctx context.Context) (string, error)
}

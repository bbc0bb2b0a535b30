package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/careone/pharmacy/internal/platform/apperr"
)

// Service owns sale orders and invoices. The dispensing workflow drives it
// through the Bridge; interactive callers reach it through the handler.
type Service struct {
	orders   OrderRepository
	invoices InvoiceRepository
	now      func() time.Time
}

func NewService(orders OrderRepository, invoices InvoiceRepository) *Service {
	return &Service{orders: orders, invoices: invoices, now: time.Now}
}

// CreateOrder validates and persists a draft order, computing line
// subtotals and the order total.
func (s *Service) CreateOrder(ctx context.Context, o *SaleOrder) error {
	if o.CustomerID == uuid.Nil {
		return apperr.Validation("customer_id is required")
	}
	if len(o.Lines) == 0 {
		return apperr.User("cannot create sale order without lines")
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = s.now()
	}
	o.Status = OrderDraft

	var total float64
	for _, l := range o.Lines {
		if l.Quantity <= 0 {
			return apperr.Validation("line quantity must be positive")
		}
		l.Subtotal = l.Quantity * l.UnitPrice
		total += l.Subtotal
	}
	o.AmountTotal = total

	ref, err := s.orders.NextReference(ctx)
	if err != nil {
		return err
	}
	o.Reference = ref

	return s.orders.Create(ctx, o)
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*SaleOrder, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*SaleOrder, int, error) {
	return s.orders.ListByCustomer(ctx, customerID, limit, offset)
}

// ConfirmOrder moves a draft order to confirmed. Confirming an already
// confirmed order is a no-op.
func (s *Service) ConfirmOrder(ctx context.Context, id uuid.UUID) (*SaleOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == OrderConfirmed {
		return o, nil
	}
	o.Status = OrderConfirmed
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateInvoice generates the invoice for a confirmed order. It returns the
// existing invoice when one was already generated, and (nil, nil) when the
// order has nothing to invoice.
func (s *Service) CreateInvoice(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != OrderConfirmed {
		return nil, apperr.State("only confirmed orders can be invoiced")
	}

	existing, err := s.invoices.GetByOrder(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !errors.Is(err, ErrInvoiceNotFound) {
		return nil, err
	}

	if len(o.Lines) == 0 {
		return nil, nil
	}

	ref, err := s.invoices.NextReference(ctx)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{
		Reference:   ref,
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		InvoiceDate: s.now(),
		AmountTotal: o.AmountTotal,
		Status:      InvoicePosted,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) ListInvoicesByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.ListByCustomer(ctx, customerID, limit, offset)
}

// ErrInvoiceNotFound is returned by repositories when no invoice matches.
var ErrInvoiceNotFound = errors.New("invoice not found")

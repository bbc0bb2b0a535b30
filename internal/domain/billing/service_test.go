package billing

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/careone/pharmacy/internal/platform/apperr"
)

// -- Mock Repositories --

type mockOrderRepo struct {
	orders     map[uuid.UUID]*SaleOrder
	refCounter int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*SaleOrder)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *SaleOrder) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	for _, l := range o.Lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.OrderID = o.ID
	}
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*SaleOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return o, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *SaleOrder) error {
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, limit, offset int) ([]*SaleOrder, int, error) {
	var result []*SaleOrder
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			result = append(result, o)
		}
	}
	return result, len(result), nil
}

func (m *mockOrderRepo) NextReference(_ context.Context) (string, error) {
	m.refCounter++
	return fmt.Sprintf("SO%05d", m.refCounter), nil
}

type mockInvoiceRepo struct {
	invoices   map[uuid.UUID]*Invoice
	refCounter int
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{invoices: make(map[uuid.UUID]*Invoice)}
}

func (m *mockInvoiceRepo) Create(_ context.Context, inv *Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *mockInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *mockInvoiceRepo) GetByOrder(_ context.Context, orderID uuid.UUID) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.OrderID == orderID {
			return inv, nil
		}
	}
	return nil, ErrInvoiceNotFound
}

func (m *mockInvoiceRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var result []*Invoice
	for _, inv := range m.invoices {
		if inv.CustomerID == customerID {
			result = append(result, inv)
		}
	}
	return result, len(result), nil
}

func (m *mockInvoiceRepo) NextReference(_ context.Context) (string, error) {
	m.refCounter++
	return fmt.Sprintf("INV%05d", m.refCounter), nil
}

func newTestService() (*Service, *mockOrderRepo, *mockInvoiceRepo) {
	orders := newMockOrderRepo()
	invoices := newMockInvoiceRepo()
	return NewService(orders, invoices), orders, invoices
}

func testOrder() *SaleOrder {
	return &SaleOrder{
		CustomerID: uuid.New(),
		CreatedBy:  uuid.New(),
		Lines: []*SaleOrderLine{
			{DrugID: uuid.New(), Description: "Drug A", Quantity: 2, UOM: "tablet", UnitPrice: 10},
			{DrugID: uuid.New(), Description: "Drug B", Quantity: 1, UOM: "bottle", UnitPrice: 5},
		},
	}
}

// -- Orders --

func TestCreateOrder(t *testing.T) {
	svc, _, _ := newTestService()

	o := testOrder()
	if err := svc.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Reference != "SO00001" {
		t.Errorf("expected reference SO00001, got %s", o.Reference)
	}
	if o.Status != OrderDraft {
		t.Errorf("expected draft order, got %s", o.Status)
	}
	if o.AmountTotal != 25 {
		t.Errorf("expected total 25, got %f", o.AmountTotal)
	}
	if o.Lines[0].Subtotal != 20 {
		t.Errorf("expected line subtotal 20, got %f", o.Lines[0].Subtotal)
	}
}

func TestCreateOrder_NoLines(t *testing.T) {
	svc, _, _ := newTestService()

	o := &SaleOrder{CustomerID: uuid.New(), CreatedBy: uuid.New()}
	err := svc.CreateOrder(context.Background(), o)
	if !apperr.IsKind(err, apperr.KindUser) {
		t.Errorf("expected user error, got %v", err)
	}
}

func TestConfirmOrder_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()

	o := testOrder()
	if err := svc.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}

	first, err := svc.ConfirmOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if first.Status != OrderConfirmed {
		t.Errorf("expected confirmed, got %s", first.Status)
	}

	second, err := svc.ConfirmOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if second.Status != OrderConfirmed {
		t.Errorf("expected confirmed on repeat, got %s", second.Status)
	}
}

// -- Invoices --

func TestCreateInvoice(t *testing.T) {
	svc, _, _ := newTestService()

	o := testOrder()
	if err := svc.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.ConfirmOrder(context.Background(), o.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	inv, err := svc.CreateInvoice(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("invoice: %v", err)
	}
	if inv == nil {
		t.Fatal("expected an invoice")
	}
	if inv.Reference != "INV00001" {
		t.Errorf("expected reference INV00001, got %s", inv.Reference)
	}
	if inv.AmountTotal != o.AmountTotal {
		t.Errorf("expected invoice total %f, got %f", o.AmountTotal, inv.AmountTotal)
	}
	if inv.Status != InvoicePosted {
		t.Errorf("expected posted invoice, got %s", inv.Status)
	}
}

func TestCreateInvoice_DraftOrderRejected(t *testing.T) {
	svc, _, _ := newTestService()

	o := testOrder()
	if err := svc.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err := svc.CreateInvoice(context.Background(), o.ID)
	if !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("expected state error, got %v", err)
	}
}

func TestCreateInvoice_ReturnsExisting(t *testing.T) {
	svc, _, invoices := newTestService()

	o := testOrder()
	if err := svc.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.ConfirmOrder(context.Background(), o.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	first, err := svc.CreateInvoice(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("first invoice: %v", err)
	}
	second, err := svc.CreateInvoice(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("second invoice: %v", err)
	}
	if first.ID != second.ID {
		t.Error("expected the existing invoice to be returned")
	}
	if len(invoices.invoices) != 1 {
		t.Errorf("expected a single stored invoice, got %d", len(invoices.invoices))
	}
}

package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/careone/pharmacy/internal/domain/prescription"
	"github.com/careone/pharmacy/internal/platform/apperr"
)

// Bridge adapts the billing service to the workflow engine's BillingBridge
// interface, translating prescription lines into sale-order lines.
type Bridge struct {
	svc *Service
}

func NewBridge(svc *Service) *Bridge {
	return &Bridge{svc: svc}
}

// EnsureSaleOrder returns the order already linked to the prescription, or
// creates one order line per prescription line. A prescription without
// lines cannot be billed.
func (b *Bridge) EnsureSaleOrder(ctx context.Context, p *prescription.Prescription, lines []*prescription.Line) (uuid.UUID, error) {
	if p.SaleOrderID != nil {
		return *p.SaleOrderID, nil
	}
	if len(lines) == 0 {
		return uuid.Nil, apperr.User("cannot create sale order without prescription lines")
	}

	origin := p.Reference
	order := &SaleOrder{
		CustomerID:     p.PatientID,
		OrderDate:      p.Date,
		Origin:         &origin,
		IsPharmacySale: true,
		CreatedBy:      p.PharmacistID,
	}
	for _, l := range lines {
		desc := l.DrugName
		if l.Instructions != nil && *l.Instructions != "" {
			desc += " - " + *l.Instructions
		}
		order.Lines = append(order.Lines, &SaleOrderLine{
			DrugID:      l.DrugID,
			Description: desc,
			Quantity:    l.Quantity,
			UOM:         l.UOM,
			UnitPrice:   l.UnitPrice,
		})
	}

	if err := b.svc.CreateOrder(ctx, order); err != nil {
		return uuid.Nil, err
	}
	return order.ID, nil
}

// ConfirmAndInvoice confirms the order and generates its invoice. A nil
// invoice id means the billing side produced none; the workflow engine
// treats that as a no-op.
func (b *Bridge) ConfirmAndInvoice(ctx context.Context, saleOrderID uuid.UUID) (*uuid.UUID, error) {
	if _, err := b.svc.ConfirmOrder(ctx, saleOrderID); err != nil {
		return nil, err
	}
	inv, err := b.svc.CreateInvoice(ctx, saleOrderID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, nil
	}
	id := inv.ID
	return &id, nil
}

var _ prescription.BillingBridge = (*Bridge)(nil)

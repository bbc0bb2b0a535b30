package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/careone/pharmacy/internal/domain/prescription"
	"github.com/careone/pharmacy/internal/platform/apperr"
)

func testPrescription() *prescription.Prescription {
	return &prescription.Prescription{
		ID:           uuid.New(),
		Reference:    "PH00042",
		PatientID:    uuid.New(),
		PharmacistID: uuid.New(),
	}
}

func TestBridgeEnsureSaleOrder(t *testing.T) {
	svc, orders, _ := newTestService()
	bridge := NewBridge(svc)

	p := testPrescription()
	instructions := "after meals"
	lines := []*prescription.Line{
		{DrugID: uuid.New(), DrugName: "Drug A", UOM: "tablet", Quantity: 2, UnitPrice: 10, Instructions: &instructions},
		{DrugID: uuid.New(), DrugName: "Drug B", UOM: "bottle", Quantity: 1, UnitPrice: 5},
	}

	orderID, err := bridge.EnsureSaleOrder(context.Background(), p, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o, err := orders.GetByID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("order not stored: %v", err)
	}
	if !o.IsPharmacySale {
		t.Error("expected order flagged as pharmacy sale")
	}
	if o.Origin == nil || *o.Origin != "PH00042" {
		t.Error("expected prescription reference as order origin")
	}
	if o.CustomerID != p.PatientID {
		t.Error("expected patient as order customer")
	}
	if len(o.Lines) != 2 {
		t.Fatalf("expected 2 order lines, got %d", len(o.Lines))
	}
	if o.Lines[0].Description != "Drug A - after meals" {
		t.Errorf("expected instructions appended to description, got %q", o.Lines[0].Description)
	}
	if o.Lines[1].Description != "Drug B" {
		t.Errorf("expected bare drug name without instructions, got %q", o.Lines[1].Description)
	}
	if o.AmountTotal != 25 {
		t.Errorf("expected total 25, got %f", o.AmountTotal)
	}
}

func TestBridgeEnsureSaleOrder_Idempotent(t *testing.T) {
	svc, orders, _ := newTestService()
	bridge := NewBridge(svc)

	p := testPrescription()
	existing := uuid.New()
	p.SaleOrderID = &existing

	orderID, err := bridge.EnsureSaleOrder(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orderID != existing {
		t.Error("expected the already linked order id back")
	}
	if len(orders.orders) != 0 {
		t.Error("expected no new order created")
	}
}

func TestBridgeEnsureSaleOrder_NoLines(t *testing.T) {
	svc, _, _ := newTestService()
	bridge := NewBridge(svc)

	_, err := bridge.EnsureSaleOrder(context.Background(), testPrescription(), nil)
	if !apperr.IsKind(err, apperr.KindUser) {
		t.Errorf("expected user error, got %v", err)
	}
}

func TestBridgeConfirmAndInvoice(t *testing.T) {
	svc, _, _ := newTestService()
	bridge := NewBridge(svc)

	p := testPrescription()
	lines := []*prescription.Line{
		{DrugID: uuid.New(), DrugName: "Drug A", UOM: "tablet", Quantity: 2, UnitPrice: 10},
	}
	orderID, err := bridge.EnsureSaleOrder(context.Background(), p, lines)
	if err != nil {
		t.Fatalf("ensure order: %v", err)
	}

	invoiceID, err := bridge.ConfirmAndInvoice(context.Background(), orderID)
	if err != nil {
		t.Fatalf("confirm and invoice: %v", err)
	}
	if invoiceID == nil {
		t.Fatal("expected an invoice id")
	}

	o, _ := svc.GetOrder(context.Background(), orderID)
	if o.Status != OrderConfirmed {
		t.Errorf("expected confirmed order, got %s", o.Status)
	}
	inv, err := svc.GetInvoice(context.Background(), *invoiceID)
	if err != nil {
		t.Fatalf("invoice not stored: %v", err)
	}
	if inv.AmountTotal != 20 {
		t.Errorf("expected invoice total 20, got %f", inv.AmountTotal)
	}
}

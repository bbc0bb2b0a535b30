package billing

import (
	"time"

	"github.com/google/uuid"
)

// Sale order states.
const (
	OrderDraft     = "draft"
	OrderConfirmed = "confirmed"
)

// Invoice states.
const (
	InvoicePosted = "posted"
)

// SaleOrder is a sales document raised for a patient. Orders created by the
// dispensing workflow carry IsPharmacySale and their prescription reference
// in Origin.
type SaleOrder struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	Reference      string           `db:"reference" json:"reference"`
	CustomerID     uuid.UUID        `db:"customer_id" json:"customer_id"`
	OrderDate      time.Time        `db:"order_date" json:"order_date"`
	Origin         *string          `db:"origin" json:"origin,omitempty"`
	Status         string           `db:"status" json:"status"`
	AmountTotal    float64          `db:"amount_total" json:"amount_total"`
	IsPharmacySale bool             `db:"is_pharmacy_sale" json:"is_pharmacy_sale"`
	CreatedBy      uuid.UUID        `db:"created_by" json:"created_by"`
	Lines          []*SaleOrderLine `db:"-" json:"lines,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// SaleOrderLine is one product position on a sale order.
type SaleOrderLine struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OrderID     uuid.UUID `db:"order_id" json:"order_id"`
	DrugID      uuid.UUID `db:"drug_id" json:"drug_id"`
	Description string    `db:"description" json:"description"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	UOM         string    `db:"uom" json:"uom"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	Subtotal    float64   `db:"subtotal" json:"subtotal"`
}

// Invoice is the billing document generated from a confirmed sale order.
type Invoice struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Reference   string    `db:"reference" json:"reference"`
	OrderID     uuid.UUID `db:"order_id" json:"order_id"`
	CustomerID  uuid.UUID `db:"customer_id" json:"customer_id"`
	InvoiceDate time.Time `db:"invoice_date" json:"invoice_date"`
	AmountTotal float64   `db:"amount_total" json:"amount_total"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

package prescription

import (
	"context"

	"github.com/google/uuid"

	"github.com/careone/pharmacy/internal/domain/stage"
)

// Repository persists prescriptions.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	// GetForUpdate loads the record with an exclusive row lock. It is only
	// meaningful inside a transaction; Advance relies on it to serialise
	// concurrent advancement of the same record.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByReference(ctx context.Context, reference string) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Prescription, int, error)
	// NextReference returns the next human-readable reference code.
	NextReference(ctx context.Context) (string, error)
	AddNote(ctx context.Context, n *Note) error
	ListNotes(ctx context.Context, prescriptionID uuid.UUID) ([]*Note, error)
}

// LineRepository persists prescription lines.
type LineRepository interface {
	Create(ctx context.Context, l *Line) error
	GetByID(ctx context.Context, id uuid.UUID) (*Line, error)
	Update(ctx context.Context, l *Line) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPrescription(ctx context.Context, prescriptionID uuid.UUID) ([]*Line, error)
}

// StageCatalog is the slice of the stage service the workflow engine needs.
type StageCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*stage.Stage, error)
	First(ctx context.Context, branchID uuid.UUID) (*stage.Stage, error)
	Next(ctx context.Context, branchID uuid.UUID, afterSequence int) (*stage.Stage, error)
}

// DrugInfo is the catalog snapshot taken when a line is created.
type DrugInfo struct {
	ID                   uuid.UUID
	Name                 string
	UOM                  string
	ListPrice            float64
	RequiresPrescription bool
}

// DrugCatalog resolves drugs for line pricing.
type DrugCatalog interface {
	Drug(ctx context.Context, id uuid.UUID) (*DrugInfo, error)
}

// BillingBridge turns prescription lines into a sale order and that order
// into an invoice. EnsureSaleOrder must be idempotent; ConfirmAndInvoice
// returns nil when the billing side produced no invoice.
type BillingBridge interface {
	EnsureSaleOrder(ctx context.Context, p *Prescription, lines []*Line) (uuid.UUID, error)
	ConfirmAndInvoice(ctx context.Context, saleOrderID uuid.UUID) (*uuid.UUID, error)
}

// TxRunner wraps an operation in one database transaction. The whole of
// Advance runs under it so side effects and the stage move commit together
// or not at all.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Event types emitted by the workflow engine.
const (
	EventCreated   = "prescription.created"
	EventAdvanced  = "prescription.advanced"
	EventDone      = "prescription.done"
	EventCancelled = "prescription.cancelled"
)

// EventSink receives lifecycle notifications after a state change has
// committed. Implementations must not block; delivery is best effort and
// failures never roll the state change back.
type EventSink interface {
	PrescriptionEvent(ctx context.Context, eventType string, p *Prescription)
}

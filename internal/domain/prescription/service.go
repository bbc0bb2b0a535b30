package prescription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careone/pharmacy/internal/domain/stage"
	"github.com/careone/pharmacy/internal/platform/apperr"
)

// Service is the workflow engine. It owns prescription lifecycle: creation
// in draft, the line ledger, advancement through the stage pipeline with
// its billing side effects, and cancellation.
type Service struct {
	prescriptions Repository
	lines         LineRepository
	stages        StageCatalog
	drugs         DrugCatalog
	billing       BillingBridge
	tx            TxRunner
	logger        zerolog.Logger
	events        EventSink
	now           func() time.Time
}

func NewService(
	prescriptions Repository,
	lines LineRepository,
	stages StageCatalog,
	drugs DrugCatalog,
	billing BillingBridge,
	tx TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		prescriptions: prescriptions,
		lines:         lines,
		stages:        stages,
		drugs:         drugs,
		billing:       billing,
		tx:            tx,
		logger:        logger,
		now:           time.Now,
	}
}

// SetEvents installs an optional sink for lifecycle events. Events fire
// after the state change commits.
func (s *Service) SetEvents(sink EventSink) {
	s.events = sink
}

func (s *Service) emit(ctx context.Context, eventType string, p *Prescription) {
	if s.events == nil {
		return
	}
	s.events.PrescriptionEvent(ctx, eventType, p)
}

// Create opens a new pharmacy encounter in draft, placed on the branch's
// first configured stage (nil when the branch has none — Advance will
// reject until a stage is configured).
func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if p.BranchID == uuid.Nil {
		return apperr.Validation("branch_id is required")
	}
	if p.PharmacistID == uuid.Nil {
		return apperr.Validation("pharmacist_id is required")
	}
	if p.Priority == "" {
		p.Priority = PriorityNormal
	}
	if p.Date.IsZero() {
		p.Date = s.now()
	}
	p.Status = StatusDraft
	p.TotalAmount = 0
	p.SaleOrderID = nil
	p.InvoiceID = nil

	ref, err := s.prescriptions.NextReference(ctx)
	if err != nil {
		return fmt.Errorf("generate reference: %w", err)
	}
	p.Reference = ref

	first, err := s.stages.First(ctx, p.BranchID)
	if err != nil {
		return err
	}
	if first != nil {
		p.StageID = &first.ID
	}

	if err := s.prescriptions.Create(ctx, p); err != nil {
		return err
	}
	s.emit(ctx, EventCreated, p)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) GetByReference(ctx context.Context, reference string) (*Prescription, error) {
	return s.prescriptions.GetByReference(ctx, reference)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.Search(ctx, params, limit, offset)
}

func (s *Service) Lines(ctx context.Context, prescriptionID uuid.UUID) ([]*Line, error) {
	return s.lines.ListByPrescription(ctx, prescriptionID)
}

func (s *Service) Notes(ctx context.Context, prescriptionID uuid.UUID) ([]*Note, error) {
	return s.prescriptions.ListNotes(ctx, prescriptionID)
}

// AddLine appends a drug order to a draft prescription. Drug name, unit of
// measure and unit price are snapshotted from the catalog; the line's
// schedule and subtotal are computed before persisting, and the
// prescription total is refreshed.
func (s *Service) AddLine(ctx context.Context, prescriptionID uuid.UUID, l *Line) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetForUpdate(ctx, prescriptionID)
		if err != nil {
			return err
		}
		if p.Status != StatusDraft {
			return apperr.Validation("lines can only be added to a draft prescription")
		}
		if l.DrugID == uuid.Nil {
			return apperr.Validation("drug_id is required")
		}
		if l.Quantity <= 0 {
			l.Quantity = 1
		}
		if l.Frequency == "" {
			l.Frequency = FreqDaily
		}
		if !ValidFrequency(l.Frequency) {
			return apperr.Validation(fmt.Sprintf("invalid frequency: %s", l.Frequency))
		}
		if l.FrequencyDuration <= 0 {
			return apperr.Validation("frequency_duration must be positive")
		}
		if l.Route != nil && !ValidRoute(*l.Route) {
			return apperr.Validation(fmt.Sprintf("invalid route of administration: %s", *l.Route))
		}

		drug, err := s.drugs.Drug(ctx, l.DrugID)
		if err != nil {
			return apperr.Validation(fmt.Sprintf("unknown drug: %s", l.DrugID))
		}
		l.PrescriptionID = p.ID
		l.DrugName = drug.Name
		l.UnitPrice = drug.ListPrice
		if l.UOM == "" {
			l.UOM = drug.UOM
		}
		if l.StartDate.IsZero() {
			l.StartDate = s.now()
		}
		if l.RefillsRemaining == 0 {
			l.RefillsRemaining = l.RefillsAllowed
		}
		l.IsDispensed = false
		l.DispensedQuantity = 0
		l.Recompute()

		if err := s.lines.Create(ctx, l); err != nil {
			return err
		}
		return s.refreshTotal(ctx, p)
	})
}

// UpdateLine changes a draft line's caller-editable inputs and recomputes
// its derived fields and the prescription total. The catalog snapshot
// (drug, unit price) and the dispense bookkeeping are fixed at line
// creation and during the dispensing transition respectively; a partial
// update must not touch them, so the stored line is loaded and only the
// dosing inputs are copied across.
func (s *Service) UpdateLine(ctx context.Context, l *Line) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetForUpdate(ctx, l.PrescriptionID)
		if err != nil {
			return err
		}
		if p.Status != StatusDraft {
			return apperr.Validation("lines can only be edited on a draft prescription")
		}
		stored, err := s.lines.GetByID(ctx, l.ID)
		if err != nil {
			return err
		}
		if stored.PrescriptionID != p.ID {
			return apperr.Validation("line does not belong to this prescription")
		}
		if l.Quantity > 0 {
			stored.Quantity = l.Quantity
		}
		if l.Frequency != "" {
			if !ValidFrequency(l.Frequency) {
				return apperr.Validation(fmt.Sprintf("invalid frequency: %s", l.Frequency))
			}
			stored.Frequency = l.Frequency
		}
		if l.FrequencyDuration > 0 {
			stored.FrequencyDuration = l.FrequencyDuration
		}
		if !l.StartDate.IsZero() {
			stored.StartDate = l.StartDate
		}
		if l.Dosage != nil {
			stored.Dosage = l.Dosage
		}
		if l.Route != nil {
			if !ValidRoute(*l.Route) {
				return apperr.Validation(fmt.Sprintf("invalid route of administration: %s", *l.Route))
			}
			stored.Route = l.Route
		}
		if l.Instructions != nil {
			stored.Instructions = l.Instructions
		}
		if l.Notes != nil {
			stored.Notes = l.Notes
		}
		if l.RefillsAllowed > 0 {
			stored.RefillsAllowed = l.RefillsAllowed
			if stored.RefillsRemaining > stored.RefillsAllowed {
				stored.RefillsRemaining = stored.RefillsAllowed
			}
		}
		stored.Recompute()
		if err := s.lines.Update(ctx, stored); err != nil {
			return err
		}
		*l = *stored
		return s.refreshTotal(ctx, p)
	})
}

// RemoveLine deletes a line while the prescription is still a true orphan:
// draft and not yet referenced by a sale order.
func (s *Service) RemoveLine(ctx context.Context, prescriptionID, lineID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetForUpdate(ctx, prescriptionID)
		if err != nil {
			return err
		}
		if p.Status != StatusDraft || p.SaleOrderID != nil {
			return apperr.State("lines cannot be removed once the prescription left draft")
		}
		if err := s.lines.Delete(ctx, lineID); err != nil {
			return err
		}
		return s.refreshTotal(ctx, p)
	})
}

// MarkDispensed records a dispense on a single line. Dispensing the same
// line twice is a state error.
func (s *Service) MarkDispensed(ctx context.Context, l *Line, dispensedBy uuid.UUID, quantity float64, at time.Time) error {
	if l.IsDispensed {
		return apperr.State(fmt.Sprintf("line %s already dispensed", l.ID))
	}
	l.IsDispensed = true
	l.DispensedQuantity = quantity
	l.DispensedBy = &dispensedBy
	t := at
	l.DispensedDate = &t
	return s.lines.Update(ctx, l)
}

// AdvanceResult is what a completed advance reports back to the caller.
type AdvanceResult struct {
	StageID     *uuid.UUID `json:"stage_id,omitempty"`
	StageName   string     `json:"stage_name,omitempty"`
	Status      Status     `json:"status"`
	SaleOrderID *uuid.UUID `json:"sale_order_id,omitempty"`
	InvoiceID   *uuid.UUID `json:"invoice_id,omitempty"`
}

// Advance applies the current stage's side effects in fixed order —
// verification, dispensing, sale-order issue, invoicing — then moves the
// prescription to the next configured stage, or to done when the pipeline
// is exhausted. The whole operation runs in one transaction holding an
// exclusive lock on the record: either every side effect plus the stage
// move commits, or none does.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, caller uuid.UUID) (*AdvanceResult, error) {
	var result *AdvanceResult
	var advanced *Prescription
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status.Terminal() {
			return apperr.State(fmt.Sprintf("prescription %s is %s and cannot be advanced", p.Reference, p.Status))
		}
		if p.StageID == nil {
			return apperr.Configuration("no stage configured for this prescription's branch")
		}

		current, err := s.stages.Get(ctx, *p.StageID)
		if err != nil {
			return fmt.Errorf("load stage %s: %w", *p.StageID, err)
		}

		lines, err := s.lines.ListByPrescription(ctx, p.ID)
		if err != nil {
			return err
		}

		now := s.now()

		if current.IsVerificationStage {
			v := caller
			p.VerifiedBy = &v
			t := now
			p.VerifiedDate = &t
			p.Status = StatusVerified
		}

		if current.IsDispensingStage {
			d := caller
			p.DispensedBy = &d
			t := now
			p.DispensedDate = &t
			for _, l := range lines {
				if err := s.MarkDispensed(ctx, l, caller, l.Quantity, now); err != nil {
					return err
				}
			}
			p.Status = StatusDispensed
		}

		if current.IsIssuedStage {
			if _, err := s.ensureSaleOrder(ctx, p, lines); err != nil {
				return err
			}
		}

		if current.IsFinanceStage {
			orderID, err := s.ensureSaleOrder(ctx, p, lines)
			if err != nil {
				return err
			}
			invoiceID, err := s.billing.ConfirmAndInvoice(ctx, orderID)
			if err != nil {
				return err
			}
			if invoiceID != nil {
				p.InvoiceID = invoiceID
				p.Status = StatusInvoiced
			}
		}

		next, err := s.stages.Next(ctx, p.BranchID, current.Sequence)
		if err != nil {
			return err
		}
		if next != nil {
			p.StageID = &next.ID
			note := &Note{
				PrescriptionID: p.ID,
				Body:           fmt.Sprintf("moved to stage: %s", next.Name),
				AuthorID:       caller,
			}
			if err := s.prescriptions.AddNote(ctx, note); err != nil {
				return err
			}
		} else {
			p.Status = StatusDone
		}

		if err := s.prescriptions.Update(ctx, p); err != nil {
			return err
		}

		result = &AdvanceResult{
			StageID:     p.StageID,
			Status:      p.Status,
			SaleOrderID: p.SaleOrderID,
			InvoiceID:   p.InvoiceID,
		}
		if next != nil {
			result.StageName = next.Name
		} else {
			result.StageName = current.Name
		}

		s.logger.Info().
			Str("prescription", p.Reference).
			Str("status", string(p.Status)).
			Str("stage", result.StageName).
			Msg("prescription advanced")
		advanced = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if advanced.Status == StatusDone {
		s.emit(ctx, EventDone, advanced)
	} else {
		s.emit(ctx, EventAdvanced, advanced)
	}
	return result, nil
}

// Cancel unconditionally marks the prescription cancelled, whatever its
// current stage or status. Done and invoiced records can be cancelled too;
// the linked sale order and invoice are left untouched.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	var p *Prescription
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.prescriptions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.Status = StatusCancelled
		return s.prescriptions.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, EventCancelled, p)
	return p, nil
}

// ensureSaleOrder delegates to the billing bridge and records the set-once
// sale-order reference on the prescription.
func (s *Service) ensureSaleOrder(ctx context.Context, p *Prescription, lines []*Line) (uuid.UUID, error) {
	if p.SaleOrderID != nil {
		return *p.SaleOrderID, nil
	}
	orderID, err := s.billing.EnsureSaleOrder(ctx, p, lines)
	if err != nil {
		return uuid.Nil, err
	}
	p.SaleOrderID = &orderID
	return orderID, nil
}

func (s *Service) refreshTotal(ctx context.Context, p *Prescription) error {
	lines, err := s.lines.ListByPrescription(ctx, p.ID)
	if err != nil {
		return err
	}
	var total float64
	for _, l := range lines {
		total += l.Subtotal
	}
	p.TotalAmount = total
	return s.prescriptions.Update(ctx, p)
}

var _ StageCatalog = (*stage.Service)(nil)

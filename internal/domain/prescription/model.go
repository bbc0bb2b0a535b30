package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Status values follow a forward-only ordering:
// draft → verified → dispensed → invoiced → done, with cancelled reachable
// from any state via Cancel. Status is derived from the behaviour flags of
// the stage a prescription passes through, not set directly by callers.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusVerified  Status = "verified"
	StatusDispensed Status = "dispensed"
	StatusInvoiced  Status = "invoiced"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further advancement is possible.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// Priority of a pharmacy encounter.
type Priority string

const (
	PriorityNormal     Priority = "normal"
	PriorityUrgent     Priority = "urgent"
	PriorityVeryUrgent Priority = "very_urgent"
)

// Frequency is the unit of a line's dosing interval.
type Frequency string

const (
	FreqMinute  Frequency = "minute"
	FreqHourly  Frequency = "hourly"
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Schedule returns start shifted by duration frequency units. Months and
// years are approximated as 30 and 365 days. Both a line's end date and its
// expected next visit use this same formula; the duplication mirrors the
// two separately stored fields.
func Schedule(start time.Time, freq Frequency, duration int) time.Time {
	switch freq {
	case FreqMinute:
		return start.Add(time.Duration(duration) * time.Minute)
	case FreqHourly:
		return start.Add(time.Duration(duration) * time.Hour)
	case FreqDaily:
		return start.AddDate(0, 0, duration)
	case FreqWeekly:
		return start.AddDate(0, 0, duration*7)
	case FreqMonthly:
		return start.AddDate(0, 0, duration*30)
	case FreqYearly:
		return start.AddDate(0, 0, duration*365)
	default:
		return start
	}
}

// ValidFrequency reports whether f is one of the known units.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FreqMinute, FreqHourly, FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// Routes of administration accepted on a line.
var validRoutes = map[string]bool{
	"oral": true, "topical": true, "intravenous": true, "intramuscular": true,
	"subcutaneous": true, "inhalation": true, "rectal": true,
	"ophthalmic": true, "otic": true, "nasal": true,
}

// ValidRoute reports whether route is a known route of administration.
func ValidRoute(route string) bool {
	return validRoutes[route]
}

// Prescription is the aggregate root for one pharmacy encounter. It is
// mutated only through the workflow engine's Advance and Cancel operations
// once it leaves draft.
type Prescription struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Reference     string     `db:"reference" json:"reference"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	BranchID      uuid.UUID  `db:"branch_id" json:"branch_id"`
	Date          time.Time  `db:"date" json:"date"`
	StageID       *uuid.UUID `db:"stage_id" json:"stage_id,omitempty"`
	Status        Status     `db:"status" json:"status"`
	PrescriberID  *uuid.UUID `db:"prescriber_id" json:"prescriber_id,omitempty"`
	Diagnosis     *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	TotalAmount   float64    `db:"total_amount" json:"total_amount"`
	SaleOrderID   *uuid.UUID `db:"sale_order_id" json:"sale_order_id,omitempty"`
	InvoiceID     *uuid.UUID `db:"invoice_id" json:"invoice_id,omitempty"`
	PharmacistID  uuid.UUID  `db:"pharmacist_id" json:"pharmacist_id"`
	VerifiedBy    *uuid.UUID `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedDate  *time.Time `db:"verified_date" json:"verified_date,omitempty"`
	DispensedBy   *uuid.UUID `db:"dispensed_by" json:"dispensed_by,omitempty"`
	DispensedDate *time.Time `db:"dispensed_date" json:"dispensed_date,omitempty"`
	Priority      Priority   `db:"priority" json:"priority"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Line is one ordered drug within a prescription. Drug name, unit of
// measure and unit price are snapshotted from the catalog when the line is
// created.
type Line struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PrescriptionID    uuid.UUID  `db:"prescription_id" json:"prescription_id"`
	DrugID            uuid.UUID  `db:"drug_id" json:"drug_id"`
	DrugName          string     `db:"drug_name" json:"drug_name"`
	UOM               string     `db:"uom" json:"uom"`
	Quantity          float64    `db:"quantity" json:"quantity"`
	Dosage            *string    `db:"dosage" json:"dosage,omitempty"`
	Frequency         Frequency  `db:"frequency" json:"frequency"`
	FrequencyDuration int        `db:"frequency_duration" json:"frequency_duration"`
	StartDate         time.Time  `db:"start_date" json:"start_date"`
	EndDate           *time.Time `db:"end_date" json:"end_date,omitempty"`
	ExpectedNextVisit *time.Time `db:"expected_next_visit" json:"expected_next_visit,omitempty"`
	Route             *string    `db:"route_of_administration" json:"route_of_administration,omitempty"`
	Instructions      *string    `db:"instructions" json:"instructions,omitempty"`
	IsDispensed       bool       `db:"is_dispensed" json:"is_dispensed"`
	DispensedQuantity float64    `db:"dispensed_quantity" json:"dispensed_quantity"`
	DispensedBy       *uuid.UUID `db:"dispensed_by" json:"dispensed_by,omitempty"`
	DispensedDate     *time.Time `db:"dispensed_date" json:"dispensed_date,omitempty"`
	RefillsAllowed    int        `db:"refills_allowed" json:"refills_allowed"`
	RefillsRemaining  int        `db:"refills_remaining" json:"refills_remaining"`
	UnitPrice         float64    `db:"unit_price" json:"unit_price"`
	Subtotal          float64    `db:"subtotal" json:"subtotal"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Recompute refreshes the line's derived fields from its inputs: subtotal
// from quantity and unit price, end date and expected next visit from the
// dosing schedule.
func (l *Line) Recompute() {
	l.Subtotal = l.Quantity * l.UnitPrice
	if !l.StartDate.IsZero() && l.FrequencyDuration > 0 {
		end := Schedule(l.StartDate, l.Frequency, l.FrequencyDuration)
		visit := Schedule(l.StartDate, l.Frequency, l.FrequencyDuration)
		l.EndDate = &end
		l.ExpectedNextVisit = &visit
	} else {
		l.EndDate = nil
		l.ExpectedNextVisit = nil
	}
}

// Note is an audit entry attached to a prescription, e.g. stage moves.
type Note struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	Body           string    `db:"body" json:"body"`
	AuthorID       uuid.UUID `db:"author_id" json:"author_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Dosage forms accepted on a drug.
var validDosageForms = map[string]bool{
	"tablet": true, "capsule": true, "syrup": true, "injection": true,
	"cream": true, "ointment": true, "drops": true, "inhaler": true,
	"patch": true, "suppository": true,
}

// Drug is a product in the pharmacy catalog. ListPrice is the price
// snapshotted onto prescription lines at line creation.
type Drug struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	CategoryID           *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	ActiveIngredient     *string    `db:"active_ingredient" json:"active_ingredient,omitempty"`
	DosageForm           *string    `db:"dosage_form" json:"dosage_form,omitempty"`
	Strength             *string    `db:"strength" json:"strength,omitempty"`
	ManufacturerID       *uuid.UUID `db:"manufacturer_id" json:"manufacturer_id,omitempty"`
	UOM                  string     `db:"uom" json:"uom"`
	ListPrice            float64    `db:"list_price" json:"list_price"`
	RequiresPrescription bool       `db:"requires_prescription" json:"requires_prescription"`
	ControlledSubstance  bool       `db:"controlled_substance" json:"controlled_substance"`
	ExpiryAlertDays      int        `db:"expiry_alert_days" json:"expiry_alert_days"`
	StorageCondition     *string    `db:"storage_condition" json:"storage_condition,omitempty"`
	SideEffects          *string    `db:"side_effects" json:"side_effects,omitempty"`
	Contraindications    *string    `db:"contraindications" json:"contraindications,omitempty"`
	ReorderLevel         float64    `db:"reorder_level" json:"reorder_level"`
	MaxStockLevel        float64    `db:"max_stock_level" json:"max_stock_level"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// Category is a node in the drug category tree.
type Category struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	Name     string     `db:"name" json:"name"`
	Code     *string    `db:"code" json:"code,omitempty"`
	ParentID *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
}

// Interaction severities, mildest to worst.
const (
	SeverityMinor           = "minor"
	SeverityModerate        = "moderate"
	SeverityMajor           = "major"
	SeverityContraindicated = "contraindicated"
)

// Interaction records a known interaction between two catalog drugs.
type Interaction struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Drug1ID     uuid.UUID `db:"drug_1_id" json:"drug_1_id"`
	Drug2ID     uuid.UUID `db:"drug_2_id" json:"drug_2_id"`
	Severity    string    `db:"severity" json:"severity"`
	Description *string   `db:"description" json:"description,omitempty"`
	Management  *string   `db:"management" json:"management,omitempty"`
}

// ValidDosageForm reports whether form is a known dosage form.
func ValidDosageForm(form string) bool {
	return validDosageForms[form]
}

// ValidSeverity reports whether s is a known interaction severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor, SeverityContraindicated:
		return true
	}
	return false
}

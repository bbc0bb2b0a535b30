package patient

import (
	"time"

	"github.com/google/uuid"
)

// Genders accepted on a patient record.
var validGenders = map[string]bool{
	"male": true, "female": true, "other": true, "unknown": true,
}

var validBloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

// Patient is a pharmacy patient record. PrescriptionCount and
// LastVisitDate are derived from the prescription ledger on read.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientNo         string     `db:"patient_no" json:"patient_no"`
	Name              string     `db:"name" json:"name"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	Email             *string    `db:"email" json:"email,omitempty"`
	BranchID          uuid.UUID  `db:"branch_id" json:"branch_id"`
	BloodGroup        *string    `db:"blood_group" json:"blood_group,omitempty"`
	Allergies         *string    `db:"allergies" json:"allergies,omitempty"`
	ChronicConditions *string    `db:"chronic_conditions" json:"chronic_conditions,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	Active            bool       `db:"active" json:"active"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`

	PrescriptionCount int        `db:"-" json:"prescription_count"`
	LastVisitDate     *time.Time `db:"-" json:"last_visit_date,omitempty"`
}

// Age returns the patient's age in whole years at now, or -1 when the
// date of birth is unknown.
func (p *Patient) Age(now time.Time) int {
	if p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	return years
}

// ValidGender reports whether g is a known gender value.
func ValidGender(g string) bool {
	return validGenders[g]
}

// ValidBloodGroup reports whether bg is a known blood group.
func ValidBloodGroup(bg string) bool {
	return validBloodGroups[bg]
}

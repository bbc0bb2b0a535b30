package stage

import (
	"time"

	"github.com/google/uuid"
)

// Stage is one configurable step in the pharmacy dispensing pipeline.
// Sequence defines the ordering within a branch; the behaviour flags tell
// the workflow engine which side effects to run when a prescription leaves
// the stage.
type Stage struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Sequence            int       `db:"sequence" json:"sequence"`
	BranchID            uuid.UUID `db:"branch_id" json:"branch_id"`
	IsVerificationStage bool      `db:"is_verification_stage" json:"is_verification_stage"`
	IsDispensingStage   bool      `db:"is_dispensing_stage" json:"is_dispensing_stage"`
	IsIssuedStage       bool      `db:"is_issued_stage" json:"is_issued_stage"`
	IsFinanceStage      bool      `db:"is_finance_stage" json:"is_finance_stage"`
	Fold                bool      `db:"fold" json:"fold"`
	Description         *string   `db:"description" json:"description,omitempty"`
	RequireApproval     bool      `db:"require_pharmacist_approval" json:"require_pharmacist_approval"`
	AutoNotify          bool      `db:"auto_send_notification" json:"auto_send_notification"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

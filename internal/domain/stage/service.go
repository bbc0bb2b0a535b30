package stage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/careone/pharmacy/internal/platform/apperr"
)

// Service owns stage configuration rules. Duplicate stage names and
// duplicate sequence values within a branch are rejected here, at
// configuration time, so the workflow engine never has to tie-break.
type Service struct {
	stages Repository
}

func NewService(stages Repository) *Service {
	return &Service{stages: stages}
}

func (s *Service) Create(ctx context.Context, st *Stage) error {
	if st.Name == "" {
		return apperr.Validation("name is required")
	}
	if st.BranchID == uuid.Nil {
		return apperr.Validation("branch_id is required")
	}
	if st.Sequence <= 0 {
		st.Sequence = 10
	}
	if err := s.checkConflicts(ctx, st); err != nil {
		return err
	}
	return s.stages.Create(ctx, st)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Stage, error) {
	return s.stages.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, st *Stage) error {
	if st.Name == "" {
		return apperr.Validation("name is required")
	}
	if err := s.checkConflicts(ctx, st); err != nil {
		return err
	}
	return s.stages.Update(ctx, st)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.stages.Delete(ctx, id)
}

// ListByBranch returns the branch's stages ordered by sequence.
func (s *Service) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*Stage, error) {
	return s.stages.ListByBranch(ctx, branchID)
}

// First returns the lowest-sequence stage for a branch, or nil when the
// branch has no configured stages.
func (s *Service) First(ctx context.Context, branchID uuid.UUID) (*Stage, error) {
	return s.stages.First(ctx, branchID)
}

// Next returns the stage with the smallest sequence strictly greater than
// afterSequence, or nil when the pipeline is complete.
func (s *Service) Next(ctx context.Context, branchID uuid.UUID, afterSequence int) (*Stage, error) {
	return s.stages.Next(ctx, branchID, afterSequence)
}

func (s *Service) checkConflicts(ctx context.Context, st *Stage) error {
	existing, err := s.stages.ListByBranch(ctx, st.BranchID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == st.ID {
			continue
		}
		if other.Name == st.Name {
			return apperr.Validation(fmt.Sprintf("stage %q already exists for this branch", st.Name))
		}
		if other.Sequence == st.Sequence {
			return apperr.Validation(fmt.Sprintf("sequence %d already used by stage %q in this branch", st.Sequence, other.Name))
		}
	}
	return nil
}

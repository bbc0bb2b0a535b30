package stage

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/careone/pharmacy/internal/platform/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	stages map[uuid.UUID]*Stage
}

func newMockRepo() *mockRepo {
	return &mockRepo{stages: make(map[uuid.UUID]*Stage)}
}

func (m *mockRepo) Create(_ context.Context, s *Stage) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.stages[s.ID] = s
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Stage, error) {
	s, ok := m.stages[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return s, nil
}

func (m *mockRepo) Update(_ context.Context, s *Stage) error {
	m.stages[s.ID] = s
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.stages, id)
	return nil
}

func (m *mockRepo) ListByBranch(_ context.Context, branchID uuid.UUID) ([]*Stage, error) {
	var result []*Stage
	for _, s := range m.stages {
		if s.BranchID == branchID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sequence < result[j].Sequence })
	return result, nil
}

func (m *mockRepo) First(ctx context.Context, branchID uuid.UUID) (*Stage, error) {
	stages, _ := m.ListByBranch(ctx, branchID)
	if len(stages) == 0 {
		return nil, nil
	}
	return stages[0], nil
}

func (m *mockRepo) Next(ctx context.Context, branchID uuid.UUID, afterSequence int) (*Stage, error) {
	stages, _ := m.ListByBranch(ctx, branchID)
	for _, s := range stages {
		if s.Sequence > afterSequence {
			return s, nil
		}
	}
	return nil, nil
}

// -- Tests --

func TestCreateStage(t *testing.T) {
	svc := NewService(newMockRepo())

	s := &Stage{Name: "Verification", BranchID: uuid.New()}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if s.Sequence != 10 {
		t.Errorf("expected default sequence 10, got %d", s.Sequence)
	}
}

func TestCreateStage_NameRequired(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.Create(context.Background(), &Stage{BranchID: uuid.New()})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for missing name, got %v", err)
	}
}

func TestCreateStage_DuplicateName(t *testing.T) {
	svc := NewService(newMockRepo())
	branch := uuid.New()

	if err := svc.Create(context.Background(), &Stage{Name: "Verification", BranchID: branch, Sequence: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := svc.Create(context.Background(), &Stage{Name: "Verification", BranchID: branch, Sequence: 20})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for duplicate name in branch, got %v", err)
	}
}

func TestCreateStage_DuplicateSequence(t *testing.T) {
	svc := NewService(newMockRepo())
	branch := uuid.New()

	if err := svc.Create(context.Background(), &Stage{Name: "Verification", BranchID: branch, Sequence: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := svc.Create(context.Background(), &Stage{Name: "Dispensing", BranchID: branch, Sequence: 10})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for duplicate sequence in branch, got %v", err)
	}
}

func TestCreateStage_SameNameDifferentBranch(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.Create(context.Background(), &Stage{Name: "Verification", BranchID: uuid.New()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Create(context.Background(), &Stage{Name: "Verification", BranchID: uuid.New()}); err != nil {
		t.Errorf("same name in another branch should be allowed, got %v", err)
	}
}

func TestUpdateStage_KeepsOwnSequence(t *testing.T) {
	svc := NewService(newMockRepo())
	branch := uuid.New()

	s := &Stage{Name: "Verification", BranchID: branch, Sequence: 10}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Updating a stage without changing its sequence must not trip the
	// conflict check against itself.
	s.Fold = true
	if err := svc.Update(context.Background(), s); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFirstAndNext(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	branch := uuid.New()
	ctx := context.Background()

	for i, name := range []string{"Verification", "Dispensing", "Finance"} {
		if err := svc.Create(ctx, &Stage{Name: name, BranchID: branch, Sequence: (i + 1) * 10}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	first, err := svc.First(ctx, branch)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first == nil || first.Name != "Verification" {
		t.Errorf("expected Verification first, got %+v", first)
	}

	next, err := svc.Next(ctx, branch, first.Sequence)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next == nil || next.Name != "Dispensing" {
		t.Errorf("expected Dispensing next, got %+v", next)
	}

	last, err := svc.Next(ctx, branch, 30)
	if err != nil {
		t.Fatalf("next after last: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil after the last stage, got %+v", last)
	}
}

func TestFirst_EmptyBranch(t *testing.T) {
	svc := NewService(newMockRepo())

	first, err := svc.First(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first != nil {
		t.Errorf("expected nil for a branch without stages, got %+v", first)
	}
}

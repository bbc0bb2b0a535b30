package stage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careone/pharmacy/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const stageCols = `id, name, sequence, branch_id,
	is_verification_stage, is_dispensing_stage, is_issued_stage, is_finance_stage,
	fold, description, require_pharmacist_approval, auto_send_notification,
	created_at, updated_at`

func scanStage(row pgx.Row) (*Stage, error) {
	var s Stage
	err := row.Scan(&s.ID, &s.Name, &s.Sequence, &s.BranchID,
		&s.IsVerificationStage, &s.IsDispensingStage, &s.IsIssuedStage, &s.IsFinanceStage,
		&s.Fold, &s.Description, &s.RequireApproval, &s.AutoNotify,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *Stage) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pharmacy_stage (id, name, sequence, branch_id,
			is_verification_stage, is_dispensing_stage, is_issued_stage, is_finance_stage,
			fold, description, require_pharmacist_approval, auto_send_notification)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		s.ID, s.Name, s.Sequence, s.BranchID,
		s.IsVerificationStage, s.IsDispensingStage, s.IsIssuedStage, s.IsFinanceStage,
		s.Fold, s.Description, s.RequireApproval, s.AutoNotify)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Stage, error) {
	return scanStage(r.conn(ctx).QueryRow(ctx,
		`SELECT `+stageCols+` FROM pharmacy_stage WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *Stage) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE pharmacy_stage SET name=$2, sequence=$3,
			is_verification_stage=$4, is_dispensing_stage=$5,
			is_issued_stage=$6, is_finance_stage=$7,
			fold=$8, description=$9, require_pharmacist_approval=$10,
			auto_send_notification=$11, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Sequence,
		s.IsVerificationStage, s.IsDispensingStage,
		s.IsIssuedStage, s.IsFinanceStage,
		s.Fold, s.Description, s.RequireApproval, s.AutoNotify)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM pharmacy_stage WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*Stage, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+stageCols+` FROM pharmacy_stage WHERE branch_id = $1 ORDER BY sequence, id`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repoPG) First(ctx context.Context, branchID uuid.UUID) (*Stage, error) {
	s, err := scanStage(r.conn(ctx).QueryRow(ctx,
		`SELECT `+stageCols+` FROM pharmacy_stage WHERE branch_id = $1 ORDER BY sequence, id LIMIT 1`, branchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *repoPG) Next(ctx context.Context, branchID uuid.UUID, afterSequence int) (*Stage, error) {
	s, err := scanStage(r.conn(ctx).QueryRow(ctx, `
		SELECT `+stageCols+` FROM pharmacy_stage
		WHERE branch_id = $1 AND sequence > $2
		ORDER BY sequence, id LIMIT 1`, branchID, afterSequence))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

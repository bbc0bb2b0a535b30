package inventory

import (
	"context"
	"time"

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

const batchCols = `id, drug_id, branch_id, batch_no, quantity, unit_cost, received_at, expiry_date, created_at`

func scanBatch(row pgx.Row) (*StockBatch, error) {
	var b StockBatch
	err := row.Scan(&b.ID, &b.DrugID, &b.BranchID, &b.BatchNo, &b.Quantity, &b.UnitCost,
		&b.ReceivedAt, &b.ExpiryDate, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repoPG) Create(ctx context.Context, b *StockBatch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO stock_batch (id, drug_id, branch_id, batch_no, quantity, unit_cost, received_at, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.DrugID, b.BranchID, b.BatchNo, b.Quantity, b.UnitCost, b.ReceivedAt, b.ExpiryDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*StockBatch, error) {
	return scanBatch(r.conn(ctx).QueryRow(ctx,
		`SELECT `+batchCols+` FROM stock_batch WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, b *StockBatch) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE stock_batch SET quantity=$2, unit_cost=$3, expiry_date=$4 WHERE id = $1`,
		b.ID, b.Quantity, b.UnitCost, b.ExpiryDate)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM stock_batch WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByDrug(ctx context.Context, drugID, branchID uuid.UUID) ([]*StockBatch, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+batchCols+` FROM stock_batch
		 WHERE drug_id = $1 AND branch_id = $2
		 ORDER BY expiry_date, id`, drugID, branchID)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

func (r *repoPG) ListExpiring(ctx context.Context, branchID uuid.UUID, cutoff time.Time) ([]*StockBatch, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+batchCols+` FROM stock_batch
		 WHERE branch_id = $1 AND expiry_date <= $2 AND quantity > 0
		 ORDER BY expiry_date, id`, branchID, cutoff)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

func collectBatches(rows pgx.Rows) ([]*StockBatch, error) {
	defer rows.Close()
	var out []*StockBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repoPG) Level(ctx context.Context, drugID, branchID uuid.UUID) (*StockLevel, error) {
	lvl := &StockLevel{DrugID: drugID, BranchID: branchID}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0), COUNT(*), MIN(expiry_date)
		FROM stock_batch WHERE drug_id = $1 AND branch_id = $2 AND quantity > 0`,
		drugID, branchID).
		Scan(&lvl.OnHand, &lvl.BatchCnt, &lvl.NextExpiry)
	if err != nil {
		return nil, err
	}
	return lvl, nil
}

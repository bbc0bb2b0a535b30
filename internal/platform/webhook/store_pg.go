package webhook

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

// PGStore persists endpoints and delivery logs so registrations survive a
// restart. Deliveries are append-mostly; RecordDelivery upserts by id so a
// retry overwrites the original attempt's row.
type PGStore struct{ pool *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

const endpointCols = `id, url, secret, events, branch_id, status, created_at`

func scanEndpoint(row pgx.Row) (*Endpoint, error) {
	var ep Endpoint
	err := row.Scan(&ep.ID, &ep.URL, &ep.Secret, &ep.Events, &ep.BranchID, &ep.Status, &ep.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (s *PGStore) CreateEndpoint(ctx context.Context, ep *Endpoint) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO webhook_endpoint (id, url, secret, events, branch_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ep.ID, ep.URL, ep.Secret, ep.Events, ep.BranchID, ep.Status, ep.CreatedAt)
	return err
}

func (s *PGStore) GetEndpoint(ctx context.Context, id uuid.UUID) (*Endpoint, error) {
	return scanEndpoint(s.conn(ctx).QueryRow(ctx,
		`SELECT `+endpointCols+` FROM webhook_endpoint WHERE id = $1`, id))
}

// ListEndpoints filters by branch; an unscoped endpoint (NULL branch_id)
// matches every branch, and uuid.Nil returns all endpoints.
func (s *PGStore) ListEndpoints(ctx context.Context, branchID uuid.UUID, limit, offset int) ([]*Endpoint, int, error) {
	// NULL branch_id scopes the filter, not the row: an unscoped endpoint
	// belongs to every branch.
	where := `WHERE $3::uuid IS NULL OR branch_id IS NULL OR branch_id = $3`
	var branch *uuid.UUID
	if branchID != uuid.Nil {
		branch = &branchID
	}

	var total int
	if err := s.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM webhook_endpoint `+
			`WHERE $1::uuid IS NULL OR branch_id IS NULL OR branch_id = $1`,
		branch).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.conn(ctx).Query(ctx,
		`SELECT `+endpointCols+` FROM webhook_endpoint `+where+
			` ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset, branch)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*Endpoint{}
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ep)
	}
	return out, total, rows.Err()
}

func (s *PGStore) UpdateEndpoint(ctx context.Context, ep *Endpoint) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE webhook_endpoint SET url=$2, secret=$3, events=$4, branch_id=$5, status=$6
		WHERE id = $1`,
		ep.ID, ep.URL, ep.Secret, ep.Events, ep.BranchID, ep.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PGStore) DeleteEndpoint(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM webhook_endpoint WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const deliveryCols = `id, endpoint_id, event_type, event_id, payload, signature,
	status_code, response_body, duration_ns, attempt, status, error, created_at`

func scanDelivery(row pgx.Row) (*Delivery, error) {
	var d Delivery
	var durationNS int64
	err := row.Scan(&d.ID, &d.EndpointID, &d.EventType, &d.EventID, &d.Payload, &d.Signature,
		&d.StatusCode, &d.ResponseBody, &durationNS, &d.Attempt, &d.Status, &d.Error, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Duration = time.Duration(durationNS)
	return &d, nil
}

func (s *PGStore) RecordDelivery(ctx context.Context, d *Delivery) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO webhook_delivery (id, endpoint_id, event_type, event_id, payload, signature,
			status_code, response_body, duration_ns, attempt, status, error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			status_code=EXCLUDED.status_code, response_body=EXCLUDED.response_body,
			duration_ns=EXCLUDED.duration_ns, attempt=EXCLUDED.attempt,
			status=EXCLUDED.status, error=EXCLUDED.error`,
		d.ID, d.EndpointID, d.EventType, d.EventID, d.Payload, d.Signature,
		d.StatusCode, d.ResponseBody, int64(d.Duration), d.Attempt, d.Status, d.Error, d.CreatedAt)
	return err
}

func (s *PGStore) ListDeliveries(ctx context.Context, endpointID uuid.UUID, limit, offset int) ([]*Delivery, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM webhook_delivery WHERE endpoint_id = $1`, endpointID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.conn(ctx).Query(ctx,
		`SELECT `+deliveryCols+` FROM webhook_delivery
		WHERE endpoint_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		endpointID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (s *PGStore) GetDelivery(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	return scanDelivery(s.conn(ctx).QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM webhook_delivery WHERE id = $1`, id))
}

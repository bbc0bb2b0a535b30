package billing

import (
	"context"
	"errors"
	"fmt"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Order Repository ===========

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository {
	return &orderRepoPG{pool: pool}
}

const orderCols = `id, reference, customer_id, order_date, origin, status,
	amount_total, is_pharmacy_sale, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*SaleOrder, error) {
	var o SaleOrder
	err := row.Scan(&o.ID, &o.Reference, &o.CustomerID, &o.OrderDate, &o.Origin, &o.Status,
		&o.AmountTotal, &o.IsPharmacySale, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepoPG) Create(ctx context.Context, o *SaleOrder) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO sale_order (id, reference, customer_id, order_date, origin, status,
			amount_total, is_pharmacy_sale, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.Reference, o.CustomerID, o.OrderDate, o.Origin, o.Status,
		o.AmountTotal, o.IsPharmacySale, o.CreatedBy)
	if err != nil {
		return err
	}
	for _, l := range o.Lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.OrderID = o.ID
		_, err := q.Exec(ctx, `
			INSERT INTO sale_order_line (id, order_id, drug_id, description, quantity, uom, unit_price, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			l.ID, l.OrderID, l.DrugID, l.Description, l.Quantity, l.UOM, l.UnitPrice, l.Subtotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*SaleOrder, error) {
	q := conn(ctx, r.pool)
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderCols+` FROM sale_order WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, order_id, drug_id, description, quantity, uom, unit_price, subtotal
		FROM sale_order_line WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l SaleOrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.DrugID, &l.Description, &l.Quantity, &l.UOM, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, &l)
	}
	return o, rows.Err()
}

func (r *orderRepoPG) Update(ctx context.Context, o *SaleOrder) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE sale_order SET status=$2, amount_total=$3, updated_at=NOW() WHERE id = $1`,
		o.ID, o.Status, o.AmountTotal)
	return err
}

func (r *orderRepoPG) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*SaleOrder, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM sale_order WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+orderCols+` FROM sale_order
		WHERE customer_id = $1 ORDER BY order_date DESC, id DESC LIMIT $2 OFFSET $3`,
		customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*SaleOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *orderRepoPG) NextReference(ctx context.Context) (string, error) {
	var n int64
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT nextval('sale_order_reference_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("SO%05d", n), nil
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepoPG{pool: pool}
}

const invoiceCols = `id, reference, order_id, customer_id, invoice_date, amount_total, status, created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Reference, &inv.OrderID, &inv.CustomerID,
		&inv.InvoiceDate, &inv.AmountTotal, &inv.Status, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO invoice (id, reference, order_id, customer_id, invoice_date, amount_total, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		inv.ID, inv.Reference, inv.OrderID, inv.CustomerID, inv.InvoiceDate, inv.AmountTotal, inv.Status)
	return err
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
}

func (r *invoiceRepoPG) GetByOrder(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	return scanInvoice(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE order_id = $1`, orderID))
}

func (r *invoiceRepoPG) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoice WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+invoiceCols+` FROM invoice
		WHERE customer_id = $1 ORDER BY invoice_date DESC, id DESC LIMIT $2 OFFSET $3`,
		customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *invoiceRepoPG) NextReference(ctx context.Context) (string, error) {
	var n int64
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT nextval('invoice_reference_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("INV%05d", n), nil
}

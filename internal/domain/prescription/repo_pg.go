package prescription

import (
	"context"
	"fmt"
	"strings"

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

// =========== Prescription Repository ===========

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

const prescriptionCols = `id, reference, patient_id, branch_id, date, stage_id, status,
	prescriber_id, diagnosis, notes, total_amount, sale_order_id, invoice_id,
	pharmacist_id, verified_by, verified_date, dispensed_by, dispensed_date,
	priority, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.Reference, &p.PatientID, &p.BranchID, &p.Date, &p.StageID, &p.Status,
		&p.PrescriberID, &p.Diagnosis, &p.Notes, &p.TotalAmount, &p.SaleOrderID, &p.InvoiceID,
		&p.PharmacistID, &p.VerifiedBy, &p.VerifiedDate, &p.DispensedBy, &p.DispensedDate,
		&p.Priority, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (id, reference, patient_id, branch_id, date, stage_id, status,
			prescriber_id, diagnosis, notes, total_amount, pharmacist_id, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.Reference, p.PatientID, p.BranchID, p.Date, p.StageID, p.Status,
		p.PrescriberID, p.Diagnosis, p.Notes, p.TotalAmount, p.PharmacistID, p.Priority)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) GetByReference(ctx context.Context, reference string) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE reference = $1`, reference))
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET stage_id=$2, status=$3, prescriber_id=$4, diagnosis=$5,
			notes=$6, total_amount=$7, sale_order_id=$8, invoice_id=$9,
			verified_by=$10, verified_date=$11, dispensed_by=$12, dispensed_date=$13,
			priority=$14, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.StageID, p.Status, p.PrescriberID, p.Diagnosis,
		p.Notes, p.TotalAmount, p.SaleOrderID, p.InvoiceID,
		p.VerifiedBy, p.VerifiedDate, p.DispensedBy, p.DispensedDate,
		p.Priority)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+prescriptionCols+` FROM prescription
		WHERE patient_id = $1 ORDER BY date DESC, id DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := collectPrescriptions(rows)
	return out, total, err
}

var prescriptionSearchCols = map[string]string{
	"status":    "status",
	"branch_id": "branch_id",
	"stage_id":  "stage_id",
	"priority":  "priority",
	"reference": "reference",
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Prescription, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	for key, col := range prescriptionSearchCols {
		if v, ok := params[key]; ok {
			args = append(args, v)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM prescription WHERE %s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`,
		prescriptionCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := collectPrescriptions(rows)
	return out, total, err
}

func collectPrescriptions(rows pgx.Rows) ([]*Prescription, error) {
	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// NextReference draws from a dedicated Postgres sequence so codes are
// unique across concurrent creations.
func (r *repoPG) NextReference(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT nextval('prescription_reference_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("PH%05d", n), nil
}

func (r *repoPG) AddNote(ctx context.Context, n *Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription_note (id, prescription_id, body, author_id)
		VALUES ($1,$2,$3,$4)`,
		n.ID, n.PrescriptionID, n.Body, n.AuthorID)
	return err
}

func (r *repoPG) ListNotes(ctx context.Context, prescriptionID uuid.UUID) ([]*Note, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, prescription_id, body, author_id, created_at
		FROM prescription_note WHERE prescription_id = $1 ORDER BY created_at, id`,
		prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.PrescriptionID, &n.Body, &n.AuthorID, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// =========== Line Repository ===========

type lineRepoPG struct{ pool *pgxpool.Pool }

func NewLineRepoPG(pool *pgxpool.Pool) LineRepository {
	return &lineRepoPG{pool: pool}
}

func (r *lineRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const lineCols = `id, prescription_id, drug_id, drug_name, uom, quantity, dosage,
	frequency, frequency_duration, start_date, end_date, expected_next_visit,
	route_of_administration, instructions, is_dispensed, dispensed_quantity,
	dispensed_by, dispensed_date, refills_allowed, refills_remaining,
	unit_price, subtotal, notes, created_at, updated_at`

func scanLine(row pgx.Row) (*Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.PrescriptionID, &l.DrugID, &l.DrugName, &l.UOM, &l.Quantity, &l.Dosage,
		&l.Frequency, &l.FrequencyDuration, &l.StartDate, &l.EndDate, &l.ExpectedNextVisit,
		&l.Route, &l.Instructions, &l.IsDispensed, &l.DispensedQuantity,
		&l.DispensedBy, &l.DispensedDate, &l.RefillsAllowed, &l.RefillsRemaining,
		&l.UnitPrice, &l.Subtotal, &l.Notes, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *lineRepoPG) Create(ctx context.Context, l *Line) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription_line (id, prescription_id, drug_id, drug_name, uom, quantity,
			dosage, frequency, frequency_duration, start_date, end_date, expected_next_visit,
			route_of_administration, instructions, refills_allowed, refills_remaining,
			unit_price, subtotal, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		l.ID, l.PrescriptionID, l.DrugID, l.DrugName, l.UOM, l.Quantity,
		l.Dosage, l.Frequency, l.FrequencyDuration, l.StartDate, l.EndDate, l.ExpectedNextVisit,
		l.Route, l.Instructions, l.RefillsAllowed, l.RefillsRemaining,
		l.UnitPrice, l.Subtotal, l.Notes)
	return err
}

func (r *lineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Line, error) {
	return scanLine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+lineCols+` FROM prescription_line WHERE id = $1`, id))
}

func (r *lineRepoPG) Update(ctx context.Context, l *Line) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription_line SET quantity=$2, dosage=$3, frequency=$4, frequency_duration=$5,
			start_date=$6, end_date=$7, expected_next_visit=$8, route_of_administration=$9,
			instructions=$10, is_dispensed=$11, dispensed_quantity=$12, dispensed_by=$13,
			dispensed_date=$14, refills_allowed=$15, refills_remaining=$16,
			unit_price=$17, subtotal=$18, notes=$19, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.Quantity, l.Dosage, l.Frequency, l.FrequencyDuration,
		l.StartDate, l.EndDate, l.ExpectedNextVisit, l.Route,
		l.Instructions, l.IsDispensed, l.DispensedQuantity, l.DispensedBy,
		l.DispensedDate, l.RefillsAllowed, l.RefillsRemaining,
		l.UnitPrice, l.Subtotal, l.Notes)
	return err
}

func (r *lineRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription_line WHERE id = $1`, id)
	return err
}

func (r *lineRepoPG) ListByPrescription(ctx context.Context, prescriptionID uuid.UUID) ([]*Line, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+lineCols+` FROM prescription_line WHERE prescription_id = $1 ORDER BY created_at, id`,
		prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

package patient

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

const patientCols = `id, patient_no, name, date_of_birth, gender, phone, email,
	branch_id, blood_group, allergies, chronic_conditions, notes, active,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientNo, &p.Name, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
		&p.BranchID, &p.BloodGroup, &p.Allergies, &p.ChronicConditions, &p.Notes, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, patient_no, name, date_of_birth, gender, phone, email,
			branch_id, blood_group, allergies, chronic_conditions, notes, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.PatientNo, p.Name, p.DateOfBirth, p.Gender, p.Phone, p.Email,
		p.BranchID, p.BloodGroup, p.Allergies, p.ChronicConditions, p.Notes, p.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET name=$2, date_of_birth=$3, gender=$4, phone=$5, email=$6,
			branch_id=$7, blood_group=$8, allergies=$9, chronic_conditions=$10,
			notes=$11, active=$12, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.Phone, p.Email,
		p.BranchID, p.BloodGroup, p.Allergies, p.ChronicConditions,
		p.Notes, p.Active)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

var patientSearchCols = map[string]string{
	"branch_id":  "branch_id",
	"gender":     "gender",
	"patient_no": "patient_no",
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	where := []string{"active = true"}
	args := []interface{}{}
	for key, col := range patientSearchCols {
		if v, ok := params[key]; ok {
			args = append(args, v)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	if v, ok := params["name"]; ok {
		args = append(args, "%"+v+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM patient WHERE %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		patientCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repoPG) NextPatientNo(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('patient_no_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("PT%05d", n), nil
}

func (r *repoPG) VisitStats(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*), MAX(created_at)
		FROM prescription WHERE patient_id = $1`, p.ID).
		Scan(&p.PrescriptionCount, &p.LastVisitDate)
}

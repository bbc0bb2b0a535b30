package catalog

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Drug Repository ===========

type drugRepoPG struct{ pool *pgxpool.Pool }

func NewDrugRepoPG(pool *pgxpool.Pool) DrugRepository {
	return &drugRepoPG{pool: pool}
}

const drugCols = `id, name, category_id, active_ingredient, dosage_form, strength,
	manufacturer_id, uom, list_price, requires_prescription, controlled_substance,
	expiry_alert_days, storage_condition, side_effects, contraindications,
	reorder_level, max_stock_level, created_at, updated_at`

func scanDrug(row pgx.Row) (*Drug, error) {
	var d Drug
	err := row.Scan(&d.ID, &d.Name, &d.CategoryID, &d.ActiveIngredient, &d.DosageForm, &d.Strength,
		&d.ManufacturerID, &d.UOM, &d.ListPrice, &d.RequiresPrescription, &d.ControlledSubstance,
		&d.ExpiryAlertDays, &d.StorageCondition, &d.SideEffects, &d.Contraindications,
		&d.ReorderLevel, &d.MaxStockLevel, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *drugRepoPG) Create(ctx context.Context, d *Drug) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO drug (id, name, category_id, active_ingredient, dosage_form, strength,
			manufacturer_id, uom, list_price, requires_prescription, controlled_substance,
			expiry_alert_days, storage_condition, side_effects, contraindications,
			reorder_level, max_stock_level)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		d.ID, d.Name, d.CategoryID, d.ActiveIngredient, d.DosageForm, d.Strength,
		d.ManufacturerID, d.UOM, d.ListPrice, d.RequiresPrescription, d.ControlledSubstance,
		d.ExpiryAlertDays, d.StorageCondition, d.SideEffects, d.Contraindications,
		d.ReorderLevel, d.MaxStockLevel)
	return err
}

func (r *drugRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return scanDrug(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+drugCols+` FROM drug WHERE id = $1`, id))
}

func (r *drugRepoPG) Update(ctx context.Context, d *Drug) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE drug SET name=$2, category_id=$3, active_ingredient=$4, dosage_form=$5,
			strength=$6, manufacturer_id=$7, uom=$8, list_price=$9,
			requires_prescription=$10, controlled_substance=$11, expiry_alert_days=$12,
			storage_condition=$13, side_effects=$14, contraindications=$15,
			reorder_level=$16, max_stock_level=$17, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.CategoryID, d.ActiveIngredient, d.DosageForm,
		d.Strength, d.ManufacturerID, d.UOM, d.ListPrice,
		d.RequiresPrescription, d.ControlledSubstance, d.ExpiryAlertDays,
		d.StorageCondition, d.SideEffects, d.Contraindications,
		d.ReorderLevel, d.MaxStockLevel)
	return err
}

func (r *drugRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM drug WHERE id = $1`, id)
	return err
}

var drugSearchCols = map[string]string{
	"category_id":          "category_id",
	"dosage_form":          "dosage_form",
	"controlled_substance": "controlled_substance",
}

func (r *drugRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Drug, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	for key, col := range drugSearchCols {
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

	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM drug WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM drug WHERE %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		drugCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Drug
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// =========== Category Repository ===========

type categoryRepoPG struct{ pool *pgxpool.Pool }

func NewCategoryRepoPG(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepoPG{pool: pool}
}

func (r *categoryRepoPG) Create(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO drug_category (id, name, code, parent_id) VALUES ($1,$2,$3,$4)`,
		c.ID, c.Name, c.Code, c.ParentID)
	return err
}

func (r *categoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, code, parent_id FROM drug_category WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Code, &c.ParentID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepoPG) List(ctx context.Context) ([]*Category, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT id, name, code, parent_id FROM drug_category ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.ParentID); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *categoryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM drug_category WHERE id = $1`, id)
	return err
}

// =========== Interaction Repository ===========

type interactionRepoPG struct{ pool *pgxpool.Pool }

func NewInteractionRepoPG(pool *pgxpool.Pool) InteractionRepository {
	return &interactionRepoPG{pool: pool}
}

func (r *interactionRepoPG) Create(ctx context.Context, i *Interaction) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO drug_interaction (id, drug_1_id, drug_2_id, severity, description, management)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		i.ID, i.Drug1ID, i.Drug2ID, i.Severity, i.Description, i.Management)
	return err
}

func (r *interactionRepoPG) ListForDrug(ctx context.Context, drugID uuid.UUID) ([]*Interaction, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, drug_1_id, drug_2_id, severity, description, management
		FROM drug_interaction WHERE drug_1_id = $1 OR drug_2_id = $1`, drugID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Interaction
	for rows.Next() {
		var i Interaction
		if err := rows.Scan(&i.ID, &i.Drug1ID, &i.Drug2ID, &i.Severity, &i.Description, &i.Management); err != nil {
			return nil, err
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}

func (r *interactionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM drug_interaction WHERE id = $1`, id)
	return err
}

package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type tokenStorePG struct{ pool *pgxpool.Pool }

// NewTokenStorePG returns a TokenStore backed by Postgres.
func NewTokenStorePG(pool *pgxpool.Pool) TokenStore {
	return &tokenStorePG{pool: pool}
}

const tokenCols = `id, name, token_hash, user_id, active, scope,
	expiry_date, last_used, usage_count, ip_whitelist, notes, created_at`

func scanToken(row pgx.Row) (*APIToken, error) {
	var t APIToken
	err := row.Scan(&t.ID, &t.Name, &t.TokenHash, &t.UserID, &t.Active, &t.Scope,
		&t.ExpiryDate, &t.LastUsed, &t.UsageCount, &t.IPWhitelist, &t.Notes, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *tokenStorePG) Create(ctx context.Context, t *APIToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_token (id, name, token_hash, user_id, active, scope,
			expiry_date, ip_whitelist, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.Name, t.TokenHash, t.UserID, t.Active, t.Scope,
		t.ExpiryDate, t.IPWhitelist, t.Notes)
	return err
}

func (s *tokenStorePG) GetByHash(ctx context.Context, hash string) (*APIToken, error) {
	return scanToken(s.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM api_token WHERE token_hash = $1`, hash))
}

func (s *tokenStorePG) GetByID(ctx context.Context, id uuid.UUID) (*APIToken, error) {
	return scanToken(s.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM api_token WHERE id = $1`, id))
}

func (s *tokenStorePG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*APIToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenCols+` FROM api_token WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*APIToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *tokenStorePG) Update(ctx context.Context, t *APIToken) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE api_token SET name=$2, active=$3, scope=$4, expiry_date=$5,
			last_used=$6, usage_count=$7, ip_whitelist=$8, notes=$9
		WHERE id = $1`,
		t.ID, t.Name, t.Active, t.Scope, t.ExpiryDate,
		t.LastUsed, t.UsageCount, t.IPWhitelist, t.Notes)
	return err
}

func (s *tokenStorePG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM api_token WHERE id = $1`, id)
	return err
}

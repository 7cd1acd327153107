package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/models"
)

// PostgresRepository backs the registry with a refresh_tokens table.
// Scopes are stored space-joined; scope names contain no whitespace.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {

	query :=
		`INSERT INTO refresh_tokens (token, user_id, scopes, expires_at, active, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)
		 `

	_, err := r.db.ExecContext(ctx, query,
		token.Token, token.UserID, strings.Join(token.Scopes, " "),
		token.ExpiresAt, token.Active, token.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {

	query :=
		`SELECT token, user_id, scopes, expires_at, active, created_at
		 FROM refresh_tokens
		 WHERE token = $1
		 `

	rec := &models.RefreshToken{}
	var scopes string
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rec.Token, &rec.UserID, &scopes, &rec.ExpiresAt, &rec.Active, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if scopes != "" {
		rec.Scopes = strings.Split(scopes, " ")
	}

	return rec, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, token string) (bool, error) {

	query := `UPDATE refresh_tokens SET active = false WHERE token = $1 AND active`

	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return affected > 0, nil
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {

	query := `UPDATE refresh_tokens SET active = false WHERE user_id = $1 AND active`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return int(affected), nil
}

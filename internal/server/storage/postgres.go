package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/tranqh/studymate/internal/server/migrations"
	"github.com/tranqh/studymate/internal/server/refreshtokens"
	"github.com/tranqh/studymate/internal/server/users"
)

// PostgresManager backs the repositories with a Postgres database accessed
// through the pgx stdlib driver.
type PostgresManager struct {
	db            *sql.DB
	users         users.Repository
	refreshTokens refreshtokens.Repository
}

func NewPostgresManager(dsn string) (*PostgresManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresManager{
		db:            db,
		users:         users.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
	}, nil
}

func (m *PostgresManager) Users() users.Repository {
	return m.users
}

func (m *PostgresManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

// SetRefreshTokens swaps the refresh token registry, e.g. for a Redis-backed
// one. Must be called before the repositories are handed out.
func (m *PostgresManager) SetRefreshTokens(r refreshtokens.Repository) {
	m.refreshTokens = r
}

func (m *PostgresManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

func (m *PostgresManager) Close() error {
	return m.db.Close()
}

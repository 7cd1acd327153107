// Package storage selects and wires the persistence backends behind the
// repository interfaces. The in-memory manager backs tests and local runs,
// the Postgres manager backs production, and Redis can take over the refresh
// token registry for either.
package storage

import (
	"context"

	"github.com/tranqh/studymate/internal/server/refreshtokens"
	"github.com/tranqh/studymate/internal/server/users"
)

// Manager hands out the repositories of one persistence backend.
type Manager interface {
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	RunMigrations(ctx context.Context) error
	Close() error
}

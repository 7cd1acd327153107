// Package refreshtokens declares the registry contract for opaque refresh
// tokens and provides in-memory, Postgres, and Redis implementations.
package refreshtokens

import (
	"context"

	"github.com/tranqh/studymate/internal/server/models"
)

// Repository is the pluggable refresh-token store. Records reference a user
// id weakly: implementations must tolerate the user being deactivated or
// absent. All operations must be safe for concurrent use.
type Repository interface {
	// Create stores a new active record.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks a record up by its opaque token value without mutating it.
	// Absence is reported as common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke sets active=false and reports whether a change was made.
	// Revoking an absent or already-revoked token returns false, never an
	// error.
	Revoke(ctx context.Context, token string) (bool, error)

	// RevokeAllForUser deactivates every active record owned by userID and
	// returns the number changed.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}

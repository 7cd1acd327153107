// Package users implements the user directory: the repository contract,
// its in-memory and Postgres implementations, and the directory service.
package users

import (
	"context"

	"github.com/tranqh/studymate/internal/server/models"
)

// Repository is the pluggable user-record store. Implementations must keep
// username and email unique across all live records and must be safe for
// concurrent use.
type Repository interface {
	// Create stores a new record. Returns common.ErrorAlreadyExists when the
	// username or email is already taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUserName looks a record up by exact username. Absence is reported
	// as common.ErrorNotFound.
	GetByUserName(ctx context.Context, userName string) (*models.User, error)

	// GetByID looks a record up by its stable identifier.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Update replaces the stored record with the same ID.
	Update(ctx context.Context, user *models.User) (*models.User, error)

	// List returns all records.
	List(ctx context.Context) ([]*models.User, error)
}

package storage

import (
	"context"

	"github.com/tranqh/studymate/internal/server/refreshtokens"
	"github.com/tranqh/studymate/internal/server/users"
)

// MemoryManager keeps everything in process memory. State is lost on
// restart.
type MemoryManager struct {
	users         *users.MemoryRepository
	refreshTokens refreshtokens.Repository
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *MemoryManager) Users() users.Repository {
	return m.users
}

func (m *MemoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

// SetRefreshTokens swaps the refresh token registry, e.g. for a Redis-backed
// one. Must be called before the repositories are handed out.
func (m *MemoryManager) SetRefreshTokens(r refreshtokens.Repository) {
	m.refreshTokens = r
}

func (m *MemoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *MemoryManager) Close() error {
	return nil
}

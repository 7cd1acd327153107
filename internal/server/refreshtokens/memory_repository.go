package refreshtokens

import (
	"context"
	"sync"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/models"
)

// MemoryRepository is a mutex-guarded in-memory registry. Expired records
// are not swept proactively; the session layer detects expiry at redeem
// time and revokes lazily.
type MemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]*models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]*models.RefreshToken)}
}

func (r *MemoryRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *token
	stored.Scopes = append([]string(nil), token.Scopes...)
	r.tokens[stored.Token] = &stored

	return nil
}

func (r *MemoryRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyToken(rec), nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tokens[token]
	if !ok || !rec.Active {
		return false, nil
	}
	rec.Active = false

	return true, nil
}

func (r *MemoryRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, rec := range r.tokens {
		if rec.UserID == userID && rec.Active {
			rec.Active = false
			count++
		}
	}

	return count, nil
}

func copyToken(t *models.RefreshToken) *models.RefreshToken {
	c := *t
	c.Scopes = append([]string(nil), t.Scopes...)
	return &c
}

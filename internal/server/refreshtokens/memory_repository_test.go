package refreshtokens

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/models"
)

func newToken(token, userID string, ttl time.Duration) *models.RefreshToken {
	now := time.Now().UTC()
	return &models.RefreshToken{
		Token:     token,
		UserID:    userID,
		Scopes:    []string{"read"},
		ExpiresAt: now.Add(ttl),
		Active:    true,
		CreatedAt: now,
	}
}

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newToken("t1", "u1", time.Hour)))

	rec, err := r.Find(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.True(t, rec.Active)
	assert.Equal(t, []string{"read"}, rec.Scopes)

	_, err = r.Find(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_FindReturnsCopy(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newToken("t1", "u1", time.Hour)))

	rec, err := r.Find(ctx, "t1")
	require.NoError(t, err)
	rec.Active = false
	rec.Scopes[0] = "admin"

	again, err := r.Find(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, again.Active)
	assert.Equal(t, []string{"read"}, again.Scopes)
}

func TestMemoryRepository_RevokeIsIdempotent(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newToken("t1", "u1", time.Hour)))

	changed, err := r.Revoke(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, changed)

	// second revocation reports no change, never errors
	changed, err = r.Revoke(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = r.Revoke(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, changed)

	rec, err := r.Find(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, rec.Active)
}

func TestMemoryRepository_RevokeAllForUser_TouchesOnlyOwner(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newToken("t1", "u1", time.Hour)))
	require.NoError(t, r.Create(ctx, newToken("t2", "u1", time.Hour)))
	require.NoError(t, r.Create(ctx, newToken("t3", "u2", time.Hour)))

	// one of u1's tokens is already revoked and must not be counted again
	_, err := r.Revoke(ctx, "t2")
	require.NoError(t, err)

	count, err := r.RevokeAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	other, err := r.Find(ctx, "t3")
	require.NoError(t, err)
	assert.True(t, other.Active, "tokens of other users stay active")
}

// Each registry operation is atomic on its own, but nothing orders a
// RevokeAllForUser against a token created concurrently with it: a login
// racing a logout-everywhere may leave its fresh token either active or
// revoked. The test only demands that the registry stays consistent
// under the race, not a particular winner.
func TestMemoryRepository_ConcurrentRevokeAllAndCreate(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	const n = 32
	require.NoError(t, r.Create(ctx, newToken("seed", "u1", time.Hour)))

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_ = r.Create(ctx, newToken(fmt.Sprintf("t%d", i), "u1", time.Hour))
			case 1:
				_, _ = r.Revoke(ctx, "seed")
			case 2:
				_, _ = r.RevokeAllForUser(ctx, "u1")
			default:
				_, _ = r.Find(ctx, "seed")
			}
		}(i)
	}
	wg.Wait()

	// the seed token saw at least one revocation, so it must end inactive
	rec, err := r.Find(ctx, "seed")
	require.NoError(t, err)
	assert.False(t, rec.Active)

	// every created token is findable and internally consistent
	for i := 0; i < n; i += 4 {
		rec, err := r.Find(ctx, fmt.Sprintf("t%d", i))
		require.NoError(t, err)
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, []string{"read"}, rec.Scopes)
	}
}

package refreshtokens

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/models"
)

const (
	tokenKeyPrefix   = "refresh:"
	userSetKeyPrefix = "refresh:user:"
)

// RedisRepository backs the registry with Redis hashes, one per token, plus
// a per-user set of token ids for bulk revocation. The hash key expires at
// the record's natural expiry, so Redis evicts stale records on its own and
// a redeem after expiry observes "not found", the same uniform outcome the
// session layer reports anyway.
type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func tokenKey(token string) string    { return tokenKeyPrefix + token }
func userSetKey(userID string) string { return userSetKeyPrefix + userID }

func (r *RedisRepository) Create(ctx context.Context, token *models.RefreshToken) error {

	key := tokenKey(token.Token)

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"user_id":    token.UserID,
		"scopes":     strings.Join(token.Scopes, " "),
		"expires_at": token.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"active":     boolField(token.Active),
		"created_at": token.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.ExpireAt(ctx, key, token.ExpiresAt)
	pipe.SAdd(ctx, userSetKey(token.UserID), token.Token)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}

func (r *RedisRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {

	fields, err := r.rdb.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("redis error: bad expires_at: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("redis error: bad created_at: %w", err)
	}

	rec := &models.RefreshToken{
		Token:     token,
		UserID:    fields["user_id"],
		ExpiresAt: expiresAt,
		Active:    fields["active"] == "1",
		CreatedAt: createdAt,
	}
	if fields["scopes"] != "" {
		rec.Scopes = strings.Split(fields["scopes"], " ")
	}

	return rec, nil
}

func (r *RedisRepository) Revoke(ctx context.Context, token string) (bool, error) {

	key := tokenKey(token)

	active, err := r.rdb.HGet(ctx, key, "active").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	if active != "1" {
		return false, nil
	}

	if err := r.rdb.HSet(ctx, key, "active", "0").Err(); err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	return true, nil
}

func (r *RedisRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {

	setKey := userSetKey(userID)

	tokens, err := r.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}

	count := 0
	for _, token := range tokens {
		changed, err := r.Revoke(ctx, token)
		if err != nil {
			return count, err
		}
		if changed {
			count++
			continue
		}
		// expired records are evicted by Redis; drop the dangling set member
		exists, err := r.rdb.Exists(ctx, tokenKey(token)).Result()
		if err != nil {
			return count, fmt.Errorf("redis error: %w", err)
		}
		if exists == 0 {
			_ = r.rdb.SRem(ctx, setKey, token).Err()
		}
	}

	return count, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Package sessions orchestrates the credential components: login mints an
// access/refresh pair, refresh redeems a registry record for a fresh access
// token, logout revokes refresh credentials.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/auth"
	"github.com/tranqh/studymate/internal/server/models"
	"github.com/tranqh/studymate/internal/server/refreshtokens"
	"github.com/tranqh/studymate/internal/server/users"
)

// TokenBundle is what a successful login or refresh returns to the client.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime, seconds
}

type Service struct {
	users                *users.Service
	refreshTokens        refreshtokens.Repository
	jwtSecret            []byte
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration
}

func NewService(us *users.Service, rt refreshtokens.Repository, secretKey string, accessValidity, refreshValidity time.Duration) *Service {
	return &Service{
		users:                us,
		refreshTokens:        rt,
		jwtSecret:            []byte(secretKey),
		accessTokenValidity:  accessValidity,
		refreshTokenValidity: refreshValidity,
	}
}

// Login authenticates the credentials and issues an access token carrying
// the requested scopes plus a new refresh token. Bad credentials yield
// common.ErrorUnauthorized; a deactivated account yields
// common.ErrAccountDisabled.
//
// Scopes are trusted from the request here; restricting them per user is a
// known hardening gap of this design.
func (s *Service) Login(ctx context.Context, userName, password string, scopes []string) (*TokenBundle, error) {

	user, err := s.users.Authenticate(ctx, userName, password)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, common.ErrAccountDisabled
	}

	return s.issueTokenPair(ctx, user, scopes)
}

// Refresh redeems a refresh token for a fresh access token. Every redeem
// failure (unknown, expired, revoked) collapses into common.ErrInvalidToken
// so the caller cannot probe the registry; a deactivated owner yields
// common.ErrAccountDisabled. The same refresh token id is echoed back:
// records are not rotated on use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error) {

	rec, err := s.redeem(ctx, refreshToken)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		// the registry holds a weak reference; the owner may be gone
		return nil, common.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, common.ErrAccountDisabled
	}

	// scopes granted at login are carried forward
	accessToken, err := auth.GenerateToken(user.UserName, user.ID, rec.Scopes, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenBundle{
		AccessToken:  accessToken,
		RefreshToken: rec.Token,
		ExpiresIn:    int(s.accessTokenValidity.Seconds()),
	}, nil
}

// redeem validates a registry record without consuming it. Internal errors
// stay distinct (not found / expired / revoked); callers must collapse them
// before crossing the API boundary. Expiry is detected lazily here and the
// record revoked as a side effect.
func (s *Service) redeem(ctx context.Context, refreshToken string) (*models.RefreshToken, error) {

	rec, err := s.refreshTokens.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if time.Now().After(rec.ExpiresAt) {
		_, _ = s.refreshTokens.Revoke(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	if !rec.Active {
		return nil, common.ErrRefreshTokenRevoked
	}

	return rec, nil
}

// Logout revokes a single refresh token and reports whether a record was
// actually deactivated. Revoking an unknown or already-revoked token is not
// an error: logout is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) (bool, error) {
	return s.refreshTokens.Revoke(ctx, refreshToken)
}

// LogoutAll revokes every active refresh token owned by userID and returns
// the number revoked.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	return s.refreshTokens.RevokeAllForUser(ctx, userID)
}

func (s *Service) issueTokenPair(ctx context.Context, user *models.User, scopes []string) (*TokenBundle, error) {

	accessToken, err := auth.GenerateToken(user.UserName, user.ID, scopes, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	now := time.Now().UTC()
	err = s.refreshTokens.Create(ctx, &models.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		Scopes:    scopes,
		ExpiresAt: now.Add(s.refreshTokenValidity),
		Active:    true,
		CreatedAt: now,
	})
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenBundle{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTokenValidity.Seconds()),
	}, nil
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/auth"
	"github.com/tranqh/studymate/internal/server/models"
)

type ctxKey int

const (
	userContextKey ctxKey = iota
	claimsContextKey
)

// userFromContext returns the authenticated user stored by requireAuth.
func userFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userContextKey).(*models.User)
	return u, ok
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return c, ok
}

// requireAuth guards a route with bearer token authentication. Decode and
// lookup failures are 401; an inactive account or a missing required scope
// is 403. The resolved user and claims are stored in the request context.
//
// The account's active flag is checked on every request, a still-unexpired
// token stops working the moment the account is deactivated.
func (s *Server) requireAuth(requiredScopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			tokenString, ok := extractBearer(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			claims, err := auth.ParseToken(tokenString, s.jwtSecret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			user, err := s.users.GetByUserName(r.Context(), claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			if !user.IsActive {
				writeError(w, http.StatusForbidden, "Inactive user")
				return
			}

			for _, scope := range requiredScopes {
				if !slices.Contains(claims.Scopes, scope) {
					writeError(w, http.StatusForbidden, "Not enough permissions")
					return
				}
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = context.WithValue(ctx, claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// adminOnly restricts a route to the configured admin account. Must run
// after requireAuth.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		user, ok := userFromContext(r.Context())
		if !ok || user.UserName != s.adminUserName {
			writeError(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearer(r *http.Request) (string, bool) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, common.BearerPrefix)
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the uniform error body. 401 responses carry the
// WWW-Authenticate challenge.
func writeError(w http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

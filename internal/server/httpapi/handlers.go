package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/models"
)

// userProjection is the safe external view of a user record. The password
// hash never crosses the API boundary.
type userProjection struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func projectUser(u *models.User) userProjection {
	return userProjection{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// meResponse extends the projection with the scopes granted to the
// bearer token used for the request.
type meResponse struct {
	userProjection
	Scopes []string `json:"scopes"`
}

type tokenBundleResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {

	var req struct {
		UserName string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserName == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := s.users.Register(r.Context(), req.UserName, req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			writeError(w, http.StatusBadRequest, "Username or email already registered")
			return
		}
		s.logger.Error(r.Context(), "registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, projectUser(user))
}

// handleLogin implements the OAuth2 password grant shape: form-encoded
// username, password and a space-delimited scope field.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userName := r.PostFormValue("username")
	password := r.PostFormValue("password")
	scopes := strings.Fields(r.PostFormValue("scope"))

	bundle, err := s.sessions.Login(r.Context(), userName, password, scopes)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnauthorized):
			writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		case errors.Is(err, common.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, "Inactive user")
		default:
			s.logger.Error(r.Context(), "login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenBundleResponse{
		AccessToken:  bundle.AccessToken,
		TokenType:    common.TokenType,
		ExpiresIn:    bundle.ExpiresIn,
		RefreshToken: bundle.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	bundle, err := s.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, "Inactive user")
		default:
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenBundleResponse{
		AccessToken:  bundle.AccessToken,
		TokenType:    common.TokenType,
		ExpiresIn:    bundle.ExpiresIn,
		RefreshToken: bundle.RefreshToken,
	})
}

// handleLogout always answers 200: revoking an unknown token only changes
// the message, not the status.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	revoked, err := s.sessions.Logout(r.Context(), req.RefreshToken)
	if err != nil {
		s.logger.Error(r.Context(), "logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	message := "Successfully logged out"
	if !revoked {
		message = "Refresh token not found"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	count, err := s.sessions.LogoutAll(r.Context(), user.ID)
	if err != nil {
		s.logger.Error(r.Context(), "logout-all failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Logged out from all sessions",
		"revoked_count": count,
	})
}

// handleMe returns the caller's profile plus the scopes the presented
// token was granted at login.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	scopes := []string{}
	if claims, ok := claimsFromContext(r.Context()); ok && claims.Scopes != nil {
		scopes = claims.Scopes
	}

	writeJSON(w, http.StatusOK, meResponse{
		userProjection: projectUser(user),
		Scopes:         scopes,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {

	list, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "listing users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	projections := make([]userProjection, 0, len(list))
	for _, u := range list {
		projections = append(projections, projectUser(u))
	}
	writeJSON(w, http.StatusOK, projections)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {

	user, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.logger.Error(r.Context(), "user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, projectUser(user))
}

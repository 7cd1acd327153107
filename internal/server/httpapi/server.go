// Package httpapi exposes the service over HTTP: the auth endpoints, the
// bearer token guard, and the retrieval pass-through endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tranqh/studymate/internal/logging"
	"github.com/tranqh/studymate/internal/server/rag"
	"github.com/tranqh/studymate/internal/server/sessions"
	"github.com/tranqh/studymate/internal/server/users"
)

type Server struct {
	address       string
	logger        logging.Logger
	users         *users.Service
	sessions      *sessions.Service
	vectorIndex   rag.VectorIndex
	chat          rag.ChatCompleter
	jwtSecret     []byte
	adminUserName string
	chatModel     string
}

func NewServer(address string, l logging.Logger, us *users.Service, ss *sessions.Service,
	index rag.VectorIndex, chat rag.ChatCompleter, secretKey, adminUserName, chatModel string) *Server {
	return &Server{
		address:       address,
		logger:        l.With("module", "http_server"),
		users:         us,
		sessions:      ss,
		vectorIndex:   index,
		chat:          chat,
		jwtSecret:     []byte(secretKey),
		adminUserName: adminUserName,
		chatModel:     chatModel,
	}
}

// Router builds the route table. Split out from Run so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Router() http.Handler {

	r := chi.NewRouter()

	r.Get("/", s.handleHello)
	r.Head("/v1/keep-alive", s.handleKeepAlive)

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/token", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/logout-all", s.handleLogoutAll)
		r.Get("/auth/me", s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Use(s.adminOnly)
		r.Get("/auth/users", s.handleListUsers)
		r.Get("/auth/users/{id}", s.handleGetUser)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth("write"))
		r.Post("/v1/ingest", s.handleIngest)
		r.Post("/v1/delete-document", s.handleDeleteDocument)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth("read"))
		r.Post("/v1/question", s.handleQuestion)
		r.Post("/v1/chat/completions", s.handleChatCompletions)
	})

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World!"})
}

func (s *Server) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

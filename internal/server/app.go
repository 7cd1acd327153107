// Package server initializes and runs the main application server.
// It selects the storage backends, bootstraps the admin account, and starts
// the HTTP server with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/tranqh/studymate/internal/logging"
	"github.com/tranqh/studymate/internal/server/config"
	"github.com/tranqh/studymate/internal/server/httpapi"
	"github.com/tranqh/studymate/internal/server/rag"
	"github.com/tranqh/studymate/internal/server/refreshtokens"
	"github.com/tranqh/studymate/internal/server/sessions"
	"github.com/tranqh/studymate/internal/server/storage"
	"github.com/tranqh/studymate/internal/server/users"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	storage        storage.Manager
	userService    *users.Service
	sessionService *sessions.Service
	httpServer     *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	sm, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	us := users.NewService(sm.Users())
	ss := sessions.NewService(us, sm.RefreshTokens(), cfg.SecretKey,
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)

	index := rag.NewPineconeIndex(cfg.VectorIndexHost, cfg.VectorAPIKey)
	chat := rag.NewGroqClient(cfg.ChatBaseURL, cfg.ChatAPIKey)

	hs := httpapi.NewServer(cfg.RunAddr, logger, us, ss, index, chat,
		cfg.SecretKey, cfg.AdminUserName, cfg.ChatModel)

	app := &App{
		config:         cfg,
		logger:         logger,
		storage:        sm,
		userService:    us,
		sessionService: ss,
		httpServer:     hs,
	}

	if err := app.bootstrapAdmin(ctx); err != nil {
		return nil, fmt.Errorf("admin bootstrap error: %w", err)
	}

	return app, nil
}

// initStorage picks the backend from the config: Postgres when a DSN is
// set, in-memory otherwise. A Redis address moves the refresh token
// registry into Redis in either case.
func initStorage(ctx context.Context, cfg *config.Config) (storage.Manager, error) {

	var rtOverride refreshtokens.Repository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		rtOverride = refreshtokens.NewRedisRepository(rdb)
	}

	if cfg.DatabaseDSN == "" {
		m := storage.NewMemoryManager()
		if rtOverride != nil {
			m.SetRefreshTokens(rtOverride)
		}
		return m, nil
	}

	m, err := storage.NewPostgresManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := m.RunMigrations(ctx); err != nil {
		m.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if rtOverride != nil {
		m.SetRefreshTokens(rtOverride)
	}
	return m, nil
}

// bootstrapAdmin makes sure the configured admin account exists. Re-running
// against an existing account is a no-op.
func (app *App) bootstrapAdmin(ctx context.Context) error {

	created, err := app.userService.EnsureExists(ctx, app.config.AdminUserName,
		app.config.AdminUserName+"@localhost", app.config.AdminPassword, "Administrator")
	if err != nil {
		return err
	}
	if created {
		app.logger.Info(ctx, "Created admin account", "username", app.config.AdminUserName)
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.storage.Close(); err != nil {
		app.logger.Error(ctx, "closing storage", "error", err)
	}
}

package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/auth"
	"github.com/dukerupert/shoplist/internal/config"
	"github.com/dukerupert/shoplist/internal/database"
	"github.com/dukerupert/shoplist/internal/events"
	"github.com/dukerupert/shoplist/internal/logging"
	"github.com/dukerupert/shoplist/internal/reconcile"
	"github.com/dukerupert/shoplist/internal/secret"
	"github.com/dukerupert/shoplist/internal/store"
)

// App holds the process-wide objects a command works with. The session
// lives in Machine and nowhere else.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Client   *api.Client
	Bus      *events.Bus
	Machine  *auth.Machine

	db *sql.DB
}

// OpenApp loads configuration, opens durable storage, and restores any
// saved session.
func OpenApp(ctx context.Context, opts *RootOptions) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	logger := logging.New(opts.errWriter(), cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	credentials := store.NewCredentialStore(db, secret.NewSealer(cfg.TokenPassphrase))

	app, err := NewApp(cfg, credentials, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	app.db = db

	if err := app.Machine.Restore(ctx); err != nil {
		logger.Warn("restore session", "error", err)
	}
	return app, nil
}

// NewApp wires the client core around an existing token store.
func NewApp(cfg *config.Config, tokens auth.TokenStore, logger *slog.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	client, err := api.NewClient(api.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Logger:  logger.With("component", "api"),
		Metrics: api.NewMetrics(reg),
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}
	bus := events.NewBus(logger.With("component", "events"))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Client:   client,
		Bus:      bus,
		Machine:  auth.NewMachine(client, tokens, bus, auth.DefaultPolicy(), logger),
	}, nil
}

// NewList opens a list screen backed by the app's client.
func (a *App) NewList() *reconcile.List {
	return reconcile.New(a.Client, a.Bus, a.Logger.With("component", "list"))
}

// RequireSession probes the backend before any authenticated command.
func (a *App) RequireSession(ctx context.Context) error {
	res, err := a.Machine.CheckSession(ctx)
	if err != nil {
		return err
	}
	if res != auth.CheckSuccess {
		return api.Errorf(api.KindUnauthorized, "check session", "not logged in; run 'shoplist login'")
	}
	return nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

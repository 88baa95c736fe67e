// Package app wires the Tracker client together from configuration. Both
// shells and the worker build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/backend"
	"github.com/trackerhq/tracker/internal/checklist"
	"github.com/trackerhq/tracker/internal/collab"
	"github.com/trackerhq/tracker/internal/config"
	"github.com/trackerhq/tracker/internal/database"
	"github.com/trackerhq/tracker/internal/healthcheck"
	"github.com/trackerhq/tracker/internal/issue"
	"github.com/trackerhq/tracker/internal/outbox"
	"github.com/trackerhq/tracker/internal/playbook"
	"github.com/trackerhq/tracker/internal/report"
	"github.com/trackerhq/tracker/internal/resilience"
	"github.com/trackerhq/tracker/internal/session"
	"github.com/trackerhq/tracker/internal/settings"
	"github.com/trackerhq/tracker/internal/timeline"
	"github.com/trackerhq/tracker/internal/web"
	"github.com/trackerhq/tracker/internal/web/handler"
	"github.com/trackerhq/tracker/internal/web/middleware"
)

// Options configures New. Zero-valued dependencies are built from Config.
type Options struct {
	Config  config.Config
	Logger  zerolog.Logger
	Version string

	// SettingsRepo defaults to a YAML file at Config.SettingsPath.
	SettingsRepo settings.Repository
	// Opener defaults to Redis when Config.CollabAddr is set, else a file
	// replica under Config.ReplicaDir.
	Opener collab.Opener
	// Outbox defaults to Postgres when Config.OutboxDSN is set, else memory.
	Outbox outbox.Repository
	// HTTPClient overrides the resilient backend transport.
	HTTPClient *resilience.Client
}

// App holds every wired component.
type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Version string

	Settings   *settings.Store
	Backend    *backend.Client
	Gate       *session.Gate
	Issues     *issue.Service
	Playbooks  *playbook.Service
	Health     *healthcheck.Service
	Reports    *report.Service
	Checklists *checklist.Service
	Outbox     outbox.Repository
	Reconciler *outbox.Reconciler
	Poller     *healthcheck.Poller
	Feeds      *timeline.Registry

	closers []func() error
}

// New builds the client. Close releases what it opened.
func New(ctx context.Context, opts Options) (a *App, err error) {
	cfg := opts.Config
	logger := opts.Logger

	a = &App{Config: cfg, Logger: logger, Version: opts.Version}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	repo := opts.SettingsRepo
	if repo == nil {
		repo = settings.NewFileRepository(cfg.SettingsPath)
	}
	if a.Settings, err = settings.Open(ctx, repo, logger); err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig("tracker-backend")
		rc.Timeout = cfg.HTTPTimeout
		rc.MaxRetries = cfg.HTTPMaxRetries
		rc.CircuitBreaker.Logger = logger
		httpClient = resilience.NewClient(rc)
	}
	a.Backend = backend.NewClient(backend.ClientConfig{
		BaseURL:    cfg.APIURL,
		HTTPClient: httpClient,
		Tokens:     a.Settings,
		Logger:     logger,
	})

	a.Gate = session.NewGate(session.GateConfig{Store: a.Settings, Client: a.Backend, Logger: logger})
	a.Issues = issue.NewService(a.Backend, logger)
	a.Playbooks = playbook.NewService(a.Backend, logger)
	a.Health = healthcheck.NewService(a.Backend, logger)
	a.Reports = report.NewService(a.Backend, logger)
	a.Checklists = checklist.NewService(a.Settings)

	if a.Outbox = opts.Outbox; a.Outbox == nil {
		if a.Outbox, err = a.openOutbox(ctx); err != nil {
			return nil, err
		}
	}
	a.Reconciler = outbox.NewReconciler(outbox.ReconcilerConfig{
		Repo:   a.Outbox,
		Writer: a.Issues,
		Logger: logger,
	})

	if a.Poller, err = healthcheck.NewPoller(healthcheck.PollerConfig{Source: a.Health, Logger: logger}); err != nil {
		return nil, err
	}

	opener := opts.Opener
	if opener == nil {
		if opener, err = a.openCollab(ctx); err != nil {
			return nil, err
		}
	}
	a.Feeds = timeline.NewRegistry(opener, timeline.FeedConfig{
		Issues:   a.Issues,
		Writer:   a.Issues,
		Outbox:   a.Outbox,
		Notify:   a.Reconciler.Notify,
		Settings: a.Settings,
		Logger:   logger,
	})
	a.closers = append(a.closers, a.Feeds.Close)

	return a, nil
}

func (a *App) openOutbox(ctx context.Context) (outbox.Repository, error) {
	if a.Config.OutboxDSN == "" {
		return outbox.NewInMemoryRepository(), nil
	}

	dbConfig := database.ConfigFromEnv()
	dbConfig.URL = a.Config.OutboxDSN
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("connect outbox database: %w", err)
	}
	a.closers = append(a.closers, closePool(pool))

	repo := outbox.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	a.Logger.Info().Msg("outbox stored in postgres")
	return repo, nil
}

func (a *App) openCollab(ctx context.Context) (collab.Opener, error) {
	if !a.Config.UsesCollabServer() {
		a.Logger.Debug().Str("dir", a.Config.ReplicaDir).Msg("timelines kept in local replica")
		return collab.NewFileOpener(a.Config.ReplicaDir, a.Logger), nil
	}

	client, err := collab.NewRedisClient(ctx, collab.RedisConfig{
		Addr:   a.Config.CollabAddr,
		APIKey: a.Config.CollabAPIKey,
		Logger: a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect collaboration endpoint: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.Logger.Info().Str("addr", a.Config.CollabAddr).Msg("timelines shared through redis")
	return collab.NewRedisOpener(client, a.Logger), nil
}

func closePool(pool *pgxpool.Pool) func() error {
	return func() error {
		pool.Close()
		return nil
	}
}

// Router builds the web shell handler.
func (a *App) Router(metrics *middleware.Metrics, localOnly bool) http.Handler {
	return web.NewRouter(web.RouterConfig{
		Version:   a.Version,
		APIURL:    a.Config.APIURL,
		Logger:    a.Logger,
		Metrics:   metrics,
		LocalOnly: localOnly,
		Gate:      a.Gate,
		Sessions:  handler.NewSessionHandler(a.Gate, a.Settings),
		Issues: handler.NewIssueHandler(handler.IssueHandlerConfig{
			Issues:     a.Issues,
			Playbooks:  a.Playbooks,
			Checklists: a.Checklists,
			Feeds:      a.Feeds,
			Logger:     a.Logger,
		}),
		Playbooks: handler.NewPlaybookHandler(a.Playbooks),
		Health:    handler.NewHealthHandler(a.Health, a.Poller),
		Reports:   handler.NewReportHandler(a.Reports, a.Logger),
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	auth "github.com/goliatone/go-store-auth"
	"github.com/goliatone/go-store-auth/activitybus"
	"github.com/goliatone/go-store-auth/config"
	"github.com/goliatone/go-store-auth/provider/local"
	"github.com/goliatone/go-store-auth/sessionstore"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App wires the core services for a single command run.
type App struct {
	config     *config.Config
	db         *bun.DB
	backend    *local.Backend
	repo       auth.RepositoryManager
	activities auth.ActivityRecorder
	sessions   *auth.SessionManager
	logger     auth.Logger
	closers    []io.Closer
}

func newApp(ctx context.Context, opts *RootOptions) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.DSN != "" {
		cfg.DatabaseDSN = opts.DSN
	}

	app := &App{config: cfg, logger: newCLILogger(opts.Verbose)}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	sqldb.SetMaxOpenConns(1)
	app.db = bun.NewDB(sqldb, sqlitedialect.New())
	app.closers = append(app.closers, app.db)

	var store sessionstore.Store = sessionstore.NewMemoryStore()
	if cfg.RedisURL != "" {
		client, err := sessionstore.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, client)
		store = sessionstore.NewRedisStore(client, sessionstore.WithTTL(cfg.GetRefreshTTL()))
	}

	app.backend = local.NewBackend(app.db, cfg.GetSigningKey(),
		local.WithLogger(app.logger),
		local.WithIssuer(cfg.GetIssuer()),
		local.WithAccessTTL(cfg.GetAccessTTL()),
		local.WithRefreshTTL(cfg.GetRefreshTTL()),
		local.WithBcryptCost(cfg.BcryptCost),
		local.WithSessionStore(store),
	)

	recorderOpts := []auth.ActivityRecorderOption{auth.WithActivityLogger(app.logger)}
	if cfg.AMQPURL != "" {
		publisher := activitybus.NewPublisher(cfg.AMQPURL,
			activitybus.WithQueue(cfg.ActivityQueue),
			activitybus.WithLogger(app.logger),
		)
		app.closers = append(app.closers, publisher)
		recorderOpts = append(recorderOpts, auth.WithActivitySink(publisher))
	}

	app.repo = auth.NewRepositoryManager(app.db)
	app.activities = auth.NewActivityRecorder(app.repo.Activities(), recorderOpts...)
	app.backend.Subscribe(auth.TrackMembershipLogins(app.repo.Memberships(), app.logger, cfg.GetStepTimeout()))
	app.sessions = auth.NewSessionManager(app.backend,
		auth.WithSessionConfig(cfg),
		auth.WithLogger(app.logger),
	)

	return app, nil
}

func (a *App) sagaOptions() []auth.SagaOption {
	return []auth.SagaOption{
		auth.WithSagaLogger(a.logger),
		auth.WithSagaStepTimeout(a.config.GetStepTimeout()),
	}
}

// signIn starts the session manager and authenticates the acting user.
func (a *App) signIn(ctx context.Context, email, password string) error {
	if err := a.sessions.Initialize(ctx); err != nil {
		return err
	}
	if snap := a.sessions.Snapshot(); snap.State == auth.StateAuthenticated {
		if id := snap.Identity(); id != nil && id.Email == email {
			return nil
		}
		if err := a.sessions.SignOut(ctx); err != nil {
			a.logger.Warn("storeadmin: sign out of previous session failed: %v", err)
		}
	}
	_, err := a.sessions.SignIn(ctx, email, password)
	return err
}

// Close tears the session manager down and releases every resource in
// reverse order.
func (a *App) Close() {
	if a.sessions != nil {
		a.sessions.Teardown()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("storeadmin: close failed: %v", err)
		}
	}
}

func withApp(ctx context.Context, opts *RootOptions, fn func(*App) error) error {
	app, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

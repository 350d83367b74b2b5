// Package cli assembles the intheflow runtime from configuration and hosts
// the logic behind the command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/intheflow/internal/adapters/file"
	"github.com/aretw0/intheflow/internal/config"
	"github.com/aretw0/intheflow/internal/metrics"
	"github.com/aretw0/intheflow/pkg/adapters/breaker"
	"github.com/aretw0/intheflow/pkg/adapters/gemini"
	"github.com/aretw0/intheflow/pkg/adapters/memory"
	"github.com/aretw0/intheflow/pkg/adapters/redis"
	"github.com/aretw0/intheflow/pkg/content"
	"github.com/aretw0/intheflow/pkg/persistence/middleware"
	"github.com/aretw0/intheflow/pkg/ports"
	"github.com/aretw0/intheflow/pkg/session"
	"github.com/aretw0/intheflow/pkg/workspace"
)

// App is a fully wired runtime.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Sessions *session.Manager
	Content  *content.Adapter

	closers []func() error
}

// AppOption customizes NewApp, mostly for tests.
type AppOption func(*appOptions)

type appOptions struct {
	generator ports.Generator
	store     ports.CanvasStore
	locker    ports.DistributedLocker
}

// WithGenerator replaces the Gemini client.
func WithGenerator(g ports.Generator) AppOption {
	return func(o *appOptions) { o.generator = g }
}

// WithStore replaces the configured store driver. The persistence middlewares
// still apply.
func WithStore(s ports.CanvasStore, l ports.DistributedLocker) AppOption {
	return func(o *appOptions) {
		o.store = s
		o.locker = l
	}
}

// NewApp builds the store chain, the session manager and the content adapter
// described by cfg.
func NewApp(cfg config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	store, locker := o.store, o.locker
	if store == nil {
		var err error
		if store, locker, err = app.openStore(); err != nil {
			return nil, err
		}
	}
	store, err := wrapStore(cfg, store)
	if err != nil {
		app.Close(context.Background())
		return nil, err
	}

	hooks := app.Metrics.Hooks().Merge(DebugHooks(logger))

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithAutosave(cfg.Store.Autosave),
		session.WithLockTTL(cfg.Store.LockTTL),
		session.WithWorkspaceOptions(
			workspace.WithOffset(cfg.Canvas.Offset),
			workspace.WithPlacement(cfg.Canvas.Placement),
			workspace.WithHooks(hooks),
		),
	}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(store, sessionOpts...)

	gen := o.generator
	creds := gemini.NewEnvCredentials(cfg.EnvFiles...)
	if gen == nil {
		gen = gemini.New(creds,
			gemini.WithBaseURL(cfg.Generator.BaseURL),
			gemini.WithModels(cfg.Generator.Models),
			gemini.WithPollInterval(cfg.Generator.PollInterval),
		)
	}
	if b := cfg.Generator.Breaker; b.MaxFailures > 0 {
		gen = breaker.New(gen, breaker.Settings{
			Name:        "gemini",
			MaxFailures: b.MaxFailures,
			Timeout:     b.Timeout,
			Logger:      logger,
		})
	}
	app.Content = content.NewAdapter(gen,
		content.WithCredentials(creds),
		content.WithHooks(hooks),
		content.WithLogger(logger),
	)
	return app, nil
}

// openStore creates the configured store driver.
func (a *App) openStore() (ports.CanvasStore, ports.DistributedLocker, error) {
	cfg := a.Config.Store
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil, nil
	case config.DriverFile:
		a.Logger.Info("Using file store", "path", cfg.Path, "format", cfg.Format)
		return file.NewWithFormat(cfg.Path, file.Format(cfg.Format)), nil, nil
	case config.DriverRedis:
		rs := redis.New(cfg.Redis.Addr, "", 0, redis.WithPrefix(cfg.Redis.Prefix), redis.WithTTL(cfg.Redis.TTL))
		a.closers = append(a.closers, rs.Close)
		if err := rs.Ping(context.Background()); err != nil {
			a.Close(context.Background())
			return nil, nil, fmt.Errorf("redis store at %s: %w", cfg.Redis.Addr, err)
		}
		a.Logger.Info("Using redis store", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
		return rs, redis.NewLocker(rs.Client(), rs.Prefix()), nil
	}
	return nil, nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalid, cfg.Driver)
}

// wrapStore applies the output filter and, when keys are configured,
// encryption at rest. Encryption is innermost so filtered outputs never reach
// the cipher.
func wrapStore(cfg config.Config, store ports.CanvasStore) (ports.CanvasStore, error) {
	var mws []middleware.Middleware

	filter, err := middleware.NewOutputFilterMiddleware(cfg.Store.Volatile)
	if err != nil {
		return nil, err
	}
	mws = append(mws, filter)

	keys, ok, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if ok {
		enc, err := middleware.NewEncryptionMiddleware(keys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

// Shutdown waits for in-flight generations, checkpoints live canvases and
// releases the store.
func (a *App) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.Content.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.Logger.Warn("Generations still running at shutdown")
	}

	err := a.Sessions.Close(ctx)
	return errors.Join(err, a.Close(ctx))
}

// Close releases backend connections without checkpointing.
func (a *App) Close(context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

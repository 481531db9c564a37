// Package cli is the command line client of the catalog. Each installation keeps
// its pseudo-identity and vote ledger in a local SQLite file and talks to the
// shared catalog and blob store directly.
package cli

import (
	"context"
	"errors"
	"log/slog"

	"acadrive/internal/config"
	"acadrive/internal/database"
	"acadrive/internal/database/migration"
	"acadrive/internal/identity"
	"acadrive/internal/localstate"
	"acadrive/internal/repository/postgres"
	"acadrive/internal/service"
	"acadrive/internal/storage"
	"acadrive/internal/vote"
)

// App is what the commands run against.
type App struct {
	Catalog  service.CatalogService
	Identity identity.Provider
	Ledger   *vote.LocalLedger

	closers []func() error
}

// Close releases the databases opened by Open.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Open wires the client: local state first, then the shared catalog and blob store.
func Open(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	app := &App{}

	state, err := localstate.Open(ctx, cfg.LocalStatePath)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, state.Close)

	kv := localstate.NewStore(state)
	app.Identity = identity.NewLocal(kv)
	app.Ledger = vote.NewLocalLedger(kv)

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.closers = append(app.closers, db.Close)

	if err := migration.EnsureMigrated(ctx, db, log, database.HostOf(cfg.Database)); err != nil {
		_ = app.Close()
		return nil, err
	}

	objStore, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Catalog = service.NewCatalogService(service.Deps{
		Repo:     postgres.NewResourcePostgres(db),
		Store:    objStore,
		Identity: app.Identity,
		Ledger:   app.Ledger,
		Upload:   cfg.Upload,
		Logger:   log,
	})
	return app, nil
}

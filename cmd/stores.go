package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/likesync/internal/repositories"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/desertthunder/likesync/internal/supabase"
	"github.com/desertthunder/likesync/internal/tasks"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStores selects the entity store backend named by store.driver.
//
// SQLite databases are migrated on open so a fresh path is usable without running setup first.
func openStores(ctx context.Context, config *shared.Config, httpClient *http.Client) (tasks.Stores, io.Closer, error) {
	switch config.Store.Driver {
	case shared.StoreDriverSupabase:
		// the default client has no timeout; let the adapter apply the configured one
		if httpClient == http.DefaultClient {
			httpClient = nil
		}
		client, err := supabase.NewClient(config.Store.Supabase, httpClient)
		if err != nil {
			return tasks.Stores{}, nil, err
		}
		stores := tasks.Stores{
			Artists:   supabase.NewArtistStore(client),
			Albums:    supabase.NewAlbumStore(client),
			Tracks:    supabase.NewTrackStore(client),
			Relations: supabase.NewRelationStore(client),
		}
		return stores, closerFunc(func() error { return nil }), nil

	case shared.StoreDriverSQLite, "":
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return tasks.Stores{}, nil, err
		}
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return tasks.Stores{}, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		stores := tasks.Stores{
			Artists:   repositories.NewArtistRepository(db),
			Albums:    repositories.NewAlbumRepository(db),
			Tracks:    repositories.NewTrackRepository(db),
			Relations: repositories.NewRelationRepository(db),
		}
		return stores, db, nil

	default:
		return tasks.Stores{}, nil, fmt.Errorf("%w: unknown store driver %q", shared.ErrInvalidConfig, config.Store.Driver)
	}
}

// engine opens the configured backend and builds a [tasks.LibraryEngine] over it.
func (r *Runner) engine(ctx context.Context) (*tasks.LibraryEngine, tasks.Stores, io.Closer, error) {
	stores, closer, err := r.openStores(ctx, r.config, r.httpClient)
	if err != nil {
		return nil, tasks.Stores{}, nil, fmt.Errorf("failed to open %s store: %w", r.config.Store.Driver, err)
	}
	r.logger.Debug("store opened", "driver", r.config.Store.Driver)
	return tasks.NewLibraryEngine(stores, r.logger), stores, closer, nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/likesync/internal/shared"
	"github.com/desertthunder/likesync/internal/tasks"
	"github.com/desertthunder/likesync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync fetches liked tracks from Spotify and reconciles them into the configured store.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	if !r.creds.Authenticated() {
		return fmt.Errorf("%w: run 'likesync auth login' first", shared.ErrNotAuthenticated)
	}

	opts := tasks.SyncOpts{
		Offset:    cmd.Int("offset"),
		Limit:     cmd.Int("limit"),
		All:       cmd.Bool("all"),
		PageSize:  r.config.Sync.PageSize,
		RateLimit: r.config.Sync.RateLimit,
	}
	if opts.Offset < 0 {
		return fmt.Errorf("%w: --offset must not be negative", shared.ErrInvalidArgument)
	}
	if !opts.All && (opts.Limit < 1 || opts.Limit > 50) {
		return fmt.Errorf("%w: --limit must be between 1 and 50 without --all", shared.ErrInvalidArgument)
	}

	if cmd.Bool("tui") {
		return r.syncTUI(ctx, opts)
	}

	engine, _, closer, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	r.logger.Info("syncing liked tracks", "offset", opts.Offset, "limit", opts.Limit, "all", opts.All)

	result, err := engine.SyncLiked(ctx, r.spotify, opts, nil)
	if result == nil {
		return r.syncError(err)
	}

	if cmd.Bool("json") {
		if werr := r.writeJSON(result, cmd.Bool("pretty")); werr != nil {
			return werr
		}
	} else {
		r.writePlain("%s\n", ui.RenderSummary(result.Stats, result.Failures))
		r.writePlain("%d pages, %d of %d liked tracks\n", result.Pages, result.Fetched, result.Total)
	}

	if err != nil {
		return r.syncError(err)
	}
	return nil
}

// syncError adds a login hint to credential failures.
func (r *Runner) syncError(err error) error {
	if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
		return fmt.Errorf("%w (run 'likesync auth login')", err)
	}
	return fmt.Errorf("sync failed: %w", err)
}

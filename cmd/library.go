package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/likesync/internal/formatter"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Library lists or exports tracks already reconciled into the store.
func (r *Runner) Library(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	offset := cmd.Int("offset")
	if limit < 1 || offset < 0 {
		return fmt.Errorf("%w: --limit must be positive and --offset not negative", shared.ErrInvalidArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, stores, closer, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	tracks, err := stores.Tracks.List(ctx, limit, offset)
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	rows := engine.SavedTracks(ctx, tracks)
	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	if len(rows) == 0 {
		return r.writePlain("No tracks stored yet. Run 'likesync sync' first.\n")
	}

	title := "Liked Tracks"

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(format, output, title, rows)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d tracks to %s\n", len(rows), path)
	}

	data, err := formatter.Export(format, title, rows)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

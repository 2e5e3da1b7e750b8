package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/desertthunder/likesync/internal/tasks"
	"github.com/desertthunder/likesync/internal/ui"
)

const tuiLogPath = "./tmp/likesync-tui.log"

// syncTUI runs the sync behind the interactive progress view.
func (r *Runner) syncTUI(ctx context.Context, opts tasks.SyncOpts) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logCloser, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logCloser.Close()

	prev := r.logger
	r.SetLogger(fileLogger)
	defer r.SetLogger(prev)

	engine, _, closer, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(ctx, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
		return engine.SyncLiked(ctx, r.spotify, opts, progress)
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if _, err := model.Result(); err != nil {
		return r.syncError(err)
	}
	return nil
}

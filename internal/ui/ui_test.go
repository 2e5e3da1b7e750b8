package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/tasks"
)

func sampleResult() *tasks.SyncResult {
	return &tasks.SyncResult{
		ReconcileResult: tasks.ReconcileResult{
			Tracks: []*models.Track{
				{ID: "1", SpotifyTrackID: "T1", Name: "Song One", AddedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
			Stats: models.RunStats{Processed: 2, TracksCreated: 1, ArtistsCreated: 1, AlbumsCreated: 1, RelationsCreated: 2, Failed: 1},
			Failures: []tasks.RecordFailure{
				{TrackID: "T2", Name: "Broken Song", Stage: tasks.StageAlbum, Error: "store write failed"},
			},
		},
		Pages:   1,
		Fetched: 2,
		Total:   2,
	}
}

// drive runs the model's sync loop to completion without a tea.Program.
func drive(t *testing.T, m *Model) {
	t.Helper()

	next := m.startSync()
	for range 100 {
		m.Update(next())
		if m.view != SyncView {
			return
		}
		next = m.waitForProgress()
	}
	t.Fatal("sync did not complete")
}

func TestModel(t *testing.T) {
	t.Run("Progress Then Result", func(t *testing.T) {
		var seen []tasks.Phase
		m := NewModel(context.Background(), func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
			progress <- tasks.ProgressUpdate{Phase: tasks.FetchLiked, Step: 1, Total: 1, Message: "Fetching"}
			progress <- tasks.ProgressUpdate{Phase: tasks.RecordFailed, Step: 2, Total: 2, Message: "✗ Broken Song"}
			return sampleResult(), nil
		})

		next := m.startSync()
		for m.view == SyncView {
			msg := next()
			if u, ok := msg.(Msg); ok && u.kind == MsgProgressUpdate {
				seen = append(seen, u.data.(tasks.ProgressUpdate).Phase)
			}
			m.Update(msg)
			next = m.waitForProgress()
		}

		if len(seen) != 2 || seen[0] != tasks.FetchLiked || seen[1] != tasks.RecordFailed {
			t.Errorf("unexpected updates %v", seen)
		}
		if len(m.failures) != 1 || m.fetched != 1 {
			t.Errorf("expected 1 failure and 1 fetch tracked, got %v %d", m.failures, m.fetched)
		}

		view := m.View()
		if !strings.Contains(view, "Reconciled 2 liked tracks") || !strings.Contains(view, "Broken Song") {
			t.Errorf("result view missing summary: %s", view)
		}
	})

	t.Run("Tracks View", func(t *testing.T) {
		m := NewModel(context.Background(), func(context.Context, chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
			return sampleResult(), nil
		})
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
		drive(t, m)

		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
		if m.view != TracksView {
			t.Fatalf("expected tracks view, got %v", m.view)
		}
		if items := m.trackList.Items(); len(items) != 2 {
			t.Errorf("expected failure and track items, got %d", len(items))
		}
		if _, ok := m.trackList.Items()[0].(failureItem); !ok {
			t.Error("failures should be listed first")
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != ResultView {
			t.Errorf("expected esc to return to results, got %v", m.view)
		}
	})

	t.Run("Sync Error", func(t *testing.T) {
		m := NewModel(context.Background(), func(context.Context, chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
			return nil, errors.New("token expired")
		})
		drive(t, m)

		if _, err := m.Result(); err == nil {
			t.Error("expected error from Result")
		}
		if !strings.Contains(m.View(), "Sync failed: token expired") {
			t.Errorf("expected failure message, got %s", m.View())
		}
	})

	t.Run("Quit", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestRenderSummary(t *testing.T) {
	r := sampleResult()
	out := RenderSummary(r.Stats, r.Failures)

	for _, want := range []string{"Reconciled 2 liked tracks", "Tracks", "1 created", "1 records failed", "Broken Song (album)"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	clean := RenderSummary(models.RunStats{Processed: 1, TracksSkipped: 1}, nil)
	if strings.Contains(clean, "failed") {
		t.Errorf("no failure section expected:\n%s", clean)
	}
}

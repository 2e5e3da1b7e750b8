package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/tasks"
)

var (
	_ list.Item = trackItem{}
	_ list.Item = failureItem{}
)

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track *models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	return fmt.Sprintf("added %s • %s", i.track.AddedAt.Format("2006-01-02"), i.track.SpotifyTrackID)
}

// failureItem wraps [tasks.RecordFailure] to implement [list.Item].
type failureItem struct {
	failure tasks.RecordFailure
}

func (i failureItem) FilterValue() string { return i.failure.Name }
func (i failureItem) Title() string       { return "✗ " + i.failure.Name }
func (i failureItem) Description() string {
	return fmt.Sprintf("%s stage • %s", i.failure.Stage, i.failure.Error)
}

// resultItems lists failures first, then stored tracks.
func resultItems(result *tasks.SyncResult) []list.Item {
	items := make([]list.Item, 0, len(result.Tracks)+len(result.Failures))
	for _, f := range result.Failures {
		items = append(items, failureItem{failure: f})
	}
	for _, t := range result.Tracks {
		items = append(items, trackItem{track: t})
	}
	return items
}

package tasks

import (
	"context"
	"testing"

	"github.com/desertthunder/likesync/internal/models"
	tu "github.com/desertthunder/likesync/internal/testing"
)

func TestSavedTracks(t *testing.T) {
	ctx := context.Background()
	alice, bob := tu.Artist("A1", "Alice"), tu.Artist("A2", "Bob")
	batch := []models.SourceRecord{
		tu.Record("T1", []models.ArtistDescriptor{alice, bob}, "AL1", []models.ArtistDescriptor{alice}),
		tu.Record("T2", []models.ArtistDescriptor{bob}, "AL1", nil),
	}

	t.Run("Joins Album And Artists", func(t *testing.T) {
		m := newMemStores()
		engine := newEngine(m)
		result := engine.ReconcileBatch(ctx, batch, nil)

		saved := engine.SavedTracks(ctx, result.Tracks)
		if len(saved) != 2 {
			t.Fatalf("expected 2 saved tracks, got %d", len(saved))
		}
		if saved[0].SpotifyTrackID != "T1" || saved[0].AlbumName() != "Album AL1" {
			t.Errorf("unexpected first track %+v", saved[0])
		}
		if got := saved[0].ArtistNames(); got != "Alice, Bob" {
			t.Errorf("expected artists in source order, got %q", got)
		}
		if saved[1].Album != saved[0].Album {
			t.Error("expected the shared album to be loaded once")
		}
	})

	t.Run("Missing Album Leaves Gap", func(t *testing.T) {
		m := newMemStores()
		engine := newEngine(m)
		result := engine.ReconcileBatch(ctx, batch[:1], nil)

		if err := m.albums.Delete(ctx, result.Tracks[0].AlbumID); err != nil {
			t.Fatalf("failed to delete album: %v", err)
		}

		saved := engine.SavedTracks(ctx, result.Tracks)
		if saved[0].Album != nil || saved[0].AlbumName() != "" {
			t.Errorf("expected no album, got %+v", saved[0].Album)
		}
		if len(saved[0].Artists) != 2 {
			t.Errorf("artists should still be joined, got %d", len(saved[0].Artists))
		}
	})

	t.Run("Empty", func(t *testing.T) {
		saved := newEngine(newMemStores()).SavedTracks(ctx, nil)
		if saved == nil || len(saved) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", saved)
		}
	})
}

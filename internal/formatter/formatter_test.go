package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
	th "github.com/desertthunder/likesync/internal/testing"
)

func sampleRows() []models.SavedTrack {
	added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.SavedTrack{
		{
			Track: &models.Track{SpotifyTrackID: "T1", Name: "Song One", SpotifyURL: "https://open.spotify.com/track/T1", AddedAt: added},
			Album: &models.Album{SpotifyID: "AL1", Name: "Album One", ReleaseDate: "2020-05-01"},
			Artists: []*models.Artist{
				{SpotifyID: "A1", Name: "Artist One"},
				{SpotifyID: "A2", Name: "Artist, Two"},
			},
		},
		{
			Track:   &models.Track{SpotifyTrackID: "T2", Name: "Song Two", SpotifyURL: "https://open.spotify.com/track/T2", AddedAt: added},
			Artists: []*models.Artist{{SpotifyID: "A1", Name: "Artist One"}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"txt", FormatText},
		{"CSV", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleRows())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "spotify_track_id,track_name,artists,album,release_date,added_at,spotify_url\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `T1,Song One,"Artist One, Artist, Two",Album One,2020-05-01,2024-03-01T12:00:00Z,https://open.spotify.com/track/T1`) {
			t.Errorf("CSV missing quoted track row, got: %s", output)
		}
		if !strings.Contains(output, "T2,Song Two,Artist One,,,2024-03-01T12:00:00Z") {
			t.Errorf("CSV should leave album columns empty without an album, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("Liked Tracks", sampleRows())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Liked Tracks",
			"**Tracks**: 2",
			"1. [Song One](https://open.spotify.com/track/T1) - Artist One, Artist, Two (Album One)",
			"2. [Song Two](https://open.spotify.com/track/T2) - Artist One\n",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleRows())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Tracks: 2") || !strings.Contains(output, "2. Artist One - Song Two") {
			t.Errorf("unexpected text export:\n%s", output)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		data, err := ExportToCSV(nil)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if strings.Count(string(data), "\n") != 1 {
			t.Errorf("expected header only, got %q", data)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("WithDefaultPath", func(t *testing.T) {
		t.Chdir(t.TempDir())

		path, err := WriteExport(FormatMarkdown, "", "Liked Tracks", sampleRows())
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "liked_tracks.md" {
			t.Errorf("expected liked_tracks.md, got %s", path)
		}
		if content := th.MustReadFile(t, path); !strings.Contains(content, "# Liked Tracks") {
			t.Errorf("unexpected file content:\n%s", content)
		}
	})

	t.Run("WithCustomPath", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "export.csv")

		path, err := WriteExport(FormatCSV, target, "", sampleRows())
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != target {
			t.Errorf("expected %s, got %s", target, path)
		}
		if content := th.MustReadFile(t, path); !strings.Contains(content, "Song Two") {
			t.Errorf("unexpected file content:\n%s", content)
		}
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "missing", "export.txt")

		if _, err := WriteExport(FormatText, target, "", sampleRows()); err == nil {
			t.Error("expected write error")
		}
	})
}

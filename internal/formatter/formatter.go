// package formatter exports the stored library to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

// ExportToCSV converts rows to CSV with one line per track.
func ExportToCSV(rows []models.SavedTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"spotify_track_id", "track_name", "artists", "album", "release_date", "added_at", "spotify_url"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		release := ""
		if row.Album != nil {
			release = row.Album.ReleaseDate
		}
		record := []string{
			row.Track.SpotifyTrackID,
			row.Track.Name,
			row.ArtistNames(),
			row.AlbumName(),
			release,
			row.Track.AddedAt.UTC().Format(time.RFC3339),
			row.Track.SpotifyURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts rows to a numbered Markdown list under title.
func ExportToMarkdown(title string, rows []models.SavedTrack) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(rows))

	buf.WriteString("## Tracks\n\n")
	for i, row := range rows {
		albumPart := ""
		if name := row.AlbumName(); name != "" {
			albumPart = fmt.Sprintf(" (%s)", name)
		}
		fmt.Fprintf(&buf, "%d. [%s](%s) - %s%s\n", i+1, row.Track.Name, row.Track.SpotifyURL, row.ArtistNames(), albumPart)
	}

	return buf.Bytes(), nil
}

// ExportToText converts rows to plain text.
func ExportToText(rows []models.SavedTrack) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(rows))
	for i, row := range rows {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, row.ArtistNames(), row.Track.Name)
	}

	return buf.Bytes(), nil
}

// Export renders rows in format f.
func Export(f Format, title string, rows []models.SavedTrack) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(rows)
	case FormatMarkdown:
		return ExportToMarkdown(title, rows)
	default:
		return ExportToText(rows)
	}
}

// WriteExport writes rows to path in format f.
//
// Defaults to liked_tracks.{ext} as the filename.
func WriteExport(f Format, path, title string, rows []models.SavedTrack) (string, error) {
	if path == "" {
		path = "liked_tracks." + f.Ext()
	}

	data, err := Export(f, title, rows)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}

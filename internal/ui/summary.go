package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/tasks"
)

// RenderSummary renders run statistics and failed records as a bordered block.
func RenderSummary(stats models.RunStats, failures []tasks.RecordFailure) string {
	row := func(label string, created, skipped int) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			styles.label.Render(label),
			styles.ok.Render(fmt.Sprintf("%d created", created)),
			styles.help.Render(fmt.Sprintf("  %d skipped", skipped)),
		)
	}

	lines := []string{
		styles.title.Render(fmt.Sprintf("Reconciled %d liked tracks", stats.Processed)),
		row("Tracks", stats.TracksCreated, stats.TracksSkipped),
		row("Artists", stats.ArtistsCreated, stats.ArtistsSkipped),
		row("Albums", stats.AlbumsCreated, stats.AlbumsSkipped),
		lipgloss.JoinHorizontal(lipgloss.Top,
			styles.label.Render("Relations"),
			styles.ok.Render(fmt.Sprintf("%d created", stats.RelationsCreated)),
			styles.help.Render(fmt.Sprintf("  %d existing", stats.RelationsExisting)),
			failedCount(stats.RelationsFailed),
		),
	}

	if stats.Failed > 0 {
		lines = append(lines, "", styles.err.Render(fmt.Sprintf("%d records failed:", stats.Failed)))
		for _, f := range failures {
			lines = append(lines, styles.warn.Render(fmt.Sprintf("  • %s (%s): %s", f.Name, f.Stage, f.Error)))
		}
	}

	return styles.box.Render(strings.Join(lines, "\n"))
}

func failedCount(n int) string {
	if n == 0 {
		return ""
	}
	return styles.err.Render(fmt.Sprintf("  %d failed", n))
}

package tasks

import (
	"fmt"

	"github.com/desertthunder/likesync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLiked Phase = iota
	Reconcile
	RecordFailed
	Summary
)

func (p Phase) String() string {
	switch p {
	case FetchLiked:
		return "fetch_liked"
	case Reconcile:
		return "reconcile"
	case RecordFailed:
		return "record_failed"
	case Summary:
		return "summary"
	default:
		return ""
	}
}

func fetchPageUpdate(step, total, offset int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLiked,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching liked tracks from offset %d...", offset),
	}
}

func reconcileUpdate(step, total int, rec models.SourceRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, rec.Name),
	}
}

func failedUpdate(step, total int, f RecordFailure) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, f.Name, f.Error),
		Data:    f,
	}
}

func summaryUpdate(stats models.RunStats) ProgressUpdate {
	return ProgressUpdate{
		Phase: Summary,
		Step:  stats.Processed,
		Total: stats.Processed,
		Message: fmt.Sprintf("%d tracks created, %d skipped, %d failed",
			stats.TracksCreated, stats.TracksSkipped, stats.Failed),
		Data: stats,
	}
}

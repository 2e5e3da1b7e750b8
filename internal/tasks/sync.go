package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// LikedSource supplies pages of the user's liked tracks.
type LikedSource interface {
	LikedTracks(ctx context.Context, offset, limit int) (*services.LikedPage, error)
}

// SyncOpts controls which slice of the library [LibraryEngine.SyncLiked] fetches.
type SyncOpts struct {
	Offset    int     // Starting offset into the liked tracks
	Limit     int     // Page size for a single page; with All, the maximum records (0 = no cap)
	All       bool    // Page through the library until exhausted
	PageSize  int     // Page size when All is set (default: 50)
	RateLimit float64 // Page requests per second when All is set (default: 5)
}

// SyncResult is the reconciled outcome of every fetched page.
type SyncResult struct {
	ReconcileResult
	Pages   int `json:"pages"`   // Pages fetched
	Fetched int `json:"fetched"` // Source records received
	Total   int `json:"total"`   // Liked tracks reported by the provider
}

// SyncLiked fetches liked tracks from src and reconciles each page as it arrives.
//
// Fetching runs ahead of reconciliation by at most one page. A fetch error stops paging and is returned
// alongside everything reconciled before it; pages already handed to the engine always complete.
func (e *LibraryEngine) SyncLiked(ctx context.Context, src LikedSource, opts SyncOpts, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: liked track source not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0", shared.ErrInvalidArgument)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &SyncResult{ReconcileResult: ReconcileResult{Tracks: []*models.Track{}, Failures: []RecordFailure{}}}
	pages := make(chan *services.LikedPage, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(pages)
		return e.fetchPages(gctx, src, opts, pages, progress)
	})

	for page := range pages {
		result.Pages++
		result.Fetched += len(page.Records)
		result.Total = page.Total

		batch := e.ReconcileBatch(ctx, page.Records, progress)
		result.Tracks = append(result.Tracks, batch.Tracks...)
		result.Failures = append(result.Failures, batch.Failures...)
		result.Stats.Add(batch.Stats)
	}

	if err := g.Wait(); err != nil {
		e.logger.Error("sync stopped early", "pages", result.Pages, "err", err)
		return result, err
	}

	e.logger.Info("sync complete", "pages", result.Pages, "fetched", result.Fetched, "failed", result.Stats.Failed)
	return result, nil
}

// fetchPages sends pages to out until the source is exhausted, the record cap is met, or ctx ends.
func (e *LibraryEngine) fetchPages(ctx context.Context, src LikedSource, opts SyncOpts, out chan<- *services.LikedPage, progress chan<- ProgressUpdate) error {
	if !opts.All {
		e.sendProgress(progress, fetchPageUpdate(1, 1, opts.Offset))
		page, err := src.LikedTracks(ctx, opts.Offset, opts.Limit)
		if err != nil {
			return fmt.Errorf("fetch liked tracks at offset %d: %w", opts.Offset, err)
		}
		return send(ctx, out, page)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	offset, fetched, step, totalPages := opts.Offset, 0, 0, 0

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		step++
		e.sendProgress(progress, fetchPageUpdate(step, totalPages, offset))

		page, err := src.LikedTracks(ctx, offset, opts.PageSize)
		if err != nil {
			return fmt.Errorf("fetch liked tracks at offset %d: %w", offset, err)
		}
		if totalPages == 0 && page.Limit > 0 {
			totalPages = (page.Total - opts.Offset + page.Limit - 1) / page.Limit
		}

		if opts.Limit > 0 && fetched+len(page.Records) >= opts.Limit {
			page.Records = page.Records[:opts.Limit-fetched]
			page.HasNext = false
		}
		fetched += len(page.Records)

		if err := send(ctx, out, page); err != nil {
			return err
		}
		if !page.HasNext {
			return nil
		}
		offset += page.Limit
	}
}

func send(ctx context.Context, out chan<- *services.LikedPage, page *services.LikedPage) error {
	select {
	case out <- page:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

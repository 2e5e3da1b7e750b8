// package tasks implements reconciliation of liked tracks into the normalized library.
//
// The core abstraction is LibraryEngine, which turns denormalized source records into deduplicated,
// cross-referenced rows. Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

// Stage names the step a record was on when it failed.
type Stage string

const (
	StageRecord Stage = "record"
	StageArtist Stage = "artist"
	StageAlbum  Stage = "album"
	StageTrack  Stage = "track"
)

// RecordFailure describes one source record that could not be reconciled.
type RecordFailure struct {
	TrackID string `json:"track_id"`
	Name    string `json:"name"`
	Stage   Stage  `json:"stage"`
	Error   string `json:"error"`
	Err     error  `json:"-"`
}

// ReconcileResult contains the outcome of one batch.
type ReconcileResult struct {
	Tracks   []*models.Track `json:"tracks"`   // Stored tracks in input order, failed records omitted
	Stats    models.RunStats `json:"stats"`    // Counters for the batch
	Failures []RecordFailure `json:"failures"` // Records that were aborted
}

// Stores bundles the backends the engine writes to.
type Stores struct {
	Artists   models.EntityStore[*models.Artist]
	Albums    models.EntityStore[*models.Album]
	Tracks    models.EntityStore[*models.Track]
	Relations models.RelationStore
}

// LibraryEngine reconciles source records into [Stores].
type LibraryEngine struct {
	stores Stores
	linker *Linker
	logger *log.Logger
}

// NewLibraryEngine creates a new LibraryEngine. A nil logger writes warnings and errors to stderr.
func NewLibraryEngine(stores Stores, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
		shared.SetLogLevel(logger, log.WarnLevel)
	}
	return &LibraryEngine{
		stores: stores,
		linker: NewLinker(stores.Relations, logger),
		logger: logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// batchTally counts each natural key once per batch, by the outcome of its first resolution.
type batchTally struct {
	stats *models.RunStats
	seen  map[models.EntityKind]map[string]bool
}

func newBatchTally(stats *models.RunStats) *batchTally {
	return &batchTally{
		stats: stats,
		seen: map[models.EntityKind]map[string]bool{
			models.KindArtist: {},
			models.KindAlbum:  {},
			models.KindTrack:  {},
		},
	}
}

func (t *batchTally) count(kind models.EntityKind, key string, res Resolution) {
	if t.seen[kind][key] {
		return
	}
	t.seen[kind][key] = true

	created := res == Created
	switch kind {
	case models.KindArtist:
		if created {
			t.stats.ArtistsCreated++
		} else {
			t.stats.ArtistsSkipped++
		}
	case models.KindAlbum:
		if created {
			t.stats.AlbumsCreated++
		} else {
			t.stats.AlbumsSkipped++
		}
	case models.KindTrack:
		if created {
			t.stats.TracksCreated++
		} else {
			t.stats.TracksSkipped++
		}
	}
}

func (t *batchTally) link(res models.LinkResult) {
	switch res.Status {
	case models.LinkCreated:
		t.stats.RelationsCreated++
	case models.LinkExists:
		t.stats.RelationsExisting++
	case models.LinkFailed:
		t.stats.RelationsFailed++
	}
}

// ReconcileBatch stores records in order and returns the resulting tracks with run statistics.
//
// Records are processed one at a time. A record that fails is logged and skipped, and no error escapes.
// Cancellation of ctx is not observed: once started, the batch completes.
func (e *LibraryEngine) ReconcileBatch(ctx context.Context, records []models.SourceRecord, progress chan<- ProgressUpdate) ReconcileResult {
	ctx = context.WithoutCancel(ctx)

	result := ReconcileResult{
		Tracks:   make([]*models.Track, 0, len(records)),
		Failures: []RecordFailure{},
	}
	tally := newBatchTally(&result.Stats)
	total := len(records)

	for i, rec := range records {
		result.Stats.Processed++
		e.sendProgress(progress, reconcileUpdate(i+1, total, rec))

		track, stage, err := e.reconcileRecord(ctx, rec, tally)
		if err != nil {
			failure := RecordFailure{TrackID: rec.TrackID, Name: rec.Name, Stage: stage, Error: err.Error(), Err: err}
			result.Failures = append(result.Failures, failure)
			result.Stats.Failed++

			e.logger.Error("failed to save track", "track", rec.Name, "spotify_id", rec.TrackID, "stage", stage, "err", err)
			e.sendProgress(progress, failedUpdate(i+1, total, failure))
			continue
		}

		result.Tracks = append(result.Tracks, track)
	}

	e.logger.Info("batch reconciled",
		"processed", result.Stats.Processed,
		"tracks_created", result.Stats.TracksCreated,
		"tracks_skipped", result.Stats.TracksSkipped,
		"artists_created", result.Stats.ArtistsCreated,
		"albums_created", result.Stats.AlbumsCreated,
		"failed", result.Stats.Failed,
	)
	e.sendProgress(progress, summaryUpdate(result.Stats))

	return result
}

// reconcileRecord runs the per-record steps and reports the stage of the first fatal error.
func (e *LibraryEngine) reconcileRecord(ctx context.Context, rec models.SourceRecord, tally *batchTally) (*models.Track, Stage, error) {
	if rec.TrackID == "" {
		return nil, StageRecord, fmt.Errorf("%w: record %q has no track id", shared.ErrInvalidInput, rec.Name)
	}

	trackArtists, err := e.resolveArtists(ctx, rec.Artists, tally)
	if err != nil {
		return nil, StageArtist, err
	}

	albumArtists, err := e.resolveArtists(ctx, rec.Album.Artists, tally)
	if err != nil {
		return nil, StageArtist, err
	}

	album, res, err := Resolve(ctx, e.stores.Albums, rec.Album.ID, rec.Album.NewAlbum)
	if err != nil {
		return nil, StageAlbum, fmt.Errorf("album %q: %w", rec.Album.Name, err)
	}
	tally.count(models.KindAlbum, album.SpotifyID, res)

	if res == Created {
		e.logger.Info("album created", "album", album.Name)
		for _, artist := range albumArtists {
			tally.link(e.linker.Link(ctx, models.AlbumArtists, album.ID, artist.ID, album.Name+" / "+artist.Name))
		}
	}

	track, res, err := Resolve(ctx, e.stores.Tracks, rec.TrackID, func() *models.Track {
		return rec.NewTrack(album.ID)
	})
	if err != nil {
		return nil, StageTrack, fmt.Errorf("track %q: %w", rec.Name, err)
	}
	tally.count(models.KindTrack, track.SpotifyTrackID, res)

	if res == Existing {
		e.logger.Debug("track already stored", "track", track.Name)
		return track, "", nil
	}

	e.logger.Info("track created", "track", track.Name)
	for _, artist := range trackArtists {
		tally.link(e.linker.Link(ctx, models.TrackArtists, track.ID, artist.ID, track.Name+" / "+artist.Name))
	}

	return track, "", nil
}

// resolveArtists resolves descriptors in order, stopping at the first error.
func (e *LibraryEngine) resolveArtists(ctx context.Context, descriptors []models.ArtistDescriptor, tally *batchTally) ([]*models.Artist, error) {
	artists := make([]*models.Artist, 0, len(descriptors))
	for _, d := range descriptors {
		artist, res, err := Resolve(ctx, e.stores.Artists, d.ID, d.NewArtist)
		if err != nil {
			return nil, fmt.Errorf("artist %q: %w", d.Name, err)
		}
		tally.count(models.KindArtist, artist.SpotifyID, res)
		if res == Created {
			e.logger.Info("artist created", "artist", artist.Name)
		}
		artists = append(artists, artist)
	}
	return artists, nil
}

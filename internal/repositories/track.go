package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

const tracksTable = "spotify_tracks"

const trackColumns = "id, spotify_track_id, track_name, spotify_url, added_at, album_id, created_at, updated_at"

// TrackRepository implements models.EntityStore[*models.Track] for liked tracks.
//
// The album_id foreign key is enforced, so a track can only be written after its album.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.Track] into the database with generated ID and sequence
func (r *TrackRepository) Create(ctx context.Context, track *models.Track) (*models.Track, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, track)
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// CreateMany inserts tracks in one transaction.
func (r *TrackRepository) CreateMany(ctx context.Context, tracks []*models.Track) ([]*models.Track, error) {
	if len(tracks) == 0 {
		return []*models.Track{}, nil
	}

	staged := make([]*models.Track, len(tracks))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for i, track := range tracks {
			candidate := *track
			if err := r.insert(ctx, tx, &candidate); err != nil {
				return err
			}
			staged[i] = &candidate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, track := range tracks {
		*track = *staged[i]
	}
	return tracks, nil
}

func (r *TrackRepository) insert(ctx context.Context, q querier, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return shared.WriteError(tracksTable, fmt.Errorf("validation failed: %w", err))
	}

	sequence, err := nextSequence(ctx, q, tracksTable)
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	id := shared.GenerateID()

	_, err = q.ExecContext(ctx, `
		INSERT INTO spotify_tracks (id, sequence, spotify_track_id, track_name, spotify_url, added_at, album_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		sequence,
		track.SpotifyTrackID,
		track.Name,
		track.SpotifyURL,
		track.AddedAt.UTC(),
		track.AlbumID,
		now,
		now,
	)
	if err != nil {
		return insertError(tracksTable, track.SpotifyTrackID, err)
	}

	track.ID = id
	track.CreatedAt = now
	track.UpdatedAt = now
	return nil
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM spotify_tracks WHERE id = ?", id)
	track, err := scanTrack(row)
	if err != nil {
		return nil, lookupError(tracksTable, id, err)
	}
	return track, nil
}

// FindByNaturalKey retrieves a track by its Spotify track ID
func (r *TrackRepository) FindByNaturalKey(ctx context.Context, spotifyTrackID string) (*models.Track, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM spotify_tracks WHERE spotify_track_id = ?", spotifyTrackID)
	track, err := scanTrack(row)
	if err != nil {
		return nil, lookupError(tracksTable, spotifyTrackID, err)
	}
	return track, nil
}

// Update modifies an existing track in the database
func (r *TrackRepository) Update(ctx context.Context, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE spotify_tracks
		SET track_name = ?, spotify_url = ?, added_at = ?, album_id = ?, updated_at = ?
		WHERE id = ?
	`, track.Name, track.SpotifyURL, track.AddedAt.UTC(), track.AlbumID, now, track.ID)
	if err != nil {
		return shared.WriteError(tracksTable, err)
	}
	if err := affectOne(result, tracksTable, track.ID); err != nil {
		return err
	}

	track.UpdatedAt = now
	return nil
}

// Delete removes a track and its artist relations.
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM spotify_tracks WHERE id = ?", id)
	if err != nil {
		return shared.WriteError(tracksTable, err)
	}
	return affectOne(result, tracksTable, id)
}

// List pages through tracks in insertion order.
func (r *TrackRepository) List(ctx context.Context, limit, offset int) ([]*models.Track, error) {
	limit, offset = pageArgs(limit, offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+trackColumns+" FROM spotify_tracks ORDER BY sequence ASC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []*models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// Count returns the number of stored tracks.
func (r *TrackRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spotify_tracks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

func scanTrack(s scanner) (*models.Track, error) {
	var t models.Track
	err := s.Scan(&t.ID, &t.SpotifyTrackID, &t.Name, &t.SpotifyURL, &t.AddedAt, &t.AlbumID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

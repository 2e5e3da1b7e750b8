package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

const artistsTable = "spotify_artists"

const artistColumns = "id, spotify_id, name, spotify_url, created_at, updated_at"

// ArtistRepository implements models.EntityStore[*models.Artist].
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new ArtistRepository with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Create inserts artist with a generated ID and sequence.
func (r *ArtistRepository) Create(ctx context.Context, artist *models.Artist) (*models.Artist, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, artist)
	})
	if err != nil {
		return nil, err
	}
	return artist, nil
}

// CreateMany inserts artists in one transaction. Either all rows are written or none are.
func (r *ArtistRepository) CreateMany(ctx context.Context, artists []*models.Artist) ([]*models.Artist, error) {
	if len(artists) == 0 {
		return []*models.Artist{}, nil
	}

	staged := make([]*models.Artist, len(artists))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for i, artist := range artists {
			candidate := *artist
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

	for i, artist := range artists {
		*artist = *staged[i]
	}
	return artists, nil
}

func (r *ArtistRepository) insert(ctx context.Context, q querier, artist *models.Artist) error {
	if err := artist.Validate(); err != nil {
		return shared.WriteError(artistsTable, fmt.Errorf("validation failed: %w", err))
	}

	sequence, err := nextSequence(ctx, q, artistsTable)
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	id := shared.GenerateID()

	_, err = q.ExecContext(ctx, `
		INSERT INTO spotify_artists (id, sequence, spotify_id, name, spotify_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, sequence, artist.SpotifyID, artist.Name, artist.SpotifyURL, now, now)
	if err != nil {
		return insertError(artistsTable, artist.SpotifyID, err)
	}

	artist.ID = id
	artist.CreatedAt = now
	artist.UpdatedAt = now
	return nil
}

// Get retrieves an artist by store ID.
func (r *ArtistRepository) Get(ctx context.Context, id string) (*models.Artist, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+artistColumns+" FROM spotify_artists WHERE id = ?", id)
	artist, err := scanArtist(row)
	if err != nil {
		return nil, lookupError(artistsTable, id, err)
	}
	return artist, nil
}

// FindByNaturalKey retrieves an artist by Spotify ID.
func (r *ArtistRepository) FindByNaturalKey(ctx context.Context, spotifyID string) (*models.Artist, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+artistColumns+" FROM spotify_artists WHERE spotify_id = ?", spotifyID)
	artist, err := scanArtist(row)
	if err != nil {
		return nil, lookupError(artistsTable, spotifyID, err)
	}
	return artist, nil
}

// Update modifies the name and URL of an existing artist.
func (r *ArtistRepository) Update(ctx context.Context, artist *models.Artist) error {
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE spotify_artists SET name = ?, spotify_url = ?, updated_at = ? WHERE id = ?
	`, artist.Name, artist.SpotifyURL, now, artist.ID)
	if err != nil {
		return shared.WriteError(artistsTable, err)
	}
	if err := affectOne(result, artistsTable, artist.ID); err != nil {
		return err
	}

	artist.UpdatedAt = now
	return nil
}

// Delete removes an artist and, through cascading foreign keys, its relations.
func (r *ArtistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM spotify_artists WHERE id = ?", id)
	if err != nil {
		return shared.WriteError(artistsTable, err)
	}
	return affectOne(result, artistsTable, id)
}

// List pages through artists in insertion order.
func (r *ArtistRepository) List(ctx context.Context, limit, offset int) ([]*models.Artist, error) {
	limit, offset = pageArgs(limit, offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+artistColumns+" FROM spotify_artists ORDER BY sequence ASC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := []*models.Artist{}
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return artists, nil
}

func scanArtist(s scanner) (*models.Artist, error) {
	var a models.Artist
	if err := s.Scan(&a.ID, &a.SpotifyID, &a.Name, &a.SpotifyURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

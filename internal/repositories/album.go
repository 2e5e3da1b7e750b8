package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

const albumsTable = "spotify_albums"

const albumColumns = "id, spotify_id, name, release_date, spotify_url, album_type, created_at, updated_at"

// AlbumRepository implements models.EntityStore[*models.Album].
//
// Album artist keys are not columns; they are linked through [RelationRepository].
type AlbumRepository struct {
	db *sql.DB
}

// NewAlbumRepository creates a new AlbumRepository with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// Create inserts album with a generated ID and sequence.
func (r *AlbumRepository) Create(ctx context.Context, album *models.Album) (*models.Album, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, album)
	})
	if err != nil {
		return nil, err
	}
	return album, nil
}

// CreateMany inserts albums in one transaction.
func (r *AlbumRepository) CreateMany(ctx context.Context, albums []*models.Album) ([]*models.Album, error) {
	if len(albums) == 0 {
		return []*models.Album{}, nil
	}

	staged := make([]*models.Album, len(albums))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for i, album := range albums {
			candidate := *album
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

	for i, album := range albums {
		*album = *staged[i]
	}
	return albums, nil
}

func (r *AlbumRepository) insert(ctx context.Context, q querier, album *models.Album) error {
	if err := album.Validate(); err != nil {
		return shared.WriteError(albumsTable, fmt.Errorf("validation failed: %w", err))
	}

	sequence, err := nextSequence(ctx, q, albumsTable)
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	id := shared.GenerateID()

	_, err = q.ExecContext(ctx, `
		INSERT INTO spotify_albums (id, sequence, spotify_id, name, release_date, spotify_url, album_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, sequence, album.SpotifyID, album.Name, album.ReleaseDate, album.SpotifyURL, nullString(album.AlbumType), now, now)
	if err != nil {
		return insertError(albumsTable, album.SpotifyID, err)
	}

	album.ID = id
	album.CreatedAt = now
	album.UpdatedAt = now
	return nil
}

// Get retrieves an album by store ID.
func (r *AlbumRepository) Get(ctx context.Context, id string) (*models.Album, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+albumColumns+" FROM spotify_albums WHERE id = ?", id)
	album, err := scanAlbum(row)
	if err != nil {
		return nil, lookupError(albumsTable, id, err)
	}
	return album, nil
}

// FindByNaturalKey retrieves an album by Spotify ID.
func (r *AlbumRepository) FindByNaturalKey(ctx context.Context, spotifyID string) (*models.Album, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+albumColumns+" FROM spotify_albums WHERE spotify_id = ?", spotifyID)
	album, err := scanAlbum(row)
	if err != nil {
		return nil, lookupError(albumsTable, spotifyID, err)
	}
	return album, nil
}

// Update modifies the descriptive attributes of an existing album.
func (r *AlbumRepository) Update(ctx context.Context, album *models.Album) error {
	if err := album.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE spotify_albums
		SET name = ?, release_date = ?, spotify_url = ?, album_type = ?, updated_at = ?
		WHERE id = ?
	`, album.Name, album.ReleaseDate, album.SpotifyURL, nullString(album.AlbumType), now, album.ID)
	if err != nil {
		return shared.WriteError(albumsTable, err)
	}
	if err := affectOne(result, albumsTable, album.ID); err != nil {
		return err
	}

	album.UpdatedAt = now
	return nil
}

// Delete removes an album. Tracks still referencing it make this fail.
func (r *AlbumRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM spotify_albums WHERE id = ?", id)
	if err != nil {
		return shared.WriteError(albumsTable, err)
	}
	return affectOne(result, albumsTable, id)
}

// List pages through albums in insertion order.
func (r *AlbumRepository) List(ctx context.Context, limit, offset int) ([]*models.Album, error) {
	limit, offset = pageArgs(limit, offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+albumColumns+" FROM spotify_albums ORDER BY sequence ASC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	albums := []*models.Album{}
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return albums, nil
}

func scanAlbum(s scanner) (*models.Album, error) {
	var (
		a         models.Album
		albumType sql.NullString
	)
	if err := s.Scan(&a.ID, &a.SpotifyID, &a.Name, &a.ReleaseDate, &a.SpotifyURL, &albumType, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.AlbumType = albumType.String
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

const returnRepresentation = "return=representation"

// Store is a [models.EntityStore] backed by one PostgREST table.
type Store[T models.Entity] struct {
	client    *Client
	table     string
	keyColumn string
	row       func(T) map[string]any
}

// NewArtistStore returns the spotify_artists store.
func NewArtistStore(c *Client) *Store[*models.Artist] {
	return &Store[*models.Artist]{client: c, table: "spotify_artists", keyColumn: "spotify_id", row: artistRow}
}

// NewAlbumStore returns the spotify_albums store.
func NewAlbumStore(c *Client) *Store[*models.Album] {
	return &Store[*models.Album]{client: c, table: "spotify_albums", keyColumn: "spotify_id", row: albumRow}
}

// NewTrackStore returns the spotify_tracks store.
func NewTrackStore(c *Client) *Store[*models.Track] {
	return &Store[*models.Track]{client: c, table: "spotify_tracks", keyColumn: "spotify_track_id", row: trackRow}
}

func artistRow(a *models.Artist) map[string]any {
	return map[string]any{"spotify_id": a.SpotifyID, "name": a.Name, "spotify_url": a.SpotifyURL}
}

func albumRow(a *models.Album) map[string]any {
	row := map[string]any{
		"spotify_id":   a.SpotifyID,
		"name":         a.Name,
		"release_date": a.ReleaseDate,
		"spotify_url":  a.SpotifyURL,
	}
	if a.AlbumType != "" {
		row["album_type"] = a.AlbumType
	}
	return row
}

func trackRow(t *models.Track) map[string]any {
	return map[string]any{
		"spotify_track_id": t.SpotifyTrackID,
		"track_name":       t.Name,
		"spotify_url":      t.SpotifyURL,
		"added_at":         t.AddedAt.UTC().Format(time.RFC3339),
		"album_id":         t.AlbumID,
	}
}

// decode unmarshals a representation array.
func (s *Store[T]) decode(resp *response) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", s.table, err)
	}
	return rows, nil
}

// first fetches at most one row matching column against filter.
func (s *Store[T]) first(ctx context.Context, column, filter string) (T, error) {
	var zero T

	query := url.Values{}
	query.Set("select", "*")
	query.Set(column, filter)
	query.Set("limit", "1")

	resp, err := s.client.do(ctx, http.MethodGet, s.table, query, nil, "")
	if err != nil {
		return zero, fmt.Errorf("%w: %s lookup: %w", shared.ErrServiceUnavailable, s.table, err)
	}
	if !resp.ok() {
		return zero, fmt.Errorf("%w: %s lookup: %w", shared.ErrAPIRequest, s.table, resp.apiError())
	}

	rows, err := s.decode(resp)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("%w: %s %s=%s", shared.ErrNotFound, s.table, column, filter)
	}
	return rows[0], nil
}

func (s *Store[T]) FindByNaturalKey(ctx context.Context, key string) (T, error) {
	return s.first(ctx, s.keyColumn, eq(key))
}

func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	filter, err := idFilter(id)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.first(ctx, "id", filter)
}

// insert posts body and returns the decoded representation. key names the row in duplicate errors.
func (s *Store[T]) insert(ctx context.Context, body any, key string) ([]T, error) {
	resp, err := s.client.do(ctx, http.MethodPost, s.table, nil, body, returnRepresentation)
	if err != nil {
		return nil, shared.WriteError(s.table, err)
	}
	if resp.conflict() {
		return nil, shared.DuplicateError(s.table, key, resp.apiError())
	}
	if !resp.ok() {
		return nil, shared.WriteError(s.table, resp.apiError())
	}

	rows, err := s.decode(resp)
	if err != nil {
		return nil, shared.WriteError(s.table, err)
	}
	return rows, nil
}

func (s *Store[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	if err := entity.Validate(); err != nil {
		return zero, shared.WriteError(s.table, err)
	}

	rows, err := s.insert(ctx, s.row(entity), entity.NaturalKey())
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, shared.WriteError(s.table, nil)
	}
	return rows[0], nil
}

// CreateMany inserts entities in one bulk request, which PostgREST runs in a single transaction.
func (s *Store[T]) CreateMany(ctx context.Context, entities []T) ([]T, error) {
	if len(entities) == 0 {
		return []T{}, nil
	}

	body := make([]map[string]any, len(entities))
	for i, entity := range entities {
		if err := entity.Validate(); err != nil {
			return nil, shared.WriteError(s.table, fmt.Errorf("entity %d: %w", i, err))
		}
		body[i] = s.row(entity)
	}

	rows, err := s.insert(ctx, body, entities[0].NaturalKey())
	if err != nil {
		return nil, err
	}
	if len(rows) != len(entities) {
		return nil, shared.WriteError(s.table, fmt.Errorf("expected %d rows, got %d", len(entities), len(rows)))
	}
	return rows, nil
}

func (s *Store[T]) List(ctx context.Context, limit, offset int) ([]T, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.asc,id.asc")
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	resp, err := s.client.do(ctx, http.MethodGet, s.table, query, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s list: %w", shared.ErrServiceUnavailable, s.table, err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("%w: %s list: %w", shared.ErrAPIRequest, s.table, resp.apiError())
	}

	rows, err := s.decode(resp)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// mutate runs a PATCH or DELETE filtered by id and requires exactly one affected row.
func (s *Store[T]) mutate(ctx context.Context, method, id string, body any) error {
	filter, err := idFilter(id)
	if err != nil {
		return err
	}
	query := url.Values{}
	query.Set("id", filter)

	resp, err := s.client.do(ctx, method, s.table, query, body, returnRepresentation)
	if err != nil {
		return shared.WriteError(s.table, err)
	}
	if resp.conflict() {
		return shared.DuplicateError(s.table, id, resp.apiError())
	}
	if !resp.ok() {
		return shared.WriteError(s.table, resp.apiError())
	}

	rows, err := s.decode(resp)
	if err != nil {
		return shared.WriteError(s.table, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s %q", shared.ErrNotFound, s.table, id)
	}
	return nil
}

func (s *Store[T]) Update(ctx context.Context, entity T) error {
	if entity.StoreID() == "" {
		return fmt.Errorf("%w: %s update without id", shared.ErrInvalidInput, s.table)
	}
	if err := entity.Validate(); err != nil {
		return err
	}

	row := s.row(entity)
	row["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	return s.mutate(ctx, http.MethodPatch, entity.StoreID(), row)
}

func (s *Store[T]) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, http.MethodDelete, id, nil)
}

// package models defines the data model for the liked tracks library
package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/likesync/internal/shared"
)

// Entity is implemented by every persisted row with a natural key.
type Entity interface {
	NaturalKey() string // NaturalKey returns the Spotify identifier used for deduplication
	StoreID() string    // StoreID returns the store-assigned identifier, empty until persisted
	Validate() error    // Validate checks required fields before a write
}

// EntityStore defines the data access contract for one entity kind.
// Implementations handle translation between entities and store rows.
type EntityStore[T Entity] interface {
	FindByNaturalKey(ctx context.Context, key string) (T, error) // FindByNaturalKey returns shared.ErrNotFound when absent
	Get(ctx context.Context, id string) (T, error)                // Get retrieves an entity by store ID
	Create(ctx context.Context, entity T) (T, error)              // Create persists entity and returns it with its store ID populated
	CreateMany(ctx context.Context, entities []T) ([]T, error)    // CreateMany persists entities atomically, preserving order
	List(ctx context.Context, limit, offset int) ([]T, error)     // List pages through stored entities in insertion order
	Update(ctx context.Context, entity T) error                   // Update modifies mutable attributes of an existing entity
	Delete(ctx context.Context, id string) error                  // Delete removes an entity by store ID
}

// RelationStore persists many-to-many join rows.
type RelationStore interface {
	CreateRelation(ctx context.Context, kind RelationKind, leftID, rightID string) LinkResult
	ListRelations(ctx context.Context, kind RelationKind, leftID string) ([]string, error)
}

// EntityKind names a persisted entity type.
type EntityKind string

const (
	KindArtist EntityKind = "artist"
	KindAlbum  EntityKind = "album"
	KindTrack  EntityKind = "track"
)

// RelationKind names a join table.
type RelationKind string

const (
	TrackArtists RelationKind = "track_artists"
	AlbumArtists RelationKind = "album_artists"
)

// Table returns the backing table name.
func (k RelationKind) Table() string {
	return "spotify_" + string(k)
}

// Columns returns the left and right column names.
func (k RelationKind) Columns() (left, right string) {
	switch k {
	case TrackArtists:
		return "track_id", "artist_id"
	case AlbumArtists:
		return "album_id", "artist_id"
	default:
		return "", ""
	}
}

// Valid reports whether k is a known relation.
func (k RelationKind) Valid() bool {
	return k == TrackArtists || k == AlbumArtists
}

// LinkStatus is the outcome of a relation insert.
type LinkStatus int

const (
	LinkCreated LinkStatus = iota
	LinkExists
	LinkFailed
)

func (s LinkStatus) String() string {
	switch s {
	case LinkCreated:
		return "created"
	case LinkExists:
		return "exists"
	case LinkFailed:
		return "failed"
	default:
		return fmt.Sprintf("LinkStatus(%d)", int(s))
	}
}

// LinkResult reports what happened to one relation insert. Err is set only for [LinkFailed].
type LinkResult struct {
	Status LinkStatus
	Err    error
}

// Artist is a persisted Spotify artist.
type Artist struct {
	ID         string    `json:"id"`
	SpotifyID  string    `json:"spotify_id"`
	Name       string    `json:"name"`
	SpotifyURL string    `json:"spotify_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (a *Artist) NaturalKey() string { return a.SpotifyID }
func (a *Artist) StoreID() string    { return a.ID }

func (a *Artist) Validate() error {
	if a.SpotifyID == "" {
		return fmt.Errorf("%w: artist spotify_id is required", shared.ErrInvalidInput)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: artist %s name is required", shared.ErrInvalidInput, a.SpotifyID)
	}
	return nil
}

// Album is a persisted Spotify album.
//
// ArtistKeys holds the album-level artist natural keys in source order. They are
// not stored on the row; relations are kept in spotify_album_artists.
type Album struct {
	ID          string    `json:"id"`
	SpotifyID   string    `json:"spotify_id"`
	Name        string    `json:"name"`
	ReleaseDate string    `json:"release_date"`
	SpotifyURL  string    `json:"spotify_url"`
	AlbumType   string    `json:"album_type,omitempty"`
	ArtistKeys  []string  `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *Album) NaturalKey() string { return a.SpotifyID }
func (a *Album) StoreID() string    { return a.ID }

func (a *Album) Validate() error {
	if a.SpotifyID == "" {
		return fmt.Errorf("%w: album spotify_id is required", shared.ErrInvalidInput)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: album %s name is required", shared.ErrInvalidInput, a.SpotifyID)
	}
	return nil
}

// Track is a persisted liked track.
type Track struct {
	ID             string    `json:"id"`
	SpotifyTrackID string    `json:"spotify_track_id"`
	Name           string    `json:"track_name"`
	SpotifyURL     string    `json:"spotify_url"`
	AddedAt        time.Time `json:"added_at"`
	AlbumID        string    `json:"album_id"`
	ArtistKeys     []string  `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (t *Track) NaturalKey() string { return t.SpotifyTrackID }
func (t *Track) StoreID() string    { return t.ID }

// Validate requires the album reference, so a track can only be written once its album is resolved.
func (t *Track) Validate() error {
	if t.SpotifyTrackID == "" {
		return fmt.Errorf("%w: spotify_track_id is required", shared.ErrInvalidInput)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: track %s name is required", shared.ErrInvalidInput, t.SpotifyTrackID)
	}
	if t.AlbumID == "" {
		return fmt.Errorf("%w: track %s album_id is required", shared.ErrInvalidInput, t.SpotifyTrackID)
	}
	return nil
}

// SavedTrack is a stored track joined with its album and track-level artists.
type SavedTrack struct {
	*Track
	Album   *Album    `json:"album"` // nil when the album could not be loaded
	Artists []*Artist `json:"artists"`
}

// ArtistNames joins the artist names with commas.
func (s SavedTrack) ArtistNames() string {
	names := make([]string, len(s.Artists))
	for i, a := range s.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func (s SavedTrack) AlbumName() string {
	if s.Album == nil {
		return ""
	}
	return s.Album.Name
}

// ArtistDescriptor is an artist as embedded in a source record.
type ArtistDescriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AlbumDescriptor is an album as embedded in a source record.
type AlbumDescriptor struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ReleaseDate string             `json:"release_date"`
	URL         string             `json:"url"`
	AlbumType   string             `json:"album_type,omitempty"`
	Artists     []ArtistDescriptor `json:"artists"`
}

// SourceRecord is one liked track as fetched from Spotify, before normalization.
type SourceRecord struct {
	TrackID string             `json:"track_id"`
	Name    string             `json:"name"`
	URL     string             `json:"url"`
	AddedAt time.Time          `json:"added_at"`
	Artists []ArtistDescriptor `json:"artists"`
	Album   AlbumDescriptor    `json:"album"`
}

// NewArtist builds an unpersisted [Artist] from d.
func (d ArtistDescriptor) NewArtist() *Artist {
	return &Artist{SpotifyID: d.ID, Name: d.Name, SpotifyURL: d.URL}
}

// NewAlbum builds an unpersisted [Album] from d.
func (d AlbumDescriptor) NewAlbum() *Album {
	keys := make([]string, len(d.Artists))
	for i, a := range d.Artists {
		keys[i] = a.ID
	}
	return &Album{
		SpotifyID:   d.ID,
		Name:        d.Name,
		ReleaseDate: d.ReleaseDate,
		SpotifyURL:  d.URL,
		AlbumType:   d.AlbumType,
		ArtistKeys:  keys,
	}
}

// NewTrack builds an unpersisted [Track] referencing albumID.
func (r SourceRecord) NewTrack(albumID string) *Track {
	keys := make([]string, len(r.Artists))
	for i, a := range r.Artists {
		keys[i] = a.ID
	}
	return &Track{
		SpotifyTrackID: r.TrackID,
		Name:           r.Name,
		SpotifyURL:     r.URL,
		AddedAt:        r.AddedAt,
		AlbumID:        albumID,
		ArtistKeys:     keys,
	}
}

// RunStats are the counters produced by one reconciliation pass.
type RunStats struct {
	Processed         int `json:"processed"`
	TracksCreated     int `json:"tracks_created"`
	TracksSkipped     int `json:"tracks_skipped"`
	ArtistsCreated    int `json:"artists_created"`
	ArtistsSkipped    int `json:"artists_skipped"`
	AlbumsCreated     int `json:"albums_created"`
	AlbumsSkipped     int `json:"albums_skipped"`
	RelationsCreated  int `json:"relations_created"`
	RelationsExisting int `json:"relations_existing"`
	RelationsFailed   int `json:"relations_failed"`
	Failed            int `json:"failed"`
}

// Add accumulates other into s.
func (s *RunStats) Add(other RunStats) {
	s.Processed += other.Processed
	s.TracksCreated += other.TracksCreated
	s.TracksSkipped += other.TracksSkipped
	s.ArtistsCreated += other.ArtistsCreated
	s.ArtistsSkipped += other.ArtistsSkipped
	s.AlbumsCreated += other.AlbumsCreated
	s.AlbumsSkipped += other.AlbumsSkipped
	s.RelationsCreated += other.RelationsCreated
	s.RelationsExisting += other.RelationsExisting
	s.RelationsFailed += other.RelationsFailed
	s.Failed += other.Failed
}

// Package repositories implements SQLite persistence for the normalized liked-tracks library.
//
// Each repository satisfies [models.EntityStore] for one entity kind and handles CRUD operations with
// atomic sequence generation for insertion ordering. Natural keys are UNIQUE in the schema, so a
// concurrent writer that loses the race gets an error matching [shared.ErrDuplicateKey].
//
// Key Implementations:
//   - [ArtistRepository] : spotify_artists keyed by spotify_id
//   - [AlbumRepository] : spotify_albums keyed by spotify_id
//   - [TrackRepository] : spotify_tracks keyed by spotify_track_id
//   - [RelationRepository] : spotify_track_artists and spotify_album_artists join rows
//
// Sequence numbers provide stable ordering independent of UUIDs and creation timestamps.
// Each insert increments a per-table counter in a dedicated sequence table inside the same transaction.
package repositories

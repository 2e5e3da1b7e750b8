package tasks

import (
	"context"

	"github.com/desertthunder/likesync/internal/models"
)

// SavedTracks joins each track with its album and track-level artists, in input order.
//
// Lookup failures leave gaps (a nil album or a shorter artist list) and are logged at debug.
func (e *LibraryEngine) SavedTracks(ctx context.Context, tracks []*models.Track) []models.SavedTrack {
	out := make([]models.SavedTrack, 0, len(tracks))
	albums := map[string]*models.Album{}
	artists := map[string]*models.Artist{}

	for _, t := range tracks {
		saved := models.SavedTrack{Track: t, Artists: []*models.Artist{}}

		if album, ok := albums[t.AlbumID]; ok {
			saved.Album = album
		} else if album, err := e.stores.Albums.Get(ctx, t.AlbumID); err == nil {
			albums[t.AlbumID] = album
			saved.Album = album
		} else {
			e.logger.Debug("album lookup failed", "track", t.SpotifyTrackID, "err", err)
		}

		ids, err := e.stores.Relations.ListRelations(ctx, models.TrackArtists, t.ID)
		if err != nil {
			e.logger.Debug("artist links lookup failed", "track", t.SpotifyTrackID, "err", err)
		}
		for _, id := range ids {
			artist, ok := artists[id]
			if !ok {
				if artist, err = e.stores.Artists.Get(ctx, id); err != nil {
					e.logger.Debug("artist lookup failed", "track", t.SpotifyTrackID, "artist", id, "err", err)
					continue
				}
				artists[id] = artist
			}
			saved.Artists = append(saved.Artists, artist)
		}

		out = append(out, saved)
	}
	return out
}

package testing

import (
	"time"

	"github.com/desertthunder/likesync/internal/models"
)

// Artist returns a descriptor whose name and URL derive from id.
func Artist(id, name string) models.ArtistDescriptor {
	return models.ArtistDescriptor{ID: id, Name: name, URL: "https://open.spotify.com/artist/" + id}
}

// Record builds a liked-track source record. The album carries albumArtists.
func Record(trackID string, artists []models.ArtistDescriptor, albumID string, albumArtists []models.ArtistDescriptor) models.SourceRecord {
	return models.SourceRecord{
		TrackID: trackID,
		Name:    "Track " + trackID,
		URL:     "https://open.spotify.com/track/" + trackID,
		AddedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Artists: artists,
		Album: models.AlbumDescriptor{
			ID:          albumID,
			Name:        "Album " + albumID,
			ReleaseDate: "2020-01-01",
			URL:         "https://open.spotify.com/album/" + albumID,
			AlbumType:   "album",
			Artists:     albumArtists,
		},
	}
}

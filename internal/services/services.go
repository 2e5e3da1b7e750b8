// package services defines clients for the HTTP APIs likesync reads from
//
// Spotify
package services

import (
	"context"

	"github.com/desertthunder/likesync/internal/models"
)

// Authenticator performs the OAuth authorization-code flow.
type Authenticator interface {
	// AuthURL returns the provider consent page URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token and persists it.
	Exchange(ctx context.Context, code string) error
}

// LikedPage is one page of the user's liked tracks, already converted to source records.
type LikedPage struct {
	Records []models.SourceRecord // Records in library order
	Offset  int                   // Offset the page was requested at
	Limit   int                   // Effective page size
	Total   int                   // Total liked tracks reported by the provider
	HasNext bool                  // Whether another page follows
}

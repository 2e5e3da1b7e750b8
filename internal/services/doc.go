// Package services implements the Spotify Web API client that feeds the reconciler.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// Tokens come from a [shared.CredentialStore]; a refreshed token is written back to the store
// so the next process start picks it up.
//
// Requests are paced with a [rate.Limiter] shared by every call on the service.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no token has been saved yet
//   - [shared.ErrTokenExpired] : Spotify rejected the token, reauthorization needed
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrAuthFailed] : the authorization code exchange failed
//
// # API Mappings
//
// [ToSourceRecords] maps a [SpotifyPaginatedTracks] page to [models.SourceRecord] values,
// carrying external URLs, album type and album-level artists.
package services

// Spotify API implementation of the liked tracks source
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:3000/callback"
	defaultPageSize    = 10
	maxPageSize        = 50
)

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	AlbumType    string          `json:"album_type"`
	Artists      []SpotifyArtist `json:"artists"`
	ReleaseDate  string          `json:"release_date"`
	TotalTracks  int             `json:"total_tracks"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyOpts overrides endpoints and transport, mostly for tests.
type SpotifyOpts struct {
	BaseURL    string       // API root, defaults to the public Web API
	AuthURL    string       // Authorization endpoint
	TokenURL   string       // Token endpoint
	HTTPClient *http.Client // Base transport under the OAuth2 client
	RateLimit  float64      // Requests per second; zero disables pacing
}

// SpotifyService reads the user's liked tracks from the Spotify Web API.
// Uses [oauth2] for authentication with tokens held in a [shared.CredentialStore].
type SpotifyService struct {
	config     *oauth2.Config
	creds      *shared.CredentialStore
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(cfg shared.SpotifyConfig, creds *shared.CredentialStore, opts SpotifyOpts) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingCredentials)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: credential store", shared.ErrMissingArgument)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	endpoint := oauth2.Endpoint{AuthURL: spotifyAuthURL, TokenURL: spotifyTokenURL}
	if opts.AuthURL != "" {
		endpoint.AuthURL = opts.AuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"user-library-read"},
			Endpoint:     endpoint,
		},
		creds:      creds,
		baseURL:    spotifyBaseURL,
		httpClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		s.baseURL = opts.BaseURL
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return s, nil
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and saves it in the credential store.
func (s *SpotifyService) Exchange(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := s.config.Exchange(s.withClient(ctx), code)
	if err != nil {
		return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	if err := s.creds.Save(token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// withClient makes oauth2 use the configured base transport.
func (s *SpotifyService) withClient(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// client returns an HTTP client that authorizes requests with the stored token,
// refreshing it when it has expired.
func (s *SpotifyService) client(ctx context.Context) (*http.Client, error) {
	token, err := s.creds.Token()
	if err != nil {
		return nil, err
	}

	ctx = s.withClient(ctx)
	ts := &persistingTokenSource{
		base:  s.config.TokenSource(ctx, token),
		store: s.creds,
		last:  token.AccessToken,
	}
	return oauth2.NewClient(ctx, ts), nil
}

// persistingTokenSource saves every newly issued token back to the credential store.
type persistingTokenSource struct {
	base  oauth2.TokenSource
	store *shared.CredentialStore

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		if err := p.store.Save(token); err != nil {
			return nil, err
		}
		p.last = token.AccessToken
	}
	return token, nil
}

// doRequest performs an authenticated GET request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited, retry after %ss", shared.ErrAPIRequest, resp.Header.Get("Retry-After"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: spotify API error: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// clampPage normalizes pagination arguments to what /me/tracks accepts.
func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

// SavedTracks retrieves the user's saved tracks with pagination.
func (s *SpotifyService) SavedTracks(ctx context.Context, offset, limit int) (*SpotifyPaginatedTracks, error) {
	offset, limit = clampPage(offset, limit)

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, "/me/tracks?"+query.Encode(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// LikedTracks fetches one page and converts it to source records.
func (s *SpotifyService) LikedTracks(ctx context.Context, offset, limit int) (*LikedPage, error) {
	offset, limit = clampPage(offset, limit)

	page, err := s.SavedTracks(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	records, err := ToSourceRecords(page)
	if err != nil {
		return nil, err
	}

	return &LikedPage{
		Records: records,
		Offset:  offset,
		Limit:   limit,
		Total:   page.Total,
		HasNext: page.Next != nil && len(page.Items) > 0,
	}, nil
}

// ToSourceRecords converts a saved tracks page into source records.
//
// Items without a track (removed or local files) are dropped.
func ToSourceRecords(page *SpotifyPaginatedTracks) ([]models.SourceRecord, error) {
	records := make([]models.SourceRecord, 0, len(page.Items))

	for _, item := range page.Items {
		if item.Track == nil || item.Track.ID == "" {
			continue
		}

		addedAt, err := time.Parse(time.RFC3339, item.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: track %s added_at %q: %v", shared.ErrAPIRequest, item.Track.ID, item.AddedAt, err)
		}

		track := item.Track
		records = append(records, models.SourceRecord{
			TrackID: track.ID,
			Name:    track.Name,
			URL:     track.ExternalURLs.Spotify,
			AddedAt: addedAt.UTC(),
			Artists: toArtistDescriptors(track.Artists),
			Album: models.AlbumDescriptor{
				ID:          track.Album.ID,
				Name:        track.Album.Name,
				ReleaseDate: track.Album.ReleaseDate,
				URL:         track.Album.ExternalURLs.Spotify,
				AlbumType:   track.Album.AlbumType,
				Artists:     toArtistDescriptors(track.Album.Artists),
			},
		})
	}
	return records, nil
}

func toArtistDescriptors(artists []SpotifyArtist) []models.ArtistDescriptor {
	out := make([]models.ArtistDescriptor, len(artists))
	for i, a := range artists {
		out[i] = models.ArtistDescriptor{ID: a.ID, Name: a.Name, URL: a.ExternalURLs.Spotify}
	}
	return out
}

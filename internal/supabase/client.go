package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/likesync/internal/shared"
)

const (
	restPath        = "/rest/v1/"
	uniqueViolation = "23505"
)

// Client performs PostgREST requests against one Supabase project.
type Client struct {
	baseURL    string
	key        string
	schema     string
	httpClient *http.Client
}

// NewClient creates a client from cfg. A nil httpClient gets one with the configured timeout.
func NewClient(cfg shared.SupabaseConfig, httpClient *http.Client) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: supabase url", shared.ErrMissingConfig)
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("%w: supabase service_key", shared.ErrMissingCredentials)
	}

	if httpClient == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		key:        cfg.ServiceKey,
		schema:     cfg.Schema,
		httpClient: httpClient,
	}, nil
}

// response is a raw PostgREST response.
type response struct {
	StatusCode int
	Body       []byte
}

func (r *response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s): %s", e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// conflict reports whether the response is a uniqueness violation.
//
// PostgREST answers 409 for foreign key violations too, so a body carrying a
// SQLSTATE decides; a bare 409 without one is taken as a conflict.
func (r *response) conflict() bool {
	if r.ok() {
		return false
	}
	if code := r.apiError().Code; code != "" {
		return code == uniqueViolation
	}
	return r.StatusCode == http.StatusConflict
}

// apiError decodes the error body, falling back to the raw text.
func (r *response) apiError() *apiError {
	var e apiError
	if err := json.Unmarshal(r.Body, &e); err != nil || e.Message == "" {
		e.Message = fmt.Sprintf("status %d: %s", r.StatusCode, strings.TrimSpace(string(r.Body)))
	}
	return &e
}

// do sends a request for table. body, when non-nil, is JSON encoded. prefer sets the Prefer header.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, prefer string) (*response, error) {
	fullURL := c.baseURL + restPath + table
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s row: %w", table, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if c.schema != "" {
		req.Header.Set("Accept-Profile", c.schema)
		req.Header.Set("Content-Profile", c.schema)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &response{StatusCode: resp.StatusCode, Body: data}, nil
}

// eq builds a PostgREST equality filter.
func eq(value string) string {
	return "eq." + value
}

// idFilter builds an equality filter on a store ID in its canonical form.
func idFilter(id string) (string, error) {
	canonical, err := shared.CanonicalID(id)
	if err != nil {
		return "", err
	}
	return eq(canonical), nil
}

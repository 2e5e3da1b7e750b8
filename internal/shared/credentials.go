package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// CredentialStore holds the Spotify OAuth token persisted at a JSON file.
//
// It is loaded once at startup and shared by pointer with the components that need a bearer credential.
// Save is called on login and whenever the token source refreshes the token.
type CredentialStore struct {
	path  string
	mu    sync.RWMutex
	token *oauth2.Token
}

// NewCredentialStore returns an empty store backed by path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// LoadCredentialStore reads the token at path. A missing file yields an empty store.
func LoadCredentialStore(path string) (*CredentialStore, error) {
	store := NewCredentialStore(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: token file %s: %v", ErrInvalidConfig, path, err)
	}
	if token.AccessToken != "" || token.RefreshToken != "" {
		store.token = &token
	}
	return store, nil
}

// Path returns the backing file.
func (c *CredentialStore) Path() string {
	return c.path
}

// Token returns a copy of the current token, or [ErrNotAuthenticated] when there is none.
func (c *CredentialStore) Token() (*oauth2.Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == nil {
		return nil, ErrNotAuthenticated
	}
	tok := *c.token
	return &tok, nil
}

// Authenticated reports whether a token is held.
func (c *CredentialStore) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != nil
}

// Save replaces the held token and writes it to disk with owner-only permissions.
func (c *CredentialStore) Save(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidInput)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	tok := *token
	c.token = &tok
	return nil
}

// Clear forgets the token and removes the backing file.
func (c *CredentialStore) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = nil
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

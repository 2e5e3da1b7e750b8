package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/desertthunder/likesync/internal/tasks"
)

const (
	defaultSyncLimit = 10
	maxPageLimit     = 50
	stateTTL         = 10 * time.Minute
)

// APIOpts wires the API to its collaborators.
type APIOpts struct {
	Auth         services.Authenticator
	Credentials  *shared.CredentialStore
	Source       tasks.LikedSource
	Engine       *tasks.LibraryEngine
	Tracks       models.EntityStore[*models.Track]
	CallbackPath string // Extra path for the OAuth redirect, e.g. "/callback"
	Logger       *log.Logger
}

// API serves the likesync JSON endpoints.
type API struct {
	opts   APIOpts
	logger *log.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// NewAPI creates an API. A nil logger writes to stderr.
func NewAPI(opts APIOpts) *API {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{opts: opts, logger: logger, states: make(map[string]time.Time)}
}

// Register adds every API route to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.root))
	r.Handle(http.MethodGet, "/api/v1/auth/login", http.HandlerFunc(a.login))
	r.Handle(http.MethodGet, "/api/v1/auth/callback", http.HandlerFunc(a.callback))
	r.Handle(http.MethodGet, "/api/v1/auth/status", http.HandlerFunc(a.status))
	r.Handle(http.MethodGet, "/api/v1/tracks/sync", http.HandlerFunc(a.syncTracks))
	r.Handle(http.MethodGet, "/api/v1/tracks", http.HandlerFunc(a.listTracks))

	if p := a.opts.CallbackPath; p != "" && p != "/api/v1/auth/callback" {
		r.Handle(http.MethodGet, p, http.HandlerFunc(a.callback))
	}
}

type messageResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (a *API) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Welcome to the likesync API"})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		a.logger.Error("failed to generate state", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	a.mu.Lock()
	now := time.Now()
	for s, issued := range a.states {
		if now.Sub(issued) > stateTTL {
			delete(a.states, s)
		}
	}
	a.states[state] = now
	a.mu.Unlock()

	authURL := a.opts.Auth.AuthURL(state)
	a.logger.Info("issued spotify authorization url")
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": authURL})
}

// consumeState reports whether state was issued by login and is still fresh. A state is valid once.
func (a *API) consumeState(state string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	issued, ok := a.states[state]
	delete(a.states, state)
	return ok && time.Since(issued) <= stateTTL
}

func (a *API) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if !a.consumeState(query.Get("state")) {
		a.logger.Warn("callback with unknown state")
		writeJSON(w, http.StatusBadRequest, messageResponse{Status: "error", Message: shared.ErrInvalidState.Error()})
		return
	}

	code := query.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{
			Status:  "error",
			Message: fmt.Sprintf("authorization denied: %s", query.Get("error")),
		})
		return
	}

	if err := a.opts.Auth.Exchange(r.Context(), code); err != nil {
		a.logger.Error("token exchange failed", "err", err)
		writeJSON(w, http.StatusBadGateway, messageResponse{Status: "error", Message: "could not obtain an access token"})
		return
	}

	a.logger.Info("spotify token stored", "path", a.opts.Credentials.Path())
	writeJSON(w, http.StatusOK, messageResponse{
		Status:  "success",
		Message: "Authentication complete. You can close this tab.",
	})
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	status := "not authenticated"
	if a.opts.Credentials.Authenticated() {
		status = "authenticated"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// syncResponse replaces the flat stored tracks with tracks joined to their album and artists.
type syncResponse struct {
	*tasks.SyncResult
	Tracks []models.SavedTrack `json:"tracks"`
}

// pageParams parses offset and limit, requiring offset >= 0 and 1 <= limit <= 50.
func pageParams(r *http.Request, defaultLimit int) (offset, limit int, err error) {
	offset, limit = 0, defaultLimit
	query := r.URL.Query()

	if v := query.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset must be an integer >= 0", shared.ErrInvalidArgument)
		}
	}
	if v := query.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, fmt.Errorf("%w: limit must be an integer between 1 and %d", shared.ErrInvalidArgument, maxPageLimit)
		}
	}
	return offset, limit, nil
}

func (a *API) syncTracks(w http.ResponseWriter, r *http.Request) {
	if !a.opts.Credentials.Authenticated() {
		writeError(w, http.StatusUnauthorized, "not authenticated with Spotify, visit /api/v1/auth/login")
		return
	}

	offset, limit, err := pageParams(r, defaultSyncLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a.logger.Info("syncing liked tracks", "offset", offset, "limit", limit)
	result, err := a.opts.Engine.SyncLiked(r.Context(), a.opts.Source, tasks.SyncOpts{Offset: offset, Limit: limit}, nil)
	switch {
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		a.logger.Error("sync failed", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		SyncResult: result,
		Tracks:     a.opts.Engine.SavedTracks(r.Context(), result.Tracks),
	})
}

func (a *API) listTracks(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r, maxPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tracks, err := a.opts.Tracks.List(r.Context(), limit, offset)
	if err != nil {
		a.logger.Error("failed to list tracks", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list tracks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks": a.opts.Engine.SavedTracks(r.Context(), tracks),
		"offset": offset,
		"limit":  limit,
	})
}

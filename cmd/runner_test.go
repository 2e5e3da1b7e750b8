package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/desertthunder/likesync/internal/tasks"
	tu "github.com/desertthunder/likesync/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// fakeSpotify serves records from memory and saves a token on exchange.
type fakeSpotify struct {
	creds   *shared.CredentialStore
	records []models.SourceRecord
	err     error
	codes   []string
}

func (f *fakeSpotify) AuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeSpotify) Exchange(ctx context.Context, code string) error {
	f.codes = append(f.codes, code)
	return f.creds.Save(&oauth2.Token{AccessToken: "access-" + code, TokenType: "Bearer"})
}

func (f *fakeSpotify) LikedTracks(ctx context.Context, offset, limit int) (*services.LikedPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	start := min(offset, len(f.records))
	end := min(offset+limit, len(f.records))
	return &services.LikedPage{
		Records: f.records[start:end],
		Offset:  offset,
		Limit:   limit,
		Total:   len(f.records),
		HasNext: end < len(f.records),
	}, nil
}

type fixture struct {
	runner  *Runner
	output  *bytes.Buffer
	creds   *shared.CredentialStore
	spotify *fakeSpotify
	stores  tasks.Stores
}

func memStores() tasks.Stores {
	return tasks.Stores{
		Artists:   tu.NewArtistStore(),
		Albums:    tu.NewAlbumStore(),
		Tracks:    tu.NewTrackStore(),
		Relations: tu.NewRelationStore(),
	}
}

func openMem(stores tasks.Stores) StoreOpener {
	return func(context.Context, *shared.Config, *http.Client) (tasks.Stores, io.Closer, error) {
		return stores, closerFunc(func() error { return nil }), nil
	}
}

func setupRunner(t *testing.T, authenticated bool) *fixture {
	t.Helper()

	config := shared.DefaultConfig()
	config.Auth.TokenPath = filepath.Join(t.TempDir(), "token.json")
	creds := shared.NewCredentialStore(config.Auth.TokenPath)
	if authenticated {
		if err := creds.Save(&oauth2.Token{AccessToken: "access", TokenType: "Bearer"}); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
	}

	f := &fixture{
		output: &bytes.Buffer{},
		creds:  creds,
		stores: memStores(),
	}
	f.spotify = &fakeSpotify{
		creds: creds,
		records: []models.SourceRecord{
			tu.Record("T1", []models.ArtistDescriptor{tu.Artist("A1", "Alice")}, "AL1", []models.ArtistDescriptor{tu.Artist("A1", "Alice")}),
			tu.Record("T2", []models.ArtistDescriptor{tu.Artist("A2", "Bob")}, "AL1", []models.ArtistDescriptor{tu.Artist("A1", "Alice")}),
			tu.Record("T3", []models.ArtistDescriptor{tu.Artist("A1", "Alice"), tu.Artist("A2", "Bob")}, "AL2", []models.ArtistDescriptor{tu.Artist("A2", "Bob")}),
		},
	}
	f.runner = NewRunner(RunnerOpts{
		Config:      config,
		Credentials: creds,
		Spotify:     f.spotify,
		Logger:      shared.NewLogger(io.Discard),
		Output:      f.output,
		Stores:      openMem(f.stores),
	})
	return f
}

// run executes args against the runner's command tree.
func (f *fixture) run(args ...string) error {
	app := &cli.Command{Name: "likesync", Commands: f.runner.register()}
	return app.Run(context.Background(), append([]string{"likesync"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			creds := shared.NewCredentialStore("token.json")
			spotify := &fakeSpotify{}

			runner := NewRunner(RunnerOpts{
				Config:      config,
				ConfigPath:  "/test/path/config.toml",
				Credentials: creds,
				Logger:      logger,
				Output:      output,
				HTTPClient:  httpClient,
				Spotify:     spotify,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.creds != creds {
				t.Error("expected credentials to be set")
			}
			if runner.spotify != spotify {
				t.Error("expected spotify to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.creds == nil || runner.creds.Path() != runner.config.Auth.TokenPath {
				t.Error("expected an empty credential store at the configured token path")
			}
			if runner.openStores == nil || runner.openBrowser == nil {
				t.Error("expected default store opener and browser")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("expected compact JSON, got %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			lw := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &lw})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("Hello %s %d", "world", 42); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "Hello world 42" {
				t.Errorf("expected 'Hello world 42', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("done")
			if output.String() != "\ndone\n" {
				t.Errorf("expected surrounding newlines, got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "sync", "library", "serve"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("command %d: expected %s, got %s", i, name, commands[i].Name)
			}
		}
	})

	t.Run("callbackAddr", func(t *testing.T) {
		tests := []struct {
			name     string
			redirect string
			wantAddr string
			wantPath string
		}{
			{"redirect URI", "http://127.0.0.1:8888/auth/done", "127.0.0.1:8888", "/auth/done"},
			{"no path", "http://localhost:9000", "localhost:9000", "/callback"},
			{"empty falls back to server", "", "127.0.0.1:3000", "/callback"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				config := shared.DefaultConfig()
				config.Credentials.Spotify.RedirectURI = tt.redirect
				runner := NewRunner(RunnerOpts{Config: config})

				addr, path := runner.callbackAddr()
				if addr != tt.wantAddr || path != tt.wantPath {
					t.Errorf("expected %s%s, got %s%s", tt.wantAddr, tt.wantPath, addr, path)
				}
			})
		}
	})
}

func TestAuthCommands(t *testing.T) {
	freeAddr := func(t *testing.T) string {
		t.Helper()
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		addr := l.Addr().String()
		l.Close()
		return addr
	}

	// visit plays the browser: it follows the consent redirect straight to the callback.
	visit := func(addr, code string) func(string) error {
		return func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			callback := fmt.Sprintf("http://%s/callback?code=%s&state=%s", addr, code, url.QueryEscape(u.Query().Get("state")))
			go func() {
				if resp, err := http.Get(callback); err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}
	}

	t.Run("Login", func(t *testing.T) {
		f := setupRunner(t, false)
		addr := freeAddr(t)
		f.runner.config.Credentials.Spotify.RedirectURI = "http://" + addr + "/callback"
		f.runner.openBrowser = visit(addr, "abc")

		if err := f.run("auth", "login"); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		if len(f.spotify.codes) != 1 || f.spotify.codes[0] != "abc" {
			t.Errorf("expected code abc to be exchanged, got %v", f.spotify.codes)
		}
		if !f.creds.Authenticated() {
			t.Error("expected token to be stored")
		}
		if content := tu.MustReadFile(t, f.creds.Path()); !strings.Contains(content, "access-abc") {
			t.Errorf("expected token file to hold the exchanged token, got %s", content)
		}
		if !strings.Contains(f.output.String(), "Authorization successful") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
	})

	t.Run("Login Prints URL When Browser Fails", func(t *testing.T) {
		f := setupRunner(t, false)
		addr := freeAddr(t)
		f.runner.config.Credentials.Spotify.RedirectURI = "http://" + addr + "/callback"
		open := visit(addr, "xyz")
		f.runner.openBrowser = func(authURL string) error {
			open(authURL)
			return errors.New("no browser")
		}

		if err := f.run("auth", "login"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "https://accounts.example.com/authorize?state=") {
			t.Errorf("expected auth URL in output, got %s", f.output.String())
		}
	})

	t.Run("Login Without Credentials", func(t *testing.T) {
		f := setupRunner(t, false)
		f.runner.spotify = nil

		if err := f.run("auth", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Status", func(t *testing.T) {
		f := setupRunner(t, false)
		if err := f.run("auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Not authenticated") {
			t.Errorf("expected not authenticated, got %s", f.output.String())
		}

		f = setupRunner(t, true)
		if err := f.run("auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "✓ Authenticated") || !strings.Contains(f.output.String(), "Expires: never") {
			t.Errorf("expected authenticated status, got %s", f.output.String())
		}
	})

	t.Run("Logout", func(t *testing.T) {
		f := setupRunner(t, true)

		if err := f.run("auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if f.creds.Authenticated() {
			t.Error("expected token to be cleared")
		}
		if _, err := os.Stat(f.creds.Path()); !os.IsNotExist(err) {
			t.Errorf("expected token file removed, got %v", err)
		}
	})
}

func TestSyncCommand(t *testing.T) {
	t.Run("Plain Summary", func(t *testing.T) {
		f := setupRunner(t, true)

		if err := f.run("sync", "--limit", "3"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		out := f.output.String()
		for _, want := range []string{"Reconciled 3 liked tracks", "1 pages, 3 of 3 liked tracks"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("JSON Output", func(t *testing.T) {
		f := setupRunner(t, true)

		if err := f.run("sync", "--all", "--json"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		var result tasks.SyncResult
		if err := json.Unmarshal(f.output.Bytes(), &result); err != nil {
			t.Fatalf("failed to decode output: %v\n%s", err, f.output.String())
		}
		if len(result.Tracks) != 3 || result.Stats.TracksCreated != 3 || result.Stats.ArtistsCreated != 2 || result.Stats.AlbumsCreated != 2 {
			t.Errorf("unexpected result: %+v", result.Stats)
		}
	})

	t.Run("Second Run Skips Everything", func(t *testing.T) {
		f := setupRunner(t, true)
		if err := f.run("sync", "--limit", "3"); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}
		f.output.Reset()

		if err := f.run("sync", "--limit", "3", "--json"); err != nil {
			t.Fatalf("second sync failed: %v", err)
		}
		var result tasks.SyncResult
		if err := json.Unmarshal(f.output.Bytes(), &result); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if result.Stats.TracksSkipped != 3 || result.Stats.TracksCreated != 0 {
			t.Errorf("expected all tracks skipped, got %+v", result.Stats)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tests := []struct {
			name    string
			auth    bool
			noSpot  bool
			srcErr  error
			args    []string
			wantErr error
		}{
			{"not authenticated", false, false, nil, []string{"sync"}, shared.ErrNotAuthenticated},
			{"no spotify credentials", true, true, nil, []string{"sync"}, shared.ErrMissingCredentials},
			{"limit too large", true, false, nil, []string{"sync", "--limit", "51"}, shared.ErrInvalidArgument},
			{"negative offset", true, false, nil, []string{"sync", "--offset=-1"}, shared.ErrInvalidArgument},
			{"expired token", true, false, shared.ErrTokenExpired, []string{"sync"}, shared.ErrTokenExpired},
			{"api failure", true, false, shared.ErrAPIRequest, []string{"sync"}, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := setupRunner(t, tt.auth)
				f.spotify.err = tt.srcErr
				if tt.noSpot {
					f.runner.spotify = nil
				}

				err := f.run(tt.args...)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})
}

func TestLibraryCommand(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		f := setupRunner(t, true)
		if err := f.run("library"); err != nil {
			t.Fatalf("library failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "No tracks stored yet") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
	})

	t.Run("After Sync", func(t *testing.T) {
		f := setupRunner(t, true)
		if err := f.run("sync", "--limit", "3"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		f.output.Reset()

		if err := f.run("library", "--limit", "2"); err != nil {
			t.Fatalf("library failed: %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "1. Alice - Track T1") || !strings.Contains(out, "2. Bob - Track T2") || strings.Contains(out, "Track T3") {
			t.Errorf("unexpected listing:\n%s", out)
		}
	})

	t.Run("Markdown Export", func(t *testing.T) {
		f := setupRunner(t, true)
		if err := f.run("sync", "--limit", "3"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		f.output.Reset()

		target := filepath.Join(t.TempDir(), "library.md")
		if err := f.run("library", "--format", "md", "--output", target); err != nil {
			t.Fatalf("library failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Exported 3 tracks") {
			t.Errorf("unexpected output: %s", f.output.String())
		}

		content := tu.MustReadFile(t, target)
		if !strings.Contains(content, "(Album AL2)") || !strings.Contains(content, "Alice, Bob") {
			t.Errorf("unexpected export:\n%s", content)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		f := setupRunner(t, true)
		if err := f.run("library", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		f := setupRunner(t, true)
		if err := f.run("sync", "--limit", "3"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		f.output.Reset()

		if err := f.run("library", "--json", "--offset", "1"); err != nil {
			t.Fatalf("library failed: %v", err)
		}
		var tracks []models.SavedTrack
		if err := json.Unmarshal(f.output.Bytes(), &tracks); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(tracks) != 2 || tracks[0].SpotifyTrackID != "T2" {
			t.Fatalf("unexpected tracks: %+v", tracks)
		}
		if tracks[0].Album == nil || len(tracks[0].Artists) == 0 {
			t.Errorf("expected album and artists joined, got %+v", tracks[0])
		}
	})

	t.Run("Store Transport Errors", func(t *testing.T) {
		tests := []struct {
			name      string
			transport http.RoundTripper
		}{
			{"dial failure", tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
			{"body read failure", tu.NewMockRoundTripper(&http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}, nil)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				config := shared.DefaultConfig()
				config.Store.Driver = shared.StoreDriverSupabase
				config.Store.Supabase.URL = "https://project.supabase.co"
				config.Store.Supabase.ServiceKey = "service-key"

				runner := NewRunner(RunnerOpts{
					Config:     config,
					Logger:     shared.NewLogger(io.Discard),
					Output:     &bytes.Buffer{},
					HTTPClient: &http.Client{Transport: tt.transport},
				})
				app := &cli.Command{Name: "likesync", Commands: runner.register()}

				err := app.Run(context.Background(), []string{"likesync", "library"})
				if err == nil || !strings.Contains(err.Error(), "failed to list tracks") {
					t.Errorf("expected list failure, got %v", err)
				}
			})
		}
	})
}

func TestOpenStores(t *testing.T) {
	t.Run("SQLite", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "likesync.db")

		stores, closer, err := openStores(context.Background(), config, nil)
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer closer.Close()

		artist, err := stores.Artists.Create(context.Background(), &models.Artist{SpotifyID: "A1", Name: "Alice"})
		if err != nil {
			t.Fatalf("expected migrated schema, got %v", err)
		}
		if artist.ID == "" {
			t.Error("expected store-assigned id")
		}
	})

	t.Run("Supabase Missing URL", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Store.Driver = shared.StoreDriverSupabase

		if _, _, err := openStores(context.Background(), config, nil); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Unknown Driver", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Store.Driver = "mongo"

		if _, _, err := openStores(context.Background(), config, nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestAPIHandler(t *testing.T) {
	f := setupRunner(t, true)

	handler, closer, err := f.runner.apiHandler(context.Background())
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	defer closer.Close()

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/tracks/sync?limit=2")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Tracks []models.Track  `json:"tracks"`
		Stats  models.RunStats `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body.Tracks) != 2 || body.Stats.Processed != 2 {
		t.Errorf("unexpected body: %+v", body)
	}
}

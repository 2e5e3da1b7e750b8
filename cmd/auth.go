package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/likesync/internal/server"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization-code flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for consent, and persists the exchanged token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	if err := r.doOAuth(ctx); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", r.creds.Path())
	return r.writePlain("You can now use: likesync sync\n")
}

// AuthStatus reports whether a token is stored and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	token, err := r.creds.Token()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		r.writePlain("Authentication: ✗ Not authenticated\n")
		return r.writePlain("Run 'likesync auth login' to connect your Spotify account\n")
	}
	if err != nil {
		return err
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	r.writePlain("Token file: %s\n", r.creds.Path())
	switch {
	case token.Expiry.IsZero():
		r.writePlain("Expires: never\n")
	case token.Expiry.Before(time.Now()):
		r.writePlain("Expires: expired %s (refreshes on next request)\n", token.Expiry.Format(time.RFC3339))
	default:
		r.writePlain("Expires: %s\n", token.Expiry.Format(time.RFC3339))
	}
	return nil
}

// AuthLogout removes the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.creds.Clear(); err != nil {
		return err
	}
	r.logger.Info("token cleared", "path", r.creds.Path())
	return r.writePlain("✓ Logged out\n")
}

// callbackAddr splits the configured redirect URI into a listen address and callback path.
// Without a usable redirect URI the server config is used with the default path.
func (r *Runner) callbackAddr() (addr, path string) {
	addr, path = r.config.Server.Addr(), "/callback"

	u, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || u.Host == "" {
		return addr, path
	}
	if u.Path != "" {
		path = u.Path
	}
	return u.Host, path
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context) error {
	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	addr, path := r.callbackAddr()
	authURL := r.spotify.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(r.spotify, state, path)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", addr)
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", loginTimeout)

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, loginTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}
	return nil
}

// Package server provides HTTP routing, middleware, the likesync JSON API and the CLI OAuth callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [Logging] and [Recover] are the middleware used by `likesync serve`.
//
// # API
//
// [API] registers the JSON endpoints:
//
//	GET /                      → welcome message
//	GET /api/v1/auth/login     → {"auth_url": ...}
//	GET /api/v1/auth/callback  → exchanges the code and saves the token
//	GET /api/v1/auth/status    → {"status": "authenticated" | "not authenticated"}
//	GET /api/v1/tracks/sync    → fetches one page of liked tracks and reconciles it
//	GET /api/v1/tracks         → stored tracks
//
// A single bad record never fails a sync request; it is reported in the "failures" array.
//
// # OAuth Callback Handler
//
// OAuthHandler serves the one-shot callback for `likesync auth login`. It validates the state
// parameter, exchanges the code through a [services.Authenticator] and reports the outcome once
// through a channel.
package server

// Package server hosts the temporary localhost HTTP server used during
// Spotify authorization.
//
// The [Router] interface defines HTTP routing with middleware support;
// [Middleware] wraps handlers in reverse order (last added executes first).
// [BasicRouter] uses [http.ServeMux] internally with method filtering.
//
// OAuthHandler implements the OAuth2 authorization-code callback: it
// validates the state parameter (CSRF protection), exchanges the code for
// tokens, and delivers the result over a channel. It processes exactly one
// callback to prevent replay.
//
// When the user runs `sputifix spotify auth`, the CLI starts this server on
// the configured redirect address, opens the authorization URL in the
// browser, waits for the callback, and shuts the server down.
package server

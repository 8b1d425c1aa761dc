// Package server provides HTTP routing, middleware, and OAuth callback
// handling for the Spotify tool server.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [CallbackHandler] completes the OAuth2 authorization code flow. The state
// parameter is matched against the pending-authorization store, so only a
// prompt the dispatcher actually issued can be redeemed. An unknown or
// expired state never reaches the token exchange. Each invocation also
// sweeps pending entries older than [models.MaxPendingAge].
//
// The same handler serves two modes: mounted on the long-running HTTP
// server alongside the MCP transport, or on a temporary localhost server
// started by the CLI auth command, which uses [CallbackHandler.OnComplete]
// to shut down once a session is stored.
//
// # HTTP Surface
//
// [New] assembles the full handler: the MCP streamable transport at /mcp,
// /callback, a /widget preview of the search results template, and /health.
package server

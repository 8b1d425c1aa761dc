package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// localSession identifies the single caller of CLI-initiated flows and of
// the stdio transport.
const localSession = "local"

// AuthLogin runs the OAuth2 authorization code flow from the terminal.
//
// Starts a local HTTP server, opens the browser for user consent, and stores
// the resulting session under the local identifier.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	state := shared.GenerateID()
	if err := r.pending.Set(&models.PendingAuth{
		State:     state,
		SessionID: localSession,
		CreatedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to record pending authorization: %w", err)
	}

	done := make(chan string, 1)
	callback := server.NewCallbackHandler(server.CallbackOpts{
		Exchanger: r.spotify,
		Sessions:  r.sessions,
		Pending:   r.pending,
		Logger:    r.logger,
	})
	callback.OnComplete = func(sessionID string) { done <- sessionID }

	router := server.NewBasicRouter()
	router.Handler(callback)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting callback server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	authURL := r.spotify.AuthCodeURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	select {
	case sessionID := <-done:
		r.writePlainln("%s Authorization successful", r.palette.OK("✓"))
		r.writePlain("Session stored as %q. You can now run: spx serve\n", sessionID)
		return nil
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("authorization timed out after 2 minutes")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthStatus reports whether a local session exists and whether its access
// token is still valid.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	session, err := r.sessions.Get(localSession)
	if err != nil {
		r.writePlain("%s Not authenticated. Run: spx auth login\n", r.palette.Warn("✗"))
		return nil
	}

	r.writePlain("%s Authenticated\n", r.palette.OK("✓"))
	if session.Expired(time.Now()) {
		r.writePlain("Access token expired at %s (will refresh on next call)\n", session.ExpiresAt.Format(time.RFC3339))
	} else {
		r.writePlain("Access token valid until %s\n", session.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// AuthLogout discards the local session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.sessions.Delete(localSession); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return r.writePlain("%s Logged out\n", r.palette.OK("✓"))
}

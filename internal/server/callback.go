package server

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
)

// Exchanger swaps an authorization code for an OAuth2 token.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// CallbackHandler completes the OAuth2 authorization code flow. It matches
// the state parameter against the pending store, exchanges the code, and
// saves the resulting session under the identifier the prompt was issued for.
//
// Implements the [Handler] interface for registration with a [Router].
type CallbackHandler struct {
	exchanger Exchanger
	sessions  auth.SessionStore
	pending   auth.PendingStore
	logger    *log.Logger
	now       func() time.Time

	// OnComplete, when set, is invoked after a session is stored. The CLI
	// auth command uses it to shut down the temporary server.
	OnComplete func(sessionID string)
}

// CallbackOpts contains configuration options for creating a CallbackHandler.
type CallbackOpts struct {
	Exchanger Exchanger
	Sessions  auth.SessionStore
	Pending   auth.PendingStore
	Logger    *log.Logger
	Now       func() time.Time
}

// NewCallbackHandler creates a CallbackHandler with the provided dependencies.
func NewCallbackHandler(opts CallbackOpts) *CallbackHandler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &CallbackHandler{
		exchanger: opts.Exchanger,
		sessions:  opts.Sessions,
		pending:   opts.Pending,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Every invocation sweeps stale pending authorizations, so an abandoned
// prompt cannot be redeemed later even if no successful callback follows it.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if n := h.pending.Sweep(models.MaxPendingAge, h.now()); n > 0 {
		h.logger.Debug("swept stale pending authorizations", "count", n)
	}

	query := r.URL.Query()
	state := query.Get("state")
	code := query.Get("code")

	if state == "" || code == "" {
		if errParam := query.Get("error"); errParam != "" {
			h.logger.Warn("authorization denied", "error", errParam, "description", query.Get("error_description"))
			h.fail(w, http.StatusBadRequest, "Spotify reported: "+errParam)
			return
		}
		h.logger.Warn("callback missing parameters", "error", shared.ErrMissingParameter)
		h.fail(w, http.StatusBadRequest, "The callback is missing the code or state parameter.")
		return
	}

	pending, err := h.pending.Get(state)
	if err != nil {
		h.logger.Warn("unrecognized state token", "error", err)
		h.fail(w, http.StatusBadRequest, "This authorization link is invalid or has expired. Ask for a new one and try again.")
		return
	}

	token, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		h.fail(w, http.StatusBadGateway, "Spotify rejected the authorization code. Ask for a new link and try again.")
		return
	}

	now := h.now()
	session := &models.Session{
		ID:           pending.SessionID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.sessions.Set(session); err != nil {
		h.logger.Error("failed to store session", "error", err)
		h.fail(w, http.StatusInternalServerError, "Could not save the session. Try again.")
		return
	}

	if err := h.pending.Delete(state); err != nil {
		h.logger.Warn("failed to delete pending authorization", "error", err)
	}

	h.logger.Info("authorization complete", "session", pending.SessionID)

	h.succeed(w)

	if h.OnComplete != nil {
		h.OnComplete(pending.SessionID)
	}
}

// fail renders the error page. The message may carry query parameters
// echoed from the request, so it is escaped before hitting the markup.
func (h *CallbackHandler) fail(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	fmt.Fprintf(w, callbackPage, "#E22134", "✗ Authorization Failed", html.EscapeString(message))
}

func (h *CallbackHandler) succeed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, callbackPage, "#1DB954", "✓ Authorization Successful", "You can close this window and return to your assistant.")
}

const callbackPage = `<!DOCTYPE html>
<html>
<head>
    <title>Spotify Authorization</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: %s; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

// Serve runs the tool server. The default mode speaks MCP over stdio for a
// local host process while an HTTP server handles the OAuth callback; with
// --http the MCP streamable transport is served over HTTP instead.
//
// Stdio owns stdout for protocol framing, so all logging goes to stderr.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify credentials must be set in config.toml", shared.ErrMissingCredentials)
	}

	httpOnly := cmd.Bool("http")
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)

	dispatcher := r.dispatcher()
	callback := server.NewCallbackHandler(server.CallbackOpts{
		Exchanger: r.spotify,
		Sessions:  r.sessions,
		Pending:   r.pending,
		Logger:    r.logger,
	})
	router := server.New(server.Opts{
		Dispatcher: dispatcher,
		Callback:   callback,
		Renderer:   r.renderer,
		Logger:     r.logger,
	})

	httpServer := &http.Server{Addr: addr, Handler: router}
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("http server listening", "addr", addr)
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

	if httpOnly {
		r.logger.Info("serving MCP over http", "endpoint", "/mcp")
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			return nil
		}
	}

	r.logger.Info("serving MCP over stdio")
	if err := dispatcher.NewServer().Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("stdio transport failed: %w", err)
	}
	return nil
}

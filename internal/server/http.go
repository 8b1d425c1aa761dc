package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/tools"
	"github.com/desertthunder/spx/internal/widget"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Opts contains the dependencies for building the HTTP surface.
type Opts struct {
	Dispatcher *tools.Dispatcher
	Callback   *CallbackHandler
	Renderer   *widget.Renderer
	Logger     *log.Logger
}

// New builds the complete HTTP handler: the MCP streamable transport at /mcp,
// the OAuth callback, a widget preview, and a health check.
func New(opts Opts) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(opts.Logger), Logging(opts.Logger))

	router.Mount("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return opts.Dispatcher.NewServer()
	}, nil))

	router.Handler(opts.Callback)

	router.Handle(http.MethodGet, "/widget", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fragment, err := opts.Renderer.Render(nil)
		if err != nil {
			http.Error(w, "Failed to render widget", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, widget.Document(widget.DefaultDescriptor(), fragment))
	}))

	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status": "ok"}`)
	}))

	return router
}

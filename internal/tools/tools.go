// package tools maps MCP tool invocations to Spotify API calls
package tools

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/widget"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName and ServerVersion identify this MCP server to hosts.
const (
	ServerName    = "spx"
	ServerVersion = "0.1.0"
)

// Dispatcher wires the five Spotify tools to the client, stores, and widget
// renderer. One Dispatcher serves every session; per-caller state lives in
// the stores.
type Dispatcher struct {
	spotify    *services.SpotifyService
	sessions   auth.SessionStore
	pending    auth.PendingStore
	renderer   *widget.Renderer
	descriptor widget.Descriptor
	logger     *log.Logger
	now        func() time.Time
}

// DispatcherOpts contains configuration options for creating a Dispatcher.
type DispatcherOpts struct {
	Spotify  *services.SpotifyService
	Sessions auth.SessionStore
	Pending  auth.PendingStore
	Renderer *widget.Renderer
	Logger   *log.Logger
	Now      func() time.Time // defaults to time.Now, injectable for tests
}

// NewDispatcher creates a Dispatcher with the provided dependencies.
func NewDispatcher(opts DispatcherOpts) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Dispatcher{
		spotify:    opts.Spotify,
		sessions:   opts.Sessions,
		pending:    opts.Pending,
		renderer:   opts.Renderer,
		descriptor: widget.DefaultDescriptor(),
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// NewServer builds an MCP server exposing the tool catalog and the widget
// template resource. Call once per transport connection; the dispatcher and
// its stores are shared.
func (d *Dispatcher) NewServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, &mcp.ServerOptions{
		Instructions: "Search Spotify, manage the user's library, and fetch playlist tracks. Unauthenticated calls return a Spotify authorization link.",
	})

	mcp.AddTool(server, searchTool(), d.Search)
	mcp.AddTool(server, addToLibraryTool(), d.AddToLibrary)
	mcp.AddTool(server, removeFromLibraryTool(), d.RemoveFromLibrary)
	mcp.AddTool(server, fetchTracksTool(), d.FetchTracks)
	mcp.AddTool(server, userProfileTool(), d.UserProfile)

	server.AddResource(&mcp.Resource{
		URI:         d.descriptor.TemplateURI,
		Name:        d.descriptor.ID,
		Description: d.descriptor.Title,
		MIMEType:    "text/html",
	}, d.ReadWidget)

	return server
}

// Catalog returns the registered tool definitions, used by the CLI listing
// command.
func Catalog() []*mcp.Tool {
	return []*mcp.Tool{
		searchTool(),
		addToLibraryTool(),
		removeFromLibraryTool(),
		fetchTracksTool(),
		userProfileTool(),
	}
}

func searchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search",
		Description: "Search Spotify for tracks, albums, artists, and playlists. Results render in the search widget.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Search text"},
				"types": {
					Type:        "array",
					Description: "Result facets to include; defaults to all four",
					Items: &jsonschema.Schema{
						Type: "string",
						Enum: []any{"track", "album", "artist", "playlist"},
					},
				},
				"limit":  {Type: "integer", Description: "Results per facet, default 20, max 50"},
				"market": {Type: "string", Description: "ISO 3166-1 alpha-2 market code, default US"},
			},
			Required: []string{"query"},
		},
	}
}

func libraryInputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"itemType": {
				Type:        "string",
				Description: "Kind of item",
				Enum:        []any{"track", "album", "artist", "show", "episode"},
			},
			"itemId": {Type: "string", Description: "Spotify ID of the item"},
		},
		Required: []string{"itemType", "itemId"},
	}
}

func addToLibraryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "add_to_library",
		Description: "Save a track, album, show, or episode to the user's library, or follow an artist.",
		InputSchema: libraryInputSchema(),
	}
}

func removeFromLibraryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "remove_from_library",
		Description: "Remove a track, album, show, or episode from the user's library, or unfollow an artist.",
		InputSchema: libraryInputSchema(),
	}
}

func fetchTracksTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "fetch_tracks",
		Description: "Fetch a page of tracks from a playlist, including whether each track is saved in the user's library.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"playlistId": {Type: "string", Description: "Spotify playlist ID"},
				"offset":     {Type: "integer", Description: "Index of the first track, default 0"},
				"limit":      {Type: "integer", Description: "Tracks per page, default 100, max 100"},
			},
			Required: []string{"playlistId"},
		},
	}
}

func userProfileTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_profile",
		Description: "Fetch the authenticated user's Spotify profile.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/widget"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// audiobookRefusal is returned verbatim whenever a search query mentions
// audiobooks; no upstream call is made.
const audiobookRefusal = "Audiobook search isn't supported. Try searching for tracks, albums, artists, or playlists instead."

// localSessionKey identifies the caller on transports without a session id,
// such as a single stdio connection.
const localSessionKey = "local"

// SearchArgs are the arguments for the search tool.
type SearchArgs struct {
	Query  string   `json:"query"`
	Types  []string `json:"types,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Market string   `json:"market,omitempty"`
}

// LibraryArgs are the arguments for add_to_library and remove_from_library.
type LibraryArgs struct {
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
}

// FetchTracksArgs are the arguments for the fetch_tracks tool.
type FetchTracksArgs struct {
	PlaylistID string `json:"playlistId"`
	Offset     int    `json:"offset,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ProfileArgs are the (empty) arguments for the get_profile tool.
type ProfileArgs struct{}

// sessionKey resolves the caller's identity for store lookups.
func sessionKey(req *mcp.CallToolRequest) string {
	if req != nil && req.Session != nil {
		if id := req.Session.ID(); id != "" {
			return id
		}
	}
	return localSessionKey
}

// gate checks that a session exists for the caller. When none does, it mints
// a one-time state token, records the pending authorization, and returns a
// tool result carrying the authorization URL instead of an error.
func (d *Dispatcher) gate(key string) (*mcp.CallToolResult, error) {
	_, err := d.sessions.Get(key)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, err
	}

	state := shared.GenerateID()
	if err := d.pending.Set(&models.PendingAuth{
		State:     state,
		SessionID: key,
		CreatedAt: d.now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record pending authorization: %w", err)
	}

	d.logger.Info("issuing authorization prompt", "session", key, "state", state)

	return textResult(fmt.Sprintf(
		"Connect your Spotify account to continue. Open this link to authorize: %s",
		d.spotify.AuthCodeURL(state),
	)), nil
}

// Search handles the search tool: validates arguments, applies the audiobook
// refusal, and reshapes upstream results for the widget.
func (d *Dispatcher) Search(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if err := args.validate(); err != nil {
		return errorResult(err), nil, nil
	}

	if strings.Contains(strings.ToLower(args.Query), "audiobook") {
		return textResult(audiobookRefusal), nil, nil
	}

	key := sessionKey(req)
	if prompt, err := d.gate(key); prompt != nil || err != nil {
		return prompt, nil, err
	}

	results, err := d.spotify.Search(ctx, key, args.Query, args.Types, args.Limit, args.Market)
	if err != nil {
		return errorResult(err), nil, nil
	}

	fragment, err := d.renderer.Render(results)
	if err != nil {
		return errorResult(err), nil, nil
	}

	result := textResult(formatter.FormatSearchResults(results))
	result.StructuredContent = results
	result.Meta = mcp.Meta{
		"spx/widget": map[string]any{
			"uri":      d.descriptor.TemplateURI,
			"title":    d.descriptor.Title,
			"invoking": d.descriptor.InvokingText,
			"invoked":  d.descriptor.InvokedText,
			"html":     fragment,
		},
	}
	return result, nil, nil
}

// AddToLibrary handles the add_to_library tool.
func (d *Dispatcher) AddToLibrary(ctx context.Context, req *mcp.CallToolRequest, args LibraryArgs) (*mcp.CallToolResult, any, error) {
	return d.mutateLibrary(ctx, req, args, true)
}

// RemoveFromLibrary handles the remove_from_library tool.
func (d *Dispatcher) RemoveFromLibrary(ctx context.Context, req *mcp.CallToolRequest, args LibraryArgs) (*mcp.CallToolResult, any, error) {
	return d.mutateLibrary(ctx, req, args, false)
}

func (d *Dispatcher) mutateLibrary(ctx context.Context, req *mcp.CallToolRequest, args LibraryArgs, save bool) (*mcp.CallToolResult, any, error) {
	if err := args.validate(); err != nil {
		return errorResult(err), nil, nil
	}

	key := sessionKey(req)
	if prompt, err := d.gate(key); prompt != nil || err != nil {
		return prompt, nil, err
	}

	var err error
	var verb string
	if save {
		err = d.spotify.SaveToLibrary(ctx, key, args.ItemType, args.ItemID)
		verb = "Added"
		if args.ItemType == "artist" {
			verb = "Followed"
		}
	} else {
		err = d.spotify.RemoveFromLibrary(ctx, key, args.ItemType, args.ItemID)
		verb = "Removed"
		if args.ItemType == "artist" {
			verb = "Unfollowed"
		}
	}
	if err != nil {
		return errorResult(err), nil, nil
	}

	return textResult(fmt.Sprintf("%s %s %s.", verb, args.ItemType, args.ItemID)), nil, nil
}

// FetchTracks handles the fetch_tracks tool: one playlist page fetch plus one
// batched saved-status check, zipped positionally.
func (d *Dispatcher) FetchTracks(ctx context.Context, req *mcp.CallToolRequest, args FetchTracksArgs) (*mcp.CallToolResult, any, error) {
	if err := args.validate(); err != nil {
		return errorResult(err), nil, nil
	}

	key := sessionKey(req)
	if prompt, err := d.gate(key); prompt != nil || err != nil {
		return prompt, nil, err
	}

	page, err := d.spotify.PlaylistTracks(ctx, key, args.PlaylistID, args.Offset, args.Limit)
	if err != nil {
		return errorResult(err), nil, nil
	}

	ids := make([]string, 0, len(page.Tracks))
	for _, track := range page.Tracks {
		if track.ID != "" {
			ids = append(ids, track.ID)
		}
	}

	saved, err := d.spotify.CheckSavedTracks(ctx, key, ids)
	if err != nil {
		return errorResult(err), nil, nil
	}

	pos := 0
	for i := range page.Tracks {
		if page.Tracks[i].ID == "" {
			continue
		}
		if pos < len(saved) {
			page.Tracks[i].IsSaved = saved[pos]
		}
		pos++
	}

	result := textResult(formatter.FormatPlaylistPage(page))
	result.StructuredContent = page
	return result, nil, nil
}

// UserProfile handles the get_profile tool.
func (d *Dispatcher) UserProfile(ctx context.Context, req *mcp.CallToolRequest, args ProfileArgs) (*mcp.CallToolResult, any, error) {
	key := sessionKey(req)
	if prompt, err := d.gate(key); prompt != nil || err != nil {
		return prompt, nil, err
	}

	profile, err := d.spotify.UserProfile(ctx, key)
	if err != nil {
		return errorResult(err), nil, nil
	}

	result := textResult(fmt.Sprintf("Signed in as %s (%s).", profile.DisplayName, profile.ID))
	result.StructuredContent = profile
	return result, nil, nil
}

// ReadWidget serves the widget markup payload at the template locator.
func (d *Dispatcher) ReadWidget(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	fragment, err := d.renderer.Render(nil)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      d.descriptor.TemplateURI,
			MIMEType: "text/html",
			Text:     widget.Document(d.descriptor, fragment),
		}},
	}, nil
}

func (a SearchArgs) validate() error {
	if strings.TrimSpace(a.Query) == "" {
		return fmt.Errorf("%w: query is required", shared.ErrInvalidArgument)
	}
	for _, facet := range a.Types {
		switch facet {
		case "track", "album", "artist", "playlist":
		default:
			return fmt.Errorf("%w: unknown search type %q", shared.ErrInvalidArgument, facet)
		}
	}
	if a.Limit < 0 {
		return fmt.Errorf("%w: limit must be non-negative", shared.ErrInvalidArgument)
	}
	return nil
}

func (a LibraryArgs) validate() error {
	switch a.ItemType {
	case "track", "album", "artist", "show", "episode":
	default:
		return fmt.Errorf("%w: unknown item type %q", shared.ErrInvalidArgument, a.ItemType)
	}
	if strings.TrimSpace(a.ItemID) == "" {
		return fmt.Errorf("%w: itemId is required", shared.ErrInvalidArgument)
	}
	return nil
}

func (a FetchTracksArgs) validate() error {
	if strings.TrimSpace(a.PlaylistID) == "" {
		return fmt.Errorf("%w: playlistId is required", shared.ErrInvalidArgument)
	}
	if a.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative", shared.ErrInvalidArgument)
	}
	if a.Limit < 0 {
		return fmt.Errorf("%w: limit must be non-negative", shared.ErrInvalidArgument)
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

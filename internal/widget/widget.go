// package widget renders search results as a self-contained markup fragment.
package widget

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/desertthunder/spx/internal/models"
)

//go:embed templates/*.html
var templateFiles embed.FS

// TrackCap limits how many tracks the fragment shows; other facets are uncapped.
const TrackCap = 10

// Descriptor is the static record describing the search results widget.
// Immutable after process start.
type Descriptor struct {
	ID           string // widget identifier
	Title        string // display title
	TemplateURI  string // resource locator the host reads the markup from
	InvokingText string // status line while the search tool runs
	InvokedText  string // status line once results are in
}

// DefaultDescriptor returns the descriptor for the Spotify search widget.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		ID:           "spotify-search",
		Title:        "Spotify Search Results",
		TemplateURI:  "ui://widget/spotify-search.html",
		InvokingText: "Searching Spotify",
		InvokedText:  "Found Spotify results",
	}
}

// Renderer produces HTML fragments from search results. It is a pure
// function of its input: no state, no network access.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded results template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/results.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse widget template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// resultsView is the property bag injected into the template. Tracks are
// pre-capped so the template stays declarative.
type resultsView struct {
	Query      string
	Total      int
	Tracks     []models.TrackResult
	TrackTotal int
	Albums     []models.AlbumResult
	Artists    []models.ArtistResult
	Playlists  []models.PlaylistResult
}

// Render produces the markup fragment for the given results.
//
// At most [TrackCap] tracks are shown; the aggregate count reflects all
// results. A zero-result input renders the empty-state block.
func (r *Renderer) Render(results *models.SearchResults) (string, error) {
	if results == nil {
		results = &models.SearchResults{}
	}

	view := resultsView{
		Query:      results.Query,
		Total:      results.Total(),
		Tracks:     results.Tracks,
		TrackTotal: len(results.Tracks),
		Albums:     results.Albums,
		Artists:    results.Artists,
		Playlists:  results.Playlists,
	}
	if len(view.Tracks) > TrackCap {
		view.Tracks = view.Tracks[:TrackCap]
	}

	var buf strings.Builder
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render widget: %w", err)
	}

	return buf.String(), nil
}

// Document wraps a rendered fragment in a self-contained HTML page. This is
// the markup payload served at the descriptor's template locator; the host
// swaps in a freshly rendered fragment at invocation time.
func Document(d Descriptor, fragment string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         margin: 0; padding: 1rem; background: #fff; color: #191414; }
  .spx-results h2 { font-size: 0.9rem; text-transform: uppercase; color: #666; margin: 1rem 0 0.25rem; }
  .spx-results ul { list-style: none; margin: 0; padding: 0; }
  .spx-results li { display: flex; align-items: center; gap: 0.5rem; padding: 0.25rem 0; }
  .spx-results a { color: #1DB954; text-decoration: none; font-weight: 600; }
  .spx-results img { border-radius: 4px; }
  .spx-count, .spx-more { color: #666; font-size: 0.85rem; }
  .spx-empty { color: #666; text-align: center; padding: 2rem 0; }
</style>
</head>
<body>
%s
</body>
</html>
`, template.HTMLEscapeString(d.Title), fragment)
}

// package formatter renders projections as Markdown for tool result text
package formatter

import (
	"bytes"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
)

// FormatSearchResults converts search results to a Markdown summary, one
// section per facet with results present.
func FormatSearchResults(results *models.SearchResults) string {
	var buf bytes.Buffer

	if results == nil || results.Total() == 0 {
		query := ""
		if results != nil {
			query = results.Query
		}
		if query != "" {
			buf.WriteString(fmt.Sprintf("No results for %q.\n", query))
		} else {
			buf.WriteString("No results.\n")
		}
		return buf.String()
	}

	buf.WriteString(fmt.Sprintf("Found %d results for %q.\n", results.Total(), results.Query))

	if len(results.Tracks) > 0 {
		buf.WriteString("\n## Tracks\n\n")
		for _, track := range results.Tracks {
			buf.WriteString(fmt.Sprintf("- %s by %s", track.Name, track.Artists))
			if track.Album != "" {
				buf.WriteString(fmt.Sprintf(" (%s)", track.Album))
			}
			buf.WriteString("\n")
		}
	}

	if len(results.Artists) > 0 {
		buf.WriteString("\n## Artists\n\n")
		for _, artist := range results.Artists {
			buf.WriteString(fmt.Sprintf("- %s", artist.Name))
			if artist.Followers > 0 {
				buf.WriteString(fmt.Sprintf(" (%d followers)", artist.Followers))
			}
			buf.WriteString("\n")
		}
	}

	if len(results.Albums) > 0 {
		buf.WriteString("\n## Albums\n\n")
		for _, album := range results.Albums {
			buf.WriteString(fmt.Sprintf("- %s by %s", album.Name, album.Artists))
			if album.ReleaseDate != "" {
				buf.WriteString(fmt.Sprintf(" (%s)", album.ReleaseDate))
			}
			buf.WriteString("\n")
		}
	}

	if len(results.Playlists) > 0 {
		buf.WriteString("\n## Playlists\n\n")
		for _, playlist := range results.Playlists {
			buf.WriteString(fmt.Sprintf("- %s", playlist.Name))
			if playlist.Owner != "" {
				buf.WriteString(fmt.Sprintf(" by %s", playlist.Owner))
			}
			if playlist.TotalTracks > 0 {
				buf.WriteString(fmt.Sprintf(" (%d tracks)", playlist.TotalTracks))
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// FormatPlaylistPage converts a playlist page to a Markdown track listing
// with saved-status markers.
func FormatPlaylistPage(page *models.PlaylistPage) string {
	var buf bytes.Buffer

	if page == nil || len(page.Tracks) == 0 {
		buf.WriteString("No tracks in this page.\n")
		return buf.String()
	}

	buf.WriteString(fmt.Sprintf("Tracks %d-%d of %d:\n\n", page.Offset+1, page.Offset+len(page.Tracks), page.Total))

	for _, track := range page.Tracks {
		marker := " "
		if track.IsSaved {
			marker = "♥"
		}
		buf.WriteString(fmt.Sprintf("%d. [%s] %s by %s", track.Position+1, marker, track.Name, track.Artists))
		if track.Album != "" {
			buf.WriteString(fmt.Sprintf(" (%s)", track.Album))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

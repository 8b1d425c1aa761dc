package formatter

import (
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/models"
)

func TestFormatSearchResults(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		out := FormatSearchResults(&models.SearchResults{Query: "nope"})
		if !strings.Contains(out, "No results") {
			t.Errorf("expected empty message, got %q", out)
		}

		if out := FormatSearchResults(nil); !strings.Contains(out, "No results") {
			t.Errorf("expected empty message for nil results, got %q", out)
		}
	})

	t.Run("Sections", func(t *testing.T) {
		results := &models.SearchResults{
			Query:   "daft punk",
			Tracks:  []models.TrackResult{{Name: "One More Time", Artists: "Daft Punk", Album: "Discovery"}},
			Artists: []models.ArtistResult{{Name: "Daft Punk", Followers: 9000}},
		}

		out := FormatSearchResults(results)

		for _, want := range []string{"Found 2 results", "## Tracks", "One More Time", "Discovery", "## Artists", "9000 followers"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}

		if strings.Contains(out, "## Albums") {
			t.Error("expected no album section when no albums are present")
		}
	})
}

func TestFormatPlaylistPage(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		out := FormatPlaylistPage(&models.PlaylistPage{})
		if !strings.Contains(out, "No tracks") {
			t.Errorf("expected empty message, got %q", out)
		}
	})

	t.Run("Saved Markers", func(t *testing.T) {
		page := &models.PlaylistPage{
			Total:  2,
			Offset: 0,
			Tracks: []models.PlaylistTrack{
				{Name: "A", Artists: "X", IsSaved: true, Position: 0},
				{Name: "B", Artists: "Y", IsSaved: false, Position: 1},
			},
		}

		out := FormatPlaylistPage(page)

		if !strings.Contains(out, "Tracks 1-2 of 2") {
			t.Errorf("expected page header, got %q", out)
		}
		if !strings.Contains(out, "[♥] A") {
			t.Error("expected saved marker on saved track")
		}
		if !strings.Contains(out, "[ ] B") {
			t.Error("expected blank marker on unsaved track")
		}
	})
}

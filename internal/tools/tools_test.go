package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/widget"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fixture struct {
	dispatcher *Dispatcher
	sessions   *auth.MemorySessionStore
	pending    *auth.MemoryPendingStore
	calls      *atomic.Int64
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()

	calls := &atomic.Int64{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if handler != nil {
			handler(w, r)
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(upstream.Close)

	spotify, err := services.NewSpotifyService(map[string]string{
		"client_id":     "test_client",
		"client_secret": "test_secret",
	}, services.StaticTokenSource("test_token"))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	spotify.SetBaseURL(upstream.URL)

	renderer, err := widget.NewRenderer()
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}

	sessions := auth.NewMemorySessionStore()
	pending := auth.NewMemoryPendingStore()

	return &fixture{
		dispatcher: NewDispatcher(DispatcherOpts{
			Spotify:  spotify,
			Sessions: sessions,
			Pending:  pending,
			Renderer: renderer,
		}),
		sessions: sessions,
		pending:  pending,
		calls:    calls,
	}
}

func (f *fixture) authenticate(t *testing.T) {
	t.Helper()
	if err := f.sessions.Set(&models.Session{
		ID:          localSessionKey,
		AccessToken: "test_token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestSearch(t *testing.T) {
	searchBody := `{
		"tracks": {"items": [{"id": "t1", "name": "Song", "artists": [{"id": "a1", "name": "Band"}], "album": {"id": "al1", "name": "Record", "images": [{"url": "http://img/1"}]}, "duration_ms": 201000, "external_urls": {"spotify": "http://open/t1"}}], "total": 1},
		"albums": {"items": [], "total": 0},
		"artists": {"items": [], "total": 0},
		"playlists": {"items": [], "total": 0}
	}`

	t.Run("renders results with widget metadata", func(t *testing.T) {
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(searchBody))
		})
		f.authenticate(t)

		result, _, err := f.dispatcher.Search(context.Background(), nil, SearchArgs{Query: "song"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, result))
		}
		if !strings.Contains(resultText(t, result), "Song") {
			t.Errorf("expected track name in text, got %q", resultText(t, result))
		}
		if result.StructuredContent == nil {
			t.Error("expected structured results")
		}

		payload, ok := result.Meta["spx/widget"].(map[string]any)
		if !ok {
			t.Fatalf("expected widget metadata, got %v", result.Meta)
		}
		if payload["uri"] != widget.DefaultDescriptor().TemplateURI {
			t.Errorf("unexpected widget uri %v", payload["uri"])
		}
		html, _ := payload["html"].(string)
		if !strings.Contains(html, "Song") {
			t.Errorf("expected rendered track in widget html")
		}
	})

	t.Run("refuses audiobook queries without calling upstream", func(t *testing.T) {
		f := newFixture(t, nil)
		f.authenticate(t)

		result, _, err := f.dispatcher.Search(context.Background(), nil, SearchArgs{Query: "best Audiobooks of 2024"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("refusal should not be a tool error")
		}
		if text := resultText(t, result); text != audiobookRefusal {
			t.Errorf("expected refusal text, got %q", text)
		}
		if n := f.calls.Load(); n != 0 {
			t.Errorf("expected no upstream calls, got %d", n)
		}
	})

	t.Run("rejects empty query", func(t *testing.T) {
		f := newFixture(t, nil)
		f.authenticate(t)

		result, _, err := f.dispatcher.Search(context.Background(), nil, SearchArgs{Query: "   "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected a tool error")
		}
		if n := f.calls.Load(); n != 0 {
			t.Errorf("expected no upstream calls, got %d", n)
		}
	})

	t.Run("rejects unknown search type", func(t *testing.T) {
		f := newFixture(t, nil)
		f.authenticate(t)

		result, _, _ := f.dispatcher.Search(context.Background(), nil, SearchArgs{Query: "x", Types: []string{"podcast"}})
		if !result.IsError {
			t.Error("expected a tool error")
		}
	})
}

func TestAuthGate(t *testing.T) {
	t.Run("unauthenticated call returns authorization link", func(t *testing.T) {
		f := newFixture(t, nil)

		result, _, err := f.dispatcher.Search(context.Background(), nil, SearchArgs{Query: "song"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("auth prompt should not be a tool error")
		}
		text := resultText(t, result)
		if !strings.Contains(text, "accounts.spotify.com/authorize") {
			t.Errorf("expected authorization URL in %q", text)
		}
		if !strings.Contains(text, "state=") {
			t.Errorf("expected state parameter in %q", text)
		}
		if n := f.calls.Load(); n != 0 {
			t.Errorf("expected no upstream calls, got %d", n)
		}
		if n := f.pending.Sweep(0, time.Now().Add(time.Second)); n != 1 {
			t.Errorf("expected one pending authorization, swept %d", n)
		}
	})

	t.Run("each unauthenticated call mints a fresh state", func(t *testing.T) {
		f := newFixture(t, nil)

		first, _, _ := f.dispatcher.Search(context.Background(), nil, SearchArgs{Query: "a"})
		second, _, _ := f.dispatcher.Search(context.Background(), nil, SearchArgs{Query: "b"})
		if resultText(t, first) == resultText(t, second) {
			t.Error("expected distinct state tokens per prompt")
		}
	})
}

func TestLibraryTools(t *testing.T) {
	t.Run("add track", func(t *testing.T) {
		var method, path string
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			method, path = r.Method, r.URL.Path
			w.WriteHeader(http.StatusOK)
		})
		f.authenticate(t)

		result, _, err := f.dispatcher.AddToLibrary(context.Background(), nil, LibraryArgs{ItemType: "track", ItemID: "t1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, result))
		}
		if method != http.MethodPut || path != "/me/tracks" {
			t.Errorf("expected PUT /me/tracks, got %s %s", method, path)
		}
		if !strings.Contains(resultText(t, result), "Added track") {
			t.Errorf("unexpected confirmation %q", resultText(t, result))
		}
	})

	t.Run("remove artist unfollows", func(t *testing.T) {
		var method, path string
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			method, path = r.Method, r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		})
		f.authenticate(t)

		result, _, err := f.dispatcher.RemoveFromLibrary(context.Background(), nil, LibraryArgs{ItemType: "artist", ItemID: "a1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if method != http.MethodDelete || path != "/me/following" {
			t.Errorf("expected DELETE /me/following, got %s %s", method, path)
		}
		if !strings.Contains(resultText(t, result), "Unfollowed artist") {
			t.Errorf("unexpected confirmation %q", resultText(t, result))
		}
	})

	t.Run("rejects unknown item type", func(t *testing.T) {
		f := newFixture(t, nil)
		f.authenticate(t)

		result, _, _ := f.dispatcher.AddToLibrary(context.Background(), nil, LibraryArgs{ItemType: "podcast", ItemID: "p1"})
		if !result.IsError {
			t.Error("expected a tool error")
		}
		if n := f.calls.Load(); n != 0 {
			t.Errorf("expected no upstream calls, got %d", n)
		}
	})

	t.Run("upstream failure surfaces as tool error", func(t *testing.T) {
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": {"status": 403, "message": "forbidden"}}`, http.StatusForbidden)
		})
		f.authenticate(t)

		result, _, err := f.dispatcher.AddToLibrary(context.Background(), nil, LibraryArgs{ItemType: "album", ItemID: "al1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected a tool error")
		}
	})
}

func TestFetchTracks(t *testing.T) {
	playlistBody := `{
		"items": [
			{"track": {"id": "t1", "name": "One", "artists": [{"name": "A"}], "album": {"name": "X"}, "duration_ms": 1000}},
			{"track": {"id": "t2", "name": "Two", "artists": [{"name": "B"}], "album": {"name": "Y"}, "duration_ms": 2000}},
			{"track": {"id": "t3", "name": "Three", "artists": [{"name": "C"}], "album": {"name": "Z"}, "duration_ms": 3000}}
		],
		"total": 3
	}`

	t.Run("zips saved flags onto tracks", func(t *testing.T) {
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/contains") {
				w.Write([]byte(`[true, false, true]`))
				return
			}
			w.Write([]byte(playlistBody))
		})
		f.authenticate(t)

		result, _, err := f.dispatcher.FetchTracks(context.Background(), nil, FetchTracksArgs{PlaylistID: "p1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, result))
		}

		page, ok := result.StructuredContent.(*models.PlaylistPage)
		if !ok {
			t.Fatalf("expected playlist page, got %T", result.StructuredContent)
		}
		if len(page.Tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(page.Tracks))
		}
		want := []bool{true, false, true}
		for i, track := range page.Tracks {
			if track.IsSaved != want[i] {
				t.Errorf("track %d: expected saved=%v, got %v", i, want[i], track.IsSaved)
			}
		}
	})

	t.Run("aligns saved flags across removed tracks", func(t *testing.T) {
		// The middle item has a null track, as Spotify returns for tracks
		// removed from the catalog. It is excluded from the saved-status
		// batch but keeps its slot in the page.
		withNull := `{
			"items": [
				{"track": {"id": "t1", "name": "One", "artists": [{"name": "A"}], "album": {"name": "X"}, "duration_ms": 1000}},
				{"track": null},
				{"track": {"id": "t3", "name": "Three", "artists": [{"name": "C"}], "album": {"name": "Z"}, "duration_ms": 3000}}
			],
			"total": 3
		}`

		var containsIDs string
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/contains") {
				containsIDs = r.URL.Query().Get("ids")
				w.Write([]byte(`[true, false]`))
				return
			}
			w.Write([]byte(withNull))
		})
		f.authenticate(t)

		result, _, err := f.dispatcher.FetchTracks(context.Background(), nil, FetchTracksArgs{PlaylistID: "p1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, result))
		}

		if containsIDs != "t1,t3" {
			t.Errorf("expected batch for t1,t3, got %q", containsIDs)
		}

		page, ok := result.StructuredContent.(*models.PlaylistPage)
		if !ok {
			t.Fatalf("expected playlist page, got %T", result.StructuredContent)
		}
		if len(page.Tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(page.Tracks))
		}
		if !page.Tracks[0].IsSaved {
			t.Error("expected first track saved")
		}
		if page.Tracks[1].IsSaved {
			t.Error("expected placeholder track unsaved")
		}
		if page.Tracks[2].IsSaved {
			t.Error("expected last track to take the second batch slot")
		}
	})

	t.Run("rejects missing playlist id", func(t *testing.T) {
		f := newFixture(t, nil)
		f.authenticate(t)

		result, _, _ := f.dispatcher.FetchTracks(context.Background(), nil, FetchTracksArgs{})
		if !result.IsError {
			t.Error("expected a tool error")
		}
		if n := f.calls.Load(); n != 0 {
			t.Errorf("expected no upstream calls, got %d", n)
		}
	})
}

func TestUserProfileTool(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("expected GET /me, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"id": "user1", "display_name": "Test User", "country": "US", "product": "premium", "followers": {"total": 5}}`))
	})
	f.authenticate(t)

	result, _, err := f.dispatcher.UserProfile(context.Background(), nil, ProfileArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "Test User") {
		t.Errorf("expected display name in %q", resultText(t, result))
	}
}

func TestReadWidget(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.dispatcher.ReadWidget(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("expected one resource, got %d", len(res.Contents))
	}
	content := res.Contents[0]
	if content.MIMEType != "text/html" {
		t.Errorf("expected text/html, got %q", content.MIMEType)
	}
	if !strings.Contains(content.Text, "<html") {
		t.Error("expected a full document")
	}
	if content.URI != widget.DefaultDescriptor().TemplateURI {
		t.Errorf("unexpected uri %q", content.URI)
	}
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	if len(catalog) != 5 {
		t.Fatalf("expected 5 tools, got %d", len(catalog))
	}

	names := map[string]bool{}
	for _, tool := range catalog {
		names[tool.Name] = true
		if tool.InputSchema == nil {
			t.Errorf("tool %s has no input schema", tool.Name)
		}
	}
	for _, want := range []string{"search", "add_to_library", "remove_from_library", "fetch_tracks", "get_profile"} {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
}

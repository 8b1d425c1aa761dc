// Spotify Web API client.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Search defaults and caps enforced before hitting the upstream API.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
	DefaultMarket      = "US"

	DefaultTracksLimit = 100
	MaxTracksLimit     = 100
)

// DefaultSearchTypes are the facets searched when the caller specifies none.
var DefaultSearchTypes = []string{"track", "album", "artist", "playlist"}

// LibraryEndpoints maps an item type to its library collection path. Artists
// use the follow endpoint rather than a saved-items collection.
var LibraryEndpoints = map[string]string{
	"track":   "/me/tracks",
	"album":   "/me/albums",
	"show":    "/me/shows",
	"episode": "/me/episodes",
	"artist":  "/me/following",
}

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type followers struct {
	Total int `json:"total"`
}

type spotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Images       []spotifyImage `json:"images"`
	ExternalURLs externalURLs   `json:"external_urls"`
	Followers    followers      `json:"followers"`
}

type spotifyAlbum struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []spotifyArtist `json:"artists"`
	Images       []spotifyImage  `json:"images"`
	ReleaseDate  string          `json:"release_date"`
	TotalTracks  int             `json:"total_tracks"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

type spotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []spotifyArtist `json:"artists"`
	Album        spotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTrackCount struct {
	Total int `json:"total"`
}

type spotifyPlaylist struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Owner        spotifyOwner       `json:"owner"`
	Images       []spotifyImage     `json:"images"`
	Tracks       playlistTrackCount `json:"tracks"`
	ExternalURLs externalURLs       `json:"external_urls"`
}

// searchResponse is the upstream /search payload. Facets the caller did not
// request are absent; item arrays can contain nulls, so entries are pointers.
type searchResponse struct {
	Tracks    *struct{ Items []*spotifyTrack }    `json:"tracks"`
	Albums    *struct{ Items []*spotifyAlbum }    `json:"albums"`
	Artists   *struct{ Items []*spotifyArtist }   `json:"artists"`
	Playlists *struct{ Items []*spotifyPlaylist } `json:"playlists"`
}

// playlistItemsResponse is a page from /playlists/{id}/tracks.
type playlistItemsResponse struct {
	Items []struct {
		AddedAt string        `json:"added_at"`
		Track   *spotifyTrack `json:"track"`
	} `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// SpotifyService issues authenticated REST calls to the Spotify Web API using
// tokens obtained from a [TokenSource], and reshapes responses into the
// reduced projections in [models].
type SpotifyService struct {
	config     *oauth2.Config
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewSpotifyService creates a new Spotify client with the given OAuth2
// credentials and token source.
func NewSpotifyService(credentials map[string]string, tokens TokenSource) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-library-read",
			"user-library-modify",
			"user-follow-modify",
			"playlist-read-private",
			"playlist-read-collaborative",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		tokens:     tokens,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetRateLimit caps outbound API calls at rps requests per second.
// Zero or negative disables the limiter.
func (s *SpotifyService) SetRateLimit(rps float64) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SetBaseURL points API calls at an alternate host.
func (s *SpotifyService) SetBaseURL(url string) {
	s.baseURL = url
}

// AuthCodeURL returns the OAuth2 authorization URL for user consent.
func (s *SpotifyService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// Request performs an authenticated call against the Spotify API.
//
// A 204 No Content response yields nil; any non-2xx status fails with
// [shared.ErrUpstream] carrying the status and body; otherwise the raw JSON
// body is returned.
func (s *SpotifyService) Request(ctx context.Context, sessionID, method, path string, query url.Values) (json.RawMessage, error) {
	token, err := s.tokens.GetValidToken(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	apiURL := s.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.RawMessage(body), nil
}

// Search queries the search endpoint and reshapes each requested facet into
// reduced projections. Defaults: all four facets, limit 20 (capped at 50),
// market "US".
func (s *SpotifyService) Search(ctx context.Context, sessionID, query string, types []string, limit int, market string) (*models.SearchResults, error) {
	if len(types) == 0 {
		types = DefaultSearchTypes
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if market == "" {
		market = DefaultMarket
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", strings.Join(types, ","))
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("market", market)

	raw, err := s.Request(ctx, sessionID, http.MethodGet, "/search", params)
	if err != nil {
		return nil, err
	}

	var response searchResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := &models.SearchResults{Query: query}

	if response.Tracks != nil {
		for _, track := range response.Tracks.Items {
			if track == nil {
				continue
			}
			results.Tracks = append(results.Tracks, projectTrack(track))
		}
	}

	if response.Albums != nil {
		for _, album := range response.Albums.Items {
			if album == nil {
				continue
			}
			results.Albums = append(results.Albums, models.AlbumResult{
				ID:          album.ID,
				Name:        album.Name,
				Artists:     joinArtists(album.Artists),
				ImageURL:    firstImage(album.Images),
				URL:         album.ExternalURLs.Spotify,
				ReleaseDate: album.ReleaseDate,
				TotalTracks: album.TotalTracks,
			})
		}
	}

	if response.Artists != nil {
		for _, artist := range response.Artists.Items {
			if artist == nil {
				continue
			}
			results.Artists = append(results.Artists, models.ArtistResult{
				ID:        artist.ID,
				Name:      artist.Name,
				ImageURL:  firstImage(artist.Images),
				URL:       artist.ExternalURLs.Spotify,
				Followers: artist.Followers.Total,
			})
		}
	}

	if response.Playlists != nil {
		for _, playlist := range response.Playlists.Items {
			if playlist == nil {
				continue
			}
			results.Playlists = append(results.Playlists, models.PlaylistResult{
				ID:          playlist.ID,
				Name:        playlist.Name,
				Owner:       playlist.Owner.DisplayName,
				ImageURL:    firstImage(playlist.Images),
				URL:         playlist.ExternalURLs.Spotify,
				TotalTracks: playlist.Tracks.Total,
			})
		}
	}

	return results, nil
}

// UserProfile retrieves the authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, sessionID string) (*models.UserProfile, error) {
	raw, err := s.Request(ctx, sessionID, http.MethodGet, "/me", nil)
	if err != nil {
		return nil, err
	}

	var user struct {
		ID          string         `json:"id"`
		DisplayName string         `json:"display_name"`
		Country     string         `json:"country"`
		Product     string         `json:"product"`
		Followers   followers      `json:"followers"`
		Images      []spotifyImage `json:"images"`
		External    externalURLs   `json:"external_urls"`
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}

	return &models.UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Country:     user.Country,
		Product:     user.Product,
		Followers:   user.Followers.Total,
		ImageURL:    firstImage(user.Images),
		URL:         user.External.Spotify,
	}, nil
}

// SaveToLibrary adds an item to the caller's library. Artists are followed
// rather than saved.
func (s *SpotifyService) SaveToLibrary(ctx context.Context, sessionID, itemType, itemID string) error {
	return s.mutateLibrary(ctx, sessionID, http.MethodPut, itemType, itemID)
}

// RemoveFromLibrary removes an item from the caller's library. Artists are
// unfollowed.
func (s *SpotifyService) RemoveFromLibrary(ctx context.Context, sessionID, itemType, itemID string) error {
	return s.mutateLibrary(ctx, sessionID, http.MethodDelete, itemType, itemID)
}

func (s *SpotifyService) mutateLibrary(ctx context.Context, sessionID, method, itemType, itemID string) error {
	endpoint, ok := LibraryEndpoints[itemType]
	if !ok {
		return fmt.Errorf("%w: unsupported item type %q", shared.ErrInvalidArgument, itemType)
	}

	params := url.Values{}
	params.Set("ids", itemID)
	if itemType == "artist" {
		params.Set("type", "artist")
	}

	_, err := s.Request(ctx, sessionID, method, endpoint, params)
	return err
}

// PlaylistTracks fetches one page of playlist items. Defaults: offset 0,
// limit 100 (capped at 100).
func (s *SpotifyService) PlaylistTracks(ctx context.Context, sessionID, playlistID string, offset, limit int) (*models.PlaylistPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultTracksLimit
	}
	if limit > MaxTracksLimit {
		limit = MaxTracksLimit
	}

	params := url.Values{}
	params.Set("offset", fmt.Sprintf("%d", offset))
	params.Set("limit", fmt.Sprintf("%d", limit))

	raw, err := s.Request(ctx, sessionID, http.MethodGet, fmt.Sprintf("/playlists/%s/tracks", playlistID), params)
	if err != nil {
		return nil, err
	}

	var response playlistItemsResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to decode playlist response: %w", err)
	}

	page := &models.PlaylistPage{
		PlaylistID: playlistID,
		Offset:     response.Offset,
		Limit:      response.Limit,
		Total:      response.Total,
	}

	for i, item := range response.Items {
		track := models.PlaylistTrack{AddedAt: item.AddedAt, Position: offset + i}
		if item.Track != nil {
			track.ID = item.Track.ID
			track.Name = item.Track.Name
			track.Artists = joinArtists(item.Track.Artists)
			track.Album = item.Track.Album.Name
			track.URL = item.Track.ExternalURLs.Spotify
		}
		page.Tracks = append(page.Tracks, track)
	}

	return page, nil
}

// CheckSavedTracks returns the saved-status of the given track ids in one
// batch, positionally aligned with ids.
func (s *SpotifyService) CheckSavedTracks(ctx context.Context, sessionID string, ids []string) ([]bool, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))

	raw, err := s.Request(ctx, sessionID, http.MethodGet, "/me/tracks/contains", params)
	if err != nil {
		return nil, err
	}

	var saved []bool
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, fmt.Errorf("failed to decode saved-status response: %w", err)
	}

	return saved, nil
}

func projectTrack(track *spotifyTrack) models.TrackResult {
	return models.TrackResult{
		ID:         track.ID,
		Name:       track.Name,
		Artists:    joinArtists(track.Artists),
		Album:      track.Album.Name,
		ImageURL:   firstImage(track.Album.Images),
		URL:        track.ExternalURLs.Spotify,
		DurationMS: track.DurationMS,
	}
}

// joinArtists joins artist names with a comma for display.
func joinArtists(artists []spotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		names = append(names, artist.Name)
	}
	return strings.Join(names, ", ")
}

// firstImage returns one representative image URL, or empty when none exist.
func firstImage(images []spotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

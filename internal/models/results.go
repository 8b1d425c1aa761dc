package models

// Reduced projections of Spotify API objects, constructed per request for
// tool results and the search widget. None of these are persisted.

// TrackResult is the widget-friendly projection of a track.
type TrackResult struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artists    string `json:"artists"`
	Album      string `json:"album,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	URL        string `json:"url,omitempty"`
	DurationMS int    `json:"duration_ms,omitempty"`
}

// AlbumResult is the widget-friendly projection of an album.
type AlbumResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artists     string `json:"artists"`
	ImageURL    string `json:"image_url,omitempty"`
	URL         string `json:"url,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	TotalTracks int    `json:"total_tracks,omitempty"`
}

// ArtistResult is the widget-friendly projection of an artist.
type ArtistResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	URL       string `json:"url,omitempty"`
	Followers int    `json:"followers,omitempty"`
}

// PlaylistResult is the widget-friendly projection of a playlist.
type PlaylistResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	URL         string `json:"url,omitempty"`
	TotalTracks int    `json:"total_tracks,omitempty"`
}

// SearchResults partitions reshaped search hits by facet.
type SearchResults struct {
	Query     string           `json:"query"`
	Tracks    []TrackResult    `json:"tracks,omitempty"`
	Albums    []AlbumResult    `json:"albums,omitempty"`
	Artists   []ArtistResult   `json:"artists,omitempty"`
	Playlists []PlaylistResult `json:"playlists,omitempty"`
}

// Total returns the aggregate number of results across all facets.
func (r *SearchResults) Total() int {
	return len(r.Tracks) + len(r.Albums) + len(r.Artists) + len(r.Playlists)
}

// PlaylistTrack is the per-track projection returned by the fetch_tracks
// tool, zipped with the caller's saved-status for the track.
type PlaylistTrack struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artists  string `json:"artists"`
	Album    string `json:"album,omitempty"`
	AddedAt  string `json:"added_at,omitempty"`
	URL      string `json:"url,omitempty"`
	IsSaved  bool   `json:"is_saved"`
	Position int    `json:"position"`
}

// UserProfile is the reduced projection of the authenticated user's profile.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country,omitempty"`
	Product     string `json:"product,omitempty"`
	Followers   int    `json:"followers,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	URL         string `json:"url,omitempty"`
}

// PlaylistPage is a page of playlist tracks with upstream paging totals.
type PlaylistPage struct {
	PlaylistID string          `json:"playlist_id"`
	Offset     int             `json:"offset"`
	Limit      int             `json:"limit"`
	Total      int             `json:"total"`
	Tracks     []PlaylistTrack `json:"tracks"`
}

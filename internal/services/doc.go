// Package services provides the authenticated Spotify Web API client used by
// the tool dispatcher.
//
// [SpotifyService.Request] is the request core: it obtains a token from the
// configured [TokenSource] (refreshing lazily when expired), applies the
// optional outbound rate limiter, and maps HTTP status semantics to errors:
// 204 yields nil, non-2xx yields [shared.ErrUpstream] with the status and
// body, anything else yields the raw JSON payload.
//
// The typed endpoint methods ([SpotifyService.Search],
// [SpotifyService.SaveToLibrary], [SpotifyService.RemoveFromLibrary],
// [SpotifyService.PlaylistTracks], [SpotifyService.CheckSavedTracks]) wrap
// Request and reshape upstream objects into the reduced projections defined
// in the models package. Defaults and caps (search limit 20/50, tracks limit
// 100/100, market "US") are applied here so every caller gets the same
// normalization.
package services

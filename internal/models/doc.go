// Package models defines domain entities and projections for the spx tool server.
//
// The package contains two categories of types:
//
// 1. Stored entities, mutated by the auth layer:
//   - [Session] : OAuth tokens for one caller, keyed by session id
//   - [PendingAuth] : an issued-but-unredeemed authorization prompt
//
// 2. Read-only projections, constructed per request and never persisted:
//   - [TrackResult], [AlbumResult], [ArtistResult], [PlaylistResult] : reduced
//     views of upstream search objects
//   - [SearchResults] : search hits partitioned by facet
//   - [PlaylistTrack], [PlaylistPage] : playlist page entries with saved status
//
// The only stated invariant lives on [Session]: an access token is used only
// while Expired reports false; otherwise the auth.Refresher renews it first.
package models

package models

import (
	"testing"
	"time"
)

func TestSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Expired", func(t *testing.T) {
		session := &Session{ExpiresAt: now.Add(time.Hour)}

		if session.Expired(now) {
			t.Error("expected session with future expiry to be valid")
		}

		if !session.Expired(now.Add(time.Hour)) {
			t.Error("expected session to be expired at the expiry instant")
		}

		if !session.Expired(now.Add(2 * time.Hour)) {
			t.Error("expected session to be expired past the expiry instant")
		}
	})
}

func TestPendingAuth(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Stale", func(t *testing.T) {
		pending := &PendingAuth{State: "abc", SessionID: "s1", CreatedAt: now}

		if pending.Stale(now.Add(MaxPendingAge)) {
			t.Error("expected pending auth to be redeemable at exactly the max age")
		}

		if !pending.Stale(now.Add(MaxPendingAge + time.Second)) {
			t.Error("expected pending auth to be stale past the max age")
		}
	})
}

func TestSearchResults(t *testing.T) {
	t.Run("Total", func(t *testing.T) {
		results := &SearchResults{
			Tracks:  []TrackResult{{ID: "t1"}, {ID: "t2"}},
			Albums:  []AlbumResult{{ID: "a1"}},
			Artists: []ArtistResult{{ID: "ar1"}},
		}

		if got := results.Total(); got != 4 {
			t.Errorf("expected total 4, got %d", got)
		}

		empty := &SearchResults{}
		if got := empty.Total(); got != 0 {
			t.Errorf("expected total 0 for empty results, got %d", got)
		}
	})
}

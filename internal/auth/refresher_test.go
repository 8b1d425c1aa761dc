package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

func newTestRefresher(t *testing.T, store SessionStore, now time.Time, handler http.HandlerFunc) (*Refresher, *httptest.Server) {
	t.Helper()

	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	refresher := NewRefresher(RefresherOpts{
		Store:        store,
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		TokenURL:     upstream.URL,
		Now:          func() time.Time { return now },
	})

	return refresher, upstream
}

func TestRefresher(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("Missing Session", func(t *testing.T) {
		refresher, _ := newTestRefresher(t, NewMemorySessionStore(), now, func(w http.ResponseWriter, r *http.Request) {
			t.Error("token endpoint should not be called")
		})

		_, err := refresher.GetValidToken(ctx, "unknown")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Valid Token Skips Refresh", func(t *testing.T) {
		var calls atomic.Int64
		store := NewMemorySessionStore()
		store.Set(&models.Session{
			ID:           "s1",
			AccessToken:  "still_good",
			RefreshToken: "refresh",
			ExpiresAt:    now.Add(time.Hour),
		})

		refresher, _ := newTestRefresher(t, store, now, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})

		token, err := refresher.GetValidToken(ctx, "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "still_good" {
			t.Errorf("expected stored token unchanged, got %s", token)
		}
		if calls.Load() != 0 {
			t.Errorf("expected zero refresh calls, got %d", calls.Load())
		}
	})

	t.Run("Expired Token Refreshes Once", func(t *testing.T) {
		var calls atomic.Int64
		store := NewMemorySessionStore()
		store.Set(&models.Session{
			ID:           "s1",
			AccessToken:  "expired",
			RefreshToken: "refresh_me",
			ExpiresAt:    now.Add(-time.Minute),
		})

		refresher, _ := newTestRefresher(t, store, now, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)

			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
				t.Errorf("expected grant_type refresh_token, got %s", got)
			}
			if got := r.PostForm.Get("refresh_token"); got != "refresh_me" {
				t.Errorf("expected refresh_token refresh_me, got %s", got)
			}

			want := "Basic " + base64.StdEncoding.EncodeToString([]byte("test_client_id:test_client_secret"))
			if got := r.Header.Get("Authorization"); got != want {
				t.Errorf("expected basic auth header, got %s", got)
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
		})

		token, err := refresher.GetValidToken(ctx, "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "fresh" {
			t.Errorf("expected refreshed token 'fresh', got %s", token)
		}
		if calls.Load() != 1 {
			t.Errorf("expected exactly one refresh call, got %d", calls.Load())
		}

		stored, err := store.Get("s1")
		if err != nil {
			t.Fatalf("expected session to remain stored: %v", err)
		}
		if stored.AccessToken != "fresh" {
			t.Error("expected stored access token to be overwritten")
		}
		if !stored.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Errorf("expected expiry now+3600s, got %v", stored.ExpiresAt)
		}
		if stored.RefreshToken != "refresh_me" {
			t.Error("expected refresh token to be preserved when upstream omits it")
		}
	})

	t.Run("Rotated Refresh Token Is Stored", func(t *testing.T) {
		store := NewMemorySessionStore()
		store.Set(&models.Session{
			ID:           "s1",
			AccessToken:  "expired",
			RefreshToken: "old_refresh",
			ExpiresAt:    now.Add(-time.Minute),
		})

		refresher, _ := newTestRefresher(t, store, now, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"fresh","expires_in":3600,"refresh_token":"new_refresh"}`)
		})

		if _, err := refresher.GetValidToken(ctx, "s1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		stored, _ := store.Get("s1")
		if stored.RefreshToken != "new_refresh" {
			t.Errorf("expected rotated refresh token to be stored, got %s", stored.RefreshToken)
		}
	})

	t.Run("Upstream Failure", func(t *testing.T) {
		store := NewMemorySessionStore()
		store.Set(&models.Session{
			ID:           "s1",
			AccessToken:  "expired",
			RefreshToken: "revoked",
			ExpiresAt:    now.Add(-time.Minute),
		})

		refresher, _ := newTestRefresher(t, store, now, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid_grant", http.StatusBadRequest)
		})

		_, err := refresher.GetValidToken(ctx, "s1")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}

		// A failed refresh must not clobber the stored session.
		stored, _ := store.Get("s1")
		if stored.AccessToken != "expired" {
			t.Error("expected stored session to be untouched after failed refresh")
		}
	})
}

package twitchapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestHelix wires a HelixClient against a fake token endpoint and a fake
// Helix API.
func newTestHelix(t *testing.T, apiHandler http.HandlerFunc) *HelixClient {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.FormValue("client_id") != "test-client" {
			t.Errorf("client_id = %q, want in the form body", r.FormValue("client_id"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","expires_in":3600,"token_type":"bearer"}`))
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(apiHandler)
	t.Cleanup(apiSrv.Close)

	return &HelixClient{
		AppTokenSource: &TokenSource{
			ClientID:     "test-client",
			ClientSecret: "test-secret",
			TokenURL:     tokenSrv.URL,
		},
		ClientID: "test-client",
		BaseURL:  apiSrv.URL,
	}
}

func TestGetUserID(t *testing.T) {
	hc := newTestHelix(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("login") != "somechannel" {
			t.Errorf("login = %q", r.URL.Query().Get("login"))
		}
		if r.Header.Get("Client-Id") != "test-client" {
			t.Errorf("Client-Id header = %q", r.Header.Get("Client-Id"))
		}
		if r.Header.Get("Authorization") != "Bearer app-token" {
			t.Errorf("Authorization header = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"12345","login":"somechannel"}]}`))
	})

	id, err := hc.GetUserID(context.Background(), "somechannel")
	if err != nil {
		t.Fatal(err)
	}
	if id != "12345" {
		t.Errorf("id = %q", id)
	}
}

func TestGetUserIDNotFound(t *testing.T) {
	hc := newTestHelix(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	if _, err := hc.GetUserID(context.Background(), "ghost"); err == nil {
		t.Error("empty data should be an error")
	}
	if _, err := hc.GetUserID(context.Background(), ""); err == nil {
		t.Error("empty login should be rejected before any request")
	}
}

func TestListFollowers(t *testing.T) {
	hc := newTestHelix(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/followers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("broadcaster_id") != "123" || q.Get("first") != "20" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":2,"data":[
			{"user_id":"9","user_login":"alice","user_name":"Alice","followed_at":"2025-06-01T12:00:00Z"},
			{"user_id":"8","user_login":"bob","user_name":"Bob","followed_at":"2025-05-31T08:30:00Z"}
		]}`))
	})

	followers, err := hc.ListFollowers(context.Background(), "123", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(followers) != 2 {
		t.Fatalf("got %d followers", len(followers))
	}
	if followers[0].UserLogin != "alice" || followers[0].UserID != "9" {
		t.Errorf("first follower = %+v", followers[0])
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !followers[0].FollowedAt.Equal(want) {
		t.Errorf("followed_at = %v, want %v", followers[0].FollowedAt, want)
	}
}

func TestHelixErrorStatus(t *testing.T) {
	hc := newTestHelix(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	})
	if _, err := hc.ListFollowers(context.Background(), "123", 20); err == nil {
		t.Error("non-200 should surface as an error")
	}
}

func TestTokenSourceRequiresCredentials(t *testing.T) {
	ts := &TokenSource{}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Error("missing credentials must be an error")
	}
}

func TestTokenSourceCachesToken(t *testing.T) {
	var hits int
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600,"token_type":"bearer"}`))
	}))
	defer tokenSrv.Close()

	ts := &TokenSource{ClientID: "id", ClientSecret: "secret", TokenURL: tokenSrv.URL}
	for i := 0; i < 3; i++ {
		tok, err := ts.Get(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if tok != "tok" {
			t.Errorf("token = %q", tok)
		}
	}
	if hits != 1 {
		t.Errorf("token endpoint hit %d times, want the cached token reused", hits)
	}
}

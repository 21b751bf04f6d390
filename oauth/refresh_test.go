package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTwitchRefresher(t *testing.T) {
	var gotGrant, gotRefresh string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotGrant = r.FormValue("grant_type")
		gotRefresh = r.FormValue("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "new-access",
			"refresh_token": "new-refresh",
			"expires_in": 3600,
			"token_type": "bearer",
			"scope": ["chat:read", "chat:edit"]
		}`))
	}))
	defer srv.Close()

	orig := twitchTokenURL
	twitchTokenURL = srv.URL
	defer func() { twitchTokenURL = orig }()

	fn := TwitchRefresher("client-id", "client-secret")
	access, refresh, expiry, scope, err := fn(context.Background(), "old-refresh")
	if err != nil {
		t.Fatal(err)
	}
	if gotGrant != "refresh_token" || gotRefresh != "old-refresh" {
		t.Errorf("request grant=%q refresh=%q", gotGrant, gotRefresh)
	}
	if access != "new-access" || refresh != "new-refresh" {
		t.Errorf("tokens = %q / %q", access, refresh)
	}
	if scope != "chat:read chat:edit" {
		t.Errorf("scope = %q", scope)
	}
	if time.Until(expiry) <= 0 {
		t.Errorf("expiry = %v, want in the future", expiry)
	}
}

func TestTwitchRefresherScopeString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "a",
			"refresh_token": "r",
			"expires_in": 60,
			"token_type": "bearer",
			"scope": "chat:read"
		}`))
	}))
	defer srv.Close()

	orig := twitchTokenURL
	twitchTokenURL = srv.URL
	defer func() { twitchTokenURL = orig }()

	_, _, _, scope, err := TwitchRefresher("id", "secret")(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if scope != "chat:read" {
		t.Errorf("scope = %q", scope)
	}
}

func TestTwitchRefresherEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"status":400,"message":"Invalid refresh token"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	orig := twitchTokenURL
	twitchTokenURL = srv.URL
	defer func() { twitchTokenURL = orig }()

	if _, _, _, _, err := TwitchRefresher("id", "secret")(context.Background(), "bad"); err == nil {
		t.Error("a 400 from the token endpoint must surface as an error")
	}
}

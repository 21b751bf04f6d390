package twitchapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource yields a Twitch app access (client credentials) token,
// cached and refreshed by the oauth2 client-credentials flow.
// NOTE: this token CANNOT be used for IRC chat; chat needs a user token
// with chat:read/chat:edit scopes.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // defaults to the Twitch token endpoint
	HTTPClient   *http.Client

	mu  sync.Mutex
	src oauth2.TokenSource
}

const defaultTokenURL = "https://id.twitch.tv/oauth2/token"

// Get returns a valid (fresh or cached) app access token.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return "", errors.New("missing client id/secret for twitch app token")
	}
	ts.mu.Lock()
	if ts.src == nil {
		tokenURL := ts.TokenURL
		if tokenURL == "" {
			tokenURL = defaultTokenURL
		}
		cfg := &clientcredentials.Config{
			ClientID:     ts.ClientID,
			ClientSecret: ts.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams, // Twitch wants creds in the form body
		}
		srcCtx := context.Background()
		if ts.HTTPClient != nil {
			srcCtx = context.WithValue(srcCtx, oauth2.HTTPClient, ts.HTTPClient)
		}
		ts.src = cfg.TokenSource(srcCtx)
	}
	src := ts.src
	ts.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

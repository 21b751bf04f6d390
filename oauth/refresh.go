// Package oauth keeps the bot's Twitch user token fresh. Tokens live in
// the oauth_tokens table; a background loop with jittered wakeups
// refreshes them when expiry falls inside a configured window.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/streambot/db"
)

// twitchTokenURL is the Twitch OAuth token endpoint. Overridable in tests.
var twitchTokenURL = "https://id.twitch.tv/oauth2/token"

// RefreshFunc performs provider-specific refresh and returns the new
// access token, refresh token, expiry, and scope.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// TwitchRefresher builds a RefreshFunc using the oauth2 refresh-token
// grant against the Twitch token endpoint.
func TwitchRefresher(clientID, clientSecret string) RefreshFunc {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: twitchTokenURL},
	}
	return func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		scope := ""
		switch v := tok.Extra("scope").(type) {
		case string:
			scope = v
		case []any:
			parts := make([]string, 0, len(v))
			for _, s := range v {
				if str, ok := s.(string); ok {
					parts = append(parts, str)
				}
			}
			scope = strings.Join(parts, " ")
		}
		return tok.AccessToken, tok.RefreshToken, tok.Expiry, scope, nil
	}
}

// StartRefresher launches a goroutine that periodically checks the
// provider's token row and refreshes it inside the expiry window. Wakeups
// are jittered so multiple instances don't stampede the token endpoint.
func StartRefresher(ctx context.Context, database *sql.DB, provider string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	//nolint:gosec // G404: scheduling jitter, not security sensitive
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: scheduling jitter, not security sensitive
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			refreshOnce(ctx, database, provider, window, fn)
		}
	}()
}

func refreshOnce(ctx context.Context, database *sql.DB, provider string, window time.Duration, fn RefreshFunc) {
	tok, err := db.GetOAuthToken(ctx, database, provider)
	if err != nil || tok == nil || tok.RefreshToken == "" {
		return
	}
	if !tok.ExpiresAt.IsZero() && time.Until(tok.ExpiresAt) > window {
		return
	}
	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	access, refresh, expiry, scope, err := fn(ctx2, tok.RefreshToken)
	cancel()
	if err != nil {
		slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
		return
	}
	if refresh == "" {
		refresh = tok.RefreshToken
	}
	if scope == "" {
		scope = tok.Scope
	}
	next := &db.OAuthToken{
		Provider:     provider,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiry,
		Scope:        strings.TrimSpace(scope),
	}
	if err := db.SetOAuthToken(ctx, database, next); err != nil {
		slog.Warn("token persist failed", slog.String("provider", provider), slog.Any("err", err))
		return
	}
	slog.Info("token refreshed", slog.String("provider", provider))
}

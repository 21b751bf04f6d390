// Package twitchapi contains minimal helpers to interact with Twitch
// Helix APIs for user id resolution and follower listing, using an app
// access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HelixClient provides the minimal Helix surface the follow poller needs.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	BaseURL        string // defaults to https://api.twitch.tv/helix
	HTTPClient     *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return "https://api.twitch.tv/helix"
}

func (hc *HelixClient) do(ctx context.Context, path string, query map[string]string, out any) error {
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix %s: unexpected status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.do(ctx, "/users", map[string]string{"login": login}, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// Follower is one channel follower entry.
type Follower struct {
	UserID     string    `json:"user_id"`
	UserLogin  string    `json:"user_login"`
	UserName   string    `json:"user_name"`
	FollowedAt time.Time `json:"followed_at"`
}

// ListFollowers returns the most recent followers of a channel, newest
// first.
func (hc *HelixClient) ListFollowers(ctx context.Context, broadcasterID string, first int) ([]Follower, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	if first <= 0 {
		first = 20
	}
	var body struct {
		Data []Follower `json:"data"`
	}
	query := map[string]string{
		"broadcaster_id": broadcasterID,
		"first":          fmt.Sprintf("%d", first),
	}
	if err := hc.do(ctx, "/channels/followers", query, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// Package twitch checks whether sampled players are live on Twitch via
// the Helix API, authenticating with the app client-credentials flow.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/spyglass-mc/spyglass/internal/browse"
)

const (
	helixStreamsURL = "https://api.twitch.tv/helix/streams"
	tokenURL        = "https://id.twitch.tv/oauth2/token"
)

// Stream is one live Helix stream entry.
type Stream struct {
	UserLogin   string `json:"user_login"`
	UserName    string `json:"user_name"`
	Title       string `json:"title"`
	ViewerCount int    `json:"viewer_count"`
}

// URL is the public channel address.
func (s Stream) URL() string {
	return "https://twitch.tv/" + s.UserLogin
}

// Client talks to Helix with an app access token.
type Client struct {
	clientID string
	http     *http.Client
	base     string
}

// New builds a Helix client. The returned client refreshes its app token
// as needed through the client-credentials token source.
func New(ctx context.Context, clientID, clientSecret string) *Client {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return &Client{
		clientID: clientID,
		http:     cfg.Client(ctx),
		base:     helixStreamsURL,
	}
}

// NewWithClient injects the transport and endpoint, for tests.
func NewWithClient(clientID string, hc *http.Client, base string) *Client {
	return &Client{clientID: clientID, http: hc, base: base}
}

// LiveStream returns the stream a login is currently broadcasting, or
// nil when offline.
func (c *Client) LiveStream(ctx context.Context, login string) (*Stream, error) {
	u := c.base + "?user_login=" + url.QueryEscape(login)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", c.clientID)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("helix streams: %s", res.Status)
	}

	var payload struct {
		Data []Stream `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}
	return &payload.Data[0], nil
}

// Presence adapts the client to the renderer's presence contract.
type Presence struct {
	Client *Client
}

func (p Presence) Lookup(ctx context.Context, username string) (*browse.Stream, error) {
	s, err := p.Client.LiveStream(ctx, username)
	if err != nil || s == nil {
		return nil, err
	}
	return &browse.Stream{
		Name:    s.UserName,
		Title:   s.Title,
		URL:     s.URL(),
		Viewers: s.ViewerCount,
	}, nil
}

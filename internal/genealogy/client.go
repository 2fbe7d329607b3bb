// Package genealogy talks to the legacy network-marketing backend that
// serves the upline and sponsored-downline trees.
package genealogy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	uplineEndpoint   = "/api/userUpline"
	downlineEndpoint = "/api/sponsoredDownline"
)

// UplineNode is one ancestor in a user's upline chain.
type UplineNode struct {
	Level     string `json:"lvl"`
	IDNo      string `json:"idno"`
	UserName  string `json:"user_name"`
	User      string `json:"user"`
	Placement string `json:"placement"`
}

// DownlineNode is one member of a sponsor's downline.
type DownlineNode struct {
	IDNo        string `json:"idno"`
	Registered  string `json:"registered"`
	UserName    string `json:"user_name"`
	User        string `json:"user"`
	AccountType string `json:"account_type"`
	Payment     string `json:"payment"`
}

// Client queries the legacy genealogy API. The API authenticates with a
// predictable time-derived key; see APIKey.
type Client struct {
	baseURL string
	user    string
	client  *http.Client
	now     func() time.Time

	mu          sync.Mutex
	uplineCache []UplineNode
}

// NewClient constructs a Client for the given base URL and account user.
func NewClient(baseURL, user string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		user:    user,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// APIKey derives the shared secret for a point in time: two-digit hour,
// four-digit year, two-digit month, two-digit day of the local clock. The
// backend recomputes the same value, so the key is only valid within the
// hour it was generated.
func APIKey(t time.Time) string {
	return fmt.Sprintf("%02d%04d%02d%02d", t.Hour(), t.Year(), int(t.Month()), t.Day())
}

// Upline returns the upline chain. The full tree is fetched once and cached;
// a non-empty username filters the cached rows locally with a
// case-insensitive substring match on user name and user id. An empty
// username reloads the tree from the server.
func (c *Client) Upline(ctx context.Context, username string) ([]UplineNode, error) {
	username = strings.TrimSpace(username)

	if username != "" {
		c.mu.Lock()
		cached := c.uplineCache
		c.mu.Unlock()
		if len(cached) == 0 {
			var err error
			cached, err = c.fetchUpline(ctx)
			if err != nil {
				return nil, err
			}
		}
		q := strings.ToLower(username)
		var filtered []UplineNode
		for _, node := range cached {
			if strings.Contains(strings.ToLower(node.UserName), q) ||
				strings.Contains(strings.ToLower(node.User), q) {
				filtered = append(filtered, node)
			}
		}
		return filtered, nil
	}

	return c.fetchUpline(ctx)
}

func (c *Client) fetchUpline(ctx context.Context) ([]UplineNode, error) {
	// No username parameter here: the backend resolves its root hash.
	body, err := c.get(ctx, uplineEndpoint, url.Values{})
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data []UplineNode `json:"data"`
	}
	decodeEnvelope(body, &envelope)
	c.mu.Lock()
	c.uplineCache = envelope.Data
	c.mu.Unlock()
	return envelope.Data, nil
}

// Downline returns the sponsored downline. Unlike Upline this is always a
// server call; an empty username makes the backend use its default root.
func (c *Client) Downline(ctx context.Context, username string) ([]DownlineNode, error) {
	params := url.Values{}
	if username = strings.TrimSpace(username); username != "" {
		params.Set("username", username)
	}
	body, err := c.get(ctx, downlineEndpoint, params)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data []DownlineNode `json:"data"`
	}
	decodeEnvelope(body, &envelope)
	if len(envelope.Data) == 0 {
		log.Warn().Str("username", username).Msg("No sponsored downline data found")
	}
	return envelope.Data, nil
}

// get performs an authenticated GET and returns the raw body. Non-2xx
// responses are errors; an empty body is not.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("user", c.user)
	params.Set("apikey", APIKey(c.now()))

	reqURL := c.baseURL + endpoint + "?" + params.Encode()
	log.Debug().Str("url", c.baseURL+endpoint).Msg("Calling genealogy API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request %s failed with status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// decodeEnvelope tolerates empty and malformed bodies: both leave the
// envelope zero-valued instead of failing the operation.
func decodeEnvelope(body []byte, out any) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Error().Err(err).Str("body", string(body)).Msg("Failed to parse genealogy response")
	}
}

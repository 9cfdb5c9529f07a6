package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guildtrack/guildtrack/internal/models"
)

// RESTClient talks to the upstream directory over HTTP. A 404 from the
// directory means "does not exist" and is surfaced as (nil, nil); any other
// non-2xx status is a transport error.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewRESTClient creates a directory client for the given base URL. The token
// is sent as the Authorization header on every request; pass "" when the
// directory is unauthenticated.
func NewRESTClient(baseURL, token string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *RESTClient) User(ctx context.Context, userID int64) (*models.Identity, error) {
	var id models.Identity
	found, err := c.get(ctx, fmt.Sprintf("/users/%d", userID), &id)
	if err != nil || !found {
		return nil, err
	}
	return &id, nil
}

func (c *RESTClient) Guild(ctx context.Context, guildID int64) (*models.Guild, error) {
	var g models.Guild
	found, err := c.get(ctx, fmt.Sprintf("/guilds/%d", guildID), &g)
	if err != nil || !found {
		return nil, err
	}
	return &g, nil
}

func (c *RESTClient) Member(ctx context.Context, guildID, userID int64) (*models.Identity, error) {
	var id models.Identity
	found, err := c.get(ctx, fmt.Sprintf("/guilds/%d/members/%d", guildID, userID), &id)
	if err != nil || !found {
		return nil, err
	}
	if id.GuildID == nil {
		id.GuildID = &guildID
	}
	return &id, nil
}

// get performs the request and decodes the body into v. Returns found=false
// on 404 without error.
func (c *RESTClient) get(ctx context.Context, path string, v interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("directory request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("directory %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("directory %s: decode: %w", path, err)
	}
	return true, nil
}

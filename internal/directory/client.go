// Package directory resolves user ids to display profiles via the user
// service's internal API. Review listings join review authors through it.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hazelmart/catalog/pkg/httpclient"
)

// UserProfile is the subset of a user record the catalog displays.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Client talks to the user service over its internal HTTP API, behind a
// circuit breaker so a directory outage cannot take review listings down
// with it.
type Client struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a user directory client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	inner := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(inner, httpclient.DefaultCircuitBreakerConfig("user-directory"), logger)
	return &Client{
		http:    cb,
		baseURL: baseURL,
		logger:  logger,
	}
}

// GetUser fetches a single user's display profile.
func (c *Client) GetUser(ctx context.Context, userID string) (*UserProfile, error) {
	url := fmt.Sprintf("%s/internal/v1/users/%s", c.baseURL, userID)

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "user-directory")
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}

	return &profile, nil
}

// GetUsers resolves a batch of user ids. Unresolvable users are skipped with
// a warning rather than failing the whole batch; the caller renders what it
// got.
func (c *Client) GetUsers(ctx context.Context, userIDs []string) (map[string]UserProfile, error) {
	profiles := make(map[string]UserProfile, len(userIDs))
	for _, id := range userIDs {
		if _, ok := profiles[id]; ok {
			continue
		}
		profile, err := c.GetUser(ctx, id)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to resolve review author",
				slog.String("user_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		profiles[id] = *profile
	}
	return profiles, nil
}

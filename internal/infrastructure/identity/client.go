package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fitnease/comms/internal/config"
)

// Profile is the subset of the auth service's user profile this service reads
// for message personalization.
type Profile struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	FitnessLevel string `json:"fitness_level"`
}

// Resolver looks up user identity details from the auth service. Lookups are
// personalization-only: callers must treat failures as degraded, never fatal.
type Resolver interface {
	// Username resolves a display name via the internal (service-to-service)
	// endpoint that requires no user credential.
	Username(ctx context.Context, userID string) (string, error)
	// Profile fetches the full profile on behalf of the requesting user.
	Profile(ctx context.Context, userID, bearerToken string) (*Profile, error)
}

type client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds an auth-service client with a short bounded timeout.
func NewClient(cfg *config.Config) Resolver {
	return &client{
		httpClient: &http.Client{Timeout: cfg.AuthServiceTimeout},
		baseURL:    cfg.AuthServiceURL,
	}
}

func (c *client) Username(ctx context.Context, userID string) (string, error) {
	var body struct {
		Username string `json:"username"`
		Data     struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/api/internal/user-profile/"+userID, "", &body); err != nil {
		return "", err
	}
	// Some auth-service versions wrap the user object in "data".
	if body.Username != "" {
		return body.Username, nil
	}
	if body.Data.Username != "" {
		return body.Data.Username, nil
	}
	return "", fmt.Errorf("auth service returned no username for user %s", userID)
}

func (c *client) Profile(ctx context.Context, userID, bearerToken string) (*Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, c.baseURL+"/auth/user-profile/"+userID, bearerToken, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *client) getJSON(ctx context.Context, url, bearerToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// internal/notify/service.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"

	"myads-pipeline/internal/common/http"
	"myads-pipeline/internal/format"
)

// UserAPI resolves a user id to the recipient email address:
// GET <endpoint>/<user_id> -> {"id": .., "email": ".."}.
type UserAPI struct {
	endpoint string
	client   *http.Client
}

// NewUserAPI creates a user lookup service against the given endpoint.
func NewUserAPI(endpoint string, client *http.Client) *UserAPI {
	return &UserAPI{
		endpoint: endpoint,
		client:   client,
	}
}

// GetEmail returns the email address registered for the user.
func (s *UserAPI) GetEmail(ctx context.Context, userID string) (string, error) {
	resp, err := s.client.Get(ctx, fmt.Sprintf("%s/%s", s.endpoint, url.PathEscape(userID)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("user lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		ID    json.Number `json:"id"`
		Email string      `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Email == "" {
		return "", fmt.Errorf("no email registered for user %s", userID)
	}

	return out.Email, nil
}

// QueryAPI executes a user's saved myADS queries through the vault service:
// GET <endpoint>/<user_id>?frequency=<f> -> [{"name": .., "query_url": ..,
// "results": [..]}, ...].
type QueryAPI struct {
	endpoint string
	client   *http.Client
}

// NewQueryAPI creates a query execution service against the given endpoint.
func NewQueryAPI(endpoint string, client *http.Client) *QueryAPI {
	return &QueryAPI{
		endpoint: endpoint,
		client:   client,
	}
}

// Results returns the per-query result sets for the user's notification.
func (s *QueryAPI) Results(ctx context.Context, userID, frequency string) ([]format.QueryResult, error) {
	u := fmt.Sprintf("%s/%s?frequency=%s", s.endpoint, url.PathEscape(userID), url.QueryEscape(frequency))

	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("query execution returned status %d: %s", resp.StatusCode, string(body))
	}

	var out []format.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return out, nil
}

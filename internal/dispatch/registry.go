// internal/dispatch/registry.go
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"myads-pipeline/internal/common/http"
)

// HTTPUserRegistry enumerates eligible users from the ADS vault service:
// GET <endpoint>/<iso-date> -> {"users": ["id", ...]}.
type HTTPUserRegistry struct {
	endpoint string
	client   *http.Client
}

// NewHTTPUserRegistry creates a registry against the given endpoint.
func NewHTTPUserRegistry(endpoint string, client *http.Client) *HTTPUserRegistry {
	return &HTTPUserRegistry{
		endpoint: endpoint,
		client:   client,
	}
}

// UsersSince returns the users with myADS setups created or updated since
// the given instant, plus those due for recurring delivery.
func (r *HTTPUserRegistry) UsersSince(ctx context.Context, since time.Time) ([]string, error) {
	url := fmt.Sprintf("%s/%s", r.endpoint, since.UTC().Format(time.RFC3339))

	resp, err := r.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("user registry returned status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Users []string `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return out.Users, nil
}

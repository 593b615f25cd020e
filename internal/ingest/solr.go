// internal/ingest/solr.go
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"

	"myads-pipeline/internal/common/errors"
	"myads-pipeline/internal/common/http"
)

// SolrProbe queries the ADS search endpoint for a single identifier.
// Auth is a bearer token carried by the shared HTTP client.
type SolrProbe struct {
	endpoint string
	client   *http.Client
}

type solrResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
	} `json:"response"`
}

// NewSolrProbe creates a probe against the given query endpoint.
func NewSolrProbe(endpoint string, client *http.Client) *SolrProbe {
	return &SolrProbe{
		endpoint: endpoint,
		client:   client,
	}
}

// Probe issues GET <endpoint>?q=identifier:<id>. Any transport failure or
// non-200 status is returned as a retryable probe error.
func (p *SolrProbe) Probe(ctx context.Context, identifier string) (int, error) {
	query := fmt.Sprintf("%s?q=%s", p.endpoint, url.QueryEscape("identifier:"+identifier))

	resp, err := p.client.Get(ctx, query)
	if err != nil {
		return 0, errors.NewProbeTransportError(identifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, errors.NewProbeTransportError(identifier,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var out solrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, errors.NewProbeTransportError(identifier, err)
	}

	return out.Response.NumFound, nil
}

// internal/ingest/elasticsearch.go
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"myads-pipeline/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchProbe checks a mirror index for an identifier. Deployments that
// replicate the ingest stream into Elasticsearch can gate on the mirror
// instead of hitting the public query endpoint.
type ElasticsearchProbe struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticsearchProbe creates a probe against the given index.
func NewElasticsearchProbe(client *elasticsearch.Client, index string) *ElasticsearchProbe {
	return &ElasticsearchProbe{
		client: client,
		index:  index,
	}
}

// Probe runs a count query on the identifier field.
func (p *ElasticsearchProbe) Probe(ctx context.Context, identifier string) (int, error) {
	query := fmt.Sprintf(`{"query": {"term": {"identifier": %q}}}`, identifier)

	res, err := p.client.Count(
		p.client.Count.WithContext(ctx),
		p.client.Count.WithIndex(p.index),
		p.client.Count.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return 0, errors.NewProbeTransportError(identifier, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, errors.NewProbeTransportError(identifier,
			fmt.Errorf("count request failed: %s", res.Status()))
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, errors.NewProbeTransportError(identifier, err)
	}

	return out.Count, nil
}

// internal/ingest/solr_test.go
package ingest

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myads-pipeline/internal/common/errors"
	"myads-pipeline/internal/common/http"
)

func TestSolrProbe_Hit(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		assert.Equal(t, "identifier:arXiv:0706.2492", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"response": {"numFound": 1, "docs": []}}`))
	}))
	defer server.Close()

	probe := NewSolrProbe(server.URL, http.NewAuthenticatedClient(5*time.Second, "test-token"))

	found, err := probe.Probe(context.Background(), "arXiv:0706.2492")
	require.NoError(t, err)
	assert.Equal(t, 1, found)
}

func TestSolrProbe_Miss(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Write([]byte(`{"response": {"numFound": 0, "docs": []}}`))
	}))
	defer server.Close()

	probe := NewSolrProbe(server.URL, http.NewAuthenticatedClient(5*time.Second, "test-token"))

	found, err := probe.Probe(context.Background(), "2012yCat..51392620N")
	require.NoError(t, err)
	assert.Equal(t, 0, found)
}

func TestSolrProbe_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusBadGateway)
	}))
	defer server.Close()

	probe := NewSolrProbe(server.URL, http.NewAuthenticatedClient(5*time.Second, "test-token"))

	_, err := probe.Probe(context.Background(), "arXiv:0706.2492")
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestSolrProbe_ConnectionRefusedIsRetryable(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {}))
	server.Close()

	probe := NewSolrProbe(server.URL, http.NewAuthenticatedClient(time.Second, "test-token"))

	_, err := probe.Probe(context.Background(), "arXiv:0706.2492")
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestSolrProbe_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	probe := NewSolrProbe(server.URL, http.NewAuthenticatedClient(5*time.Second, "test-token"))

	_, err := probe.Probe(context.Background(), "arXiv:0706.2492")
	require.Error(t, err)
}

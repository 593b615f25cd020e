// internal/notify/service_test.go
package notify

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myads-pipeline/internal/common/http"
	"myads-pipeline/internal/format"
)

func TestUserAPI_GetEmail(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		assert.Equal(t, "/user-email/42", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id": 42, "email": "reader@example.com"}`))
	}))
	defer server.Close()

	api := NewUserAPI(server.URL+"/user-email",
		http.NewAuthenticatedClient(5*time.Second, "test-token"))

	email, err := api.GetEmail(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", email)
}

func TestUserAPI_GetEmail_MissingAddress(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Write([]byte(`{"id": 42, "email": ""}`))
	}))
	defer server.Close()

	api := NewUserAPI(server.URL, http.NewAuthenticatedClient(5*time.Second, "test-token"))

	_, err := api.GetEmail(context.Background(), "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no email registered")
}

func TestUserAPI_GetEmail_NotFound(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusNotFound)
	}))
	defer server.Close()

	api := NewUserAPI(server.URL, http.NewAuthenticatedClient(5*time.Second, "test-token"))

	_, err := api.GetEmail(context.Background(), "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestQueryAPI_Results(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		assert.Equal(t, "/vault/42", r.URL.Path)
		assert.Equal(t, "daily", r.URL.Query().Get("frequency"))
		w.Write([]byte(`[
			{
				"name": "Query 1",
				"query_url": "https://path/to/query",
				"results": [
					{
						"bibcode": "2012yCat..51392620N",
						"title": ["VizieR Online Data Catalog"],
						"author_norm": ["Nantais, J", "Huchra, J"]
					}
				]
			}
		]`))
	}))
	defer server.Close()

	api := NewQueryAPI(server.URL+"/vault",
		http.NewAuthenticatedClient(5*time.Second, "test-token"))

	results, err := api.Results(context.Background(), "42", "daily")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, format.QueryResult{
		Name:     "Query 1",
		QueryURL: "https://path/to/query",
		Results: []format.RecordSummary{
			{
				Bibcode:    "2012yCat..51392620N",
				Title:      []string{"VizieR Online Data Catalog"},
				AuthorNorm: []string{"Nantais, J", "Huchra, J"},
			},
		},
	}, results[0])
}

func TestQueryAPI_Results_ServerError(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusInternalServerError)
	}))
	defer server.Close()

	api := NewQueryAPI(server.URL, http.NewAuthenticatedClient(5*time.Second, "test-token"))

	_, err := api.Results(context.Background(), "42", "weekly")
	require.Error(t, err)
}

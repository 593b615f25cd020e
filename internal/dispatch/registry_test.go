// internal/dispatch/registry_test.go
package dispatch

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myads-pipeline/internal/common/http"
)

func TestHTTPUserRegistry_UsersSince(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		assert.Equal(t, "/users-since/2023-06-12T00:00:00Z", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"users": ["1", "42", "317"]}`))
	}))
	defer server.Close()

	registry := NewHTTPUserRegistry(server.URL+"/users-since",
		http.NewAuthenticatedClient(5*time.Second, "test-token"))

	since := time.Date(2023, time.June, 12, 0, 0, 0, 0, time.UTC)
	users, err := registry.UsersSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "42", "317"}, users)
}

func TestHTTPUserRegistry_SinceNormalizedToUTC(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"users": []}`))
	}))
	defer server.Close()

	registry := NewHTTPUserRegistry(server.URL+"/users-since",
		http.NewAuthenticatedClient(5*time.Second, "test-token"))

	est := time.FixedZone("EST", -5*3600)
	since := time.Date(2023, time.June, 11, 23, 30, 0, 0, est)
	_, err := registry.UsersSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, "/users-since/2023-06-12T04:30:00Z", gotPath)
}

func TestHTTPUserRegistry_EmptyRun(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Write([]byte(`{"users": []}`))
	}))
	defer server.Close()

	registry := NewHTTPUserRegistry(server.URL,
		http.NewAuthenticatedClient(5*time.Second, "test-token"))

	users, err := registry.UsersSince(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestHTTPUserRegistry_ServerError(t *testing.T) {
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusInternalServerError)
		w.Write([]byte(`vault unavailable`))
	}))
	defer server.Close()

	registry := NewHTTPUserRegistry(server.URL,
		http.NewAuthenticatedClient(5*time.Second, "test-token"))

	_, err := registry.UsersSince(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

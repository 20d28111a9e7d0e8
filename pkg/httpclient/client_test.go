package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRotatesUserAgents(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("User-Agent"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewRestyClient(5*time.Second, WithUserAgents("agent-a", " ", "agent-b"))
	for range 3 {
		resp, err := c.Get(context.Background(), srv.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
	}

	assert.Equal(t, []string{"agent-a", "agent-b", "agent-a"}, seen)
}

func TestGetKeepsExplicitUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewRestyClient(5 * time.Second)
	_, err := c.Get(context.Background(), srv.URL, map[string]string{"user-agent": "custom/1.0"})
	require.NoError(t, err)
	assert.Equal(t, "custom/1.0", got)
}

func TestGetDoesNotRetryHTTPErrors(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewRestyClient(5*time.Second, WithRetryWait(0))
	resp, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, 1, calls)
}

func TestGetHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewRestyClient(5*time.Second, WithRetryWait(0))
	_, err := c.Get(ctx, srv.URL, nil)
	require.Error(t, err)
}

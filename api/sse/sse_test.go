package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miniworld/server/cache"
	"github.com/kasuganosora/miniworld/server/config"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func newSSEServer(t *testing.T, sec config.SecurityConfig) (*httptest.Server, cache.PubSub, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ps, err := cache.NewPubSub(config.CacheConfig{LocalPubSubBuf: 16})
	require.NoError(t, err)
	h := NewHandler(ps, sec, nopLogger())
	r := gin.New()
	r.GET("/api/events", h.ServeSSE)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, ps, h
}

// readEvent reads lines until a blank line ends one event.
func readEvent(t *testing.T, rd *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if len(lines) > 0 {
				return lines
			}
			continue
		}
		lines = append(lines, line)
	}
}

func TestServeSSE_StreamsChanges(t *testing.T) {
	srv, ps, _ := newSSEServer(t, config.SecurityConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	assert.Equal(t, []string{"event: connected", "data: {}"}, readEvent(t, rd))

	payload := `{"kind":"action","actor":"hero","action":"PLACE_TILE","changes":[]}`
	require.NoError(t, ps.Publish(ctx, action.ChangesChannel, payload))
	require.NoError(t, ps.Publish(ctx, "other", "ignored"))
	require.NoError(t, ps.Publish(ctx, action.ChangesChannel, `{"kind":"tick"}`))

	assert.Equal(t, []string{"id: 1", "event: change", "data: " + payload}, readEvent(t, rd))
	assert.Equal(t, []string{"id: 2", "event: change", `data: {"kind":"tick"}`}, readEvent(t, rd))
}

func TestServeSSE_Keepalive(t *testing.T) {
	srv, _, h := newSSEServer(t, config.SecurityConfig{})
	h.SetKeepalive(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	rd := bufio.NewReader(resp.Body)
	readEvent(t, rd)
	assert.Equal(t, []string{": keepalive"}, readEvent(t, rd))
}

func TestServeSSE_OriginCheck(t *testing.T) {
	srv, _, _ := newSSEServer(t, config.SecurityConfig{AllowedOrigins: []string{"http://good.example"}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://good.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://good.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

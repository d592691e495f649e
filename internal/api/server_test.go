package api

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/investor-coach/pkg/config"
	"github.com/wonny/investor-coach/pkg/logger"
)

func TestServerServeAndShutdown(t *testing.T) {
	cfg := &config.Config{
		Port:      "0",
		Env:       "test",
		Analytics: config.AnalyticsConfig{FetchTimeout: 10 * time.Second},
	}
	h, _ := newTestRouter(t, &fakeComparer{})
	srv := New(cfg, logger.Nop(), h)
	assert.Equal(t, 40*time.Second, srv.httpServer.WriteTimeout)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}

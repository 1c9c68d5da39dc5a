package ops

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthCheck(t *testing.T) {
	ok := NewServer(":0", fakePinger{}, nil, logging.Nop())
	rec := get(t, ok.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	down := NewServer(":0", fakePinger{err: errors.New("conn refused")}, nil, logging.Nop())
	rec = get(t, down.Router(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.NewCollector("finkeeper_server")
	m.RPC("Ping", "OK")

	s := NewServer(":0", fakePinger{}, m, logging.Nop())
	rec := get(t, s.Router(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "finkeeper_server_")

	bare := NewServer(":0", nil, nil, logging.Nop())
	assert.Equal(t, http.StatusNotFound, get(t, bare.Router(), "/metrics").Code)
	assert.Equal(t, http.StatusOK, get(t, bare.Router(), "/healthz").Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer("", fakePinger{}, nil, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestRun_BadAddress(t *testing.T) {
	s := NewServer("127.0.0.1:99999", nil, nil, logging.Nop())
	assert.Error(t, s.Run(context.Background()))
}

package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frankjeworrek-lab/yat/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestMonitor(probeURL string) *Monitor {
	return New(config.MonitorConfig{
		ProbeURL: probeURL,
		Interval: 10 * time.Millisecond,
		Timeout:  time.Second,
	}, zap.NewNop())
}

func TestOptimisticUntilFirstProbe(t *testing.T) {
	m := newTestMonitor("http://127.0.0.1:1")
	assert.True(t, m.Online())
}

func TestProbeReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	m := newTestMonitor(server.URL)
	m.probe(context.Background())
	assert.True(t, m.Online())
}

func TestProbeUnreachableFlipsOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	m := newTestMonitor(url)
	m.probe(context.Background())
	assert.False(t, m.Online())
}

func TestStateRecoversAfterOutage(t *testing.T) {
	var reachable bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !reachable {
			// Hijack and drop the connection to simulate an outage.
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				_ = conn.Close()
				return
			}
		}
	}))
	defer server.Close()

	m := newTestMonitor(server.URL)
	ctx := context.Background()

	m.probe(ctx)
	assert.False(t, m.Online())

	reachable = true
	m.probe(ctx)
	assert.True(t, m.Online())
}

func TestStartStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	m := newTestMonitor(server.URL)
	m.Start(context.Background())
	m.Stop()

	// Stop must not hang or panic when called after a clean start.
	assert.True(t, m.Online())
}

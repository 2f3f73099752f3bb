// Package monitor watches internet connectivity with a periodic probe
// against a well-known URL. The flag it maintains is advisory: the
// chat UI shows it, nothing blocks on it.
package monitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/frankjeworrek-lab/yat/internal/config"
	"github.com/frankjeworrek-lab/yat/internal/metrics"
	"go.uber.org/zap"
)

type Monitor struct {
	mu     sync.RWMutex
	online bool

	probeURL string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(cfg config.MonitorConfig, logger *zap.Logger) *Monitor {
	return &Monitor{
		online:   true, // optimistic until the first probe
		probeURL: cfg.ProbeURL,
		interval: cfg.Interval,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// Start launches the probe loop. The first probe runs almost
// immediately; subsequent ones follow the configured interval.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	metrics.NetworkOnline.Set(1)

	go func() {
		defer close(m.done)

		first := time.NewTimer(2 * time.Second)
		defer first.Stop()
		select {
		case <-first.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.probe(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

func (m *Monitor) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		m.setOnline(false)
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.setOnline(false)
		return
	}
	_ = resp.Body.Close()
	m.setOnline(true)
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		metrics.NetworkOnline.Set(1)
		m.logger.Info("Network connection restored")
	} else {
		metrics.NetworkOnline.Set(0)
		m.logger.Warn("Network connection lost")
	}
}

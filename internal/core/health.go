package core

import (
	"context"
	"sync"
	"time"

	"github.com/coregx/fluentdb/internal/logger"
)

const healthPingTimeout = 5 * time.Second

// pinger is the part of *sql.DB the health loop needs.
type pinger interface {
	PingContext(ctx context.Context) error
}

// healthChecker pings the pool on an interval so a dead server shows up in
// IsHealthy before a statement hits it.
type healthChecker struct {
	pool     pinger
	logger   logger.Logger
	interval time.Duration

	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	mu       sync.Mutex
	lastErr  error
	lastPing time.Time
	failures int
}

func newHealthChecker(pool pinger, log logger.Logger, interval time.Duration) *healthChecker {
	return &healthChecker{
		pool:     pool,
		logger:   log,
		interval: interval,
		cancel:   func() {},
		done:     make(chan struct{}),
	}
}

func (h *healthChecker) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.running = true
	go h.loop(ctx)
}

func (h *healthChecker) loop(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.ping(ctx)
		}
	}
}

func (h *healthChecker) ping(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	err := h.pool.PingContext(ctx)

	h.mu.Lock()
	h.lastErr = err
	h.lastPing = time.Now()
	if err != nil {
		h.failures++
	} else {
		h.failures = 0
	}
	failures := h.failures
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("health check failed", "error", err, "consecutive_failures", failures)
	}
}

// shutdown stops the loop and waits for it to exit. Safe to call twice.
func (h *healthChecker) shutdown() {
	h.cancel()
	if h.running {
		<-h.done
	}
}

func (h *healthChecker) isHealthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr == nil
}

func (h *healthChecker) lastCheck() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastPing
}

// ABOUTME: Periodic self-ping loop that keeps idle-scaling hosts from sleeping the service
// ABOUTME: Best-effort HTTP GETs on a fixed interval until the context is cancelled

package keepalive

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultInterval is the delay between pings when none is configured.
const DefaultInterval = 25 * time.Second

// requestTimeout bounds a single ping so a hung host can't stall the loop.
const requestTimeout = 10 * time.Second

// pingPath is the liveness route requested under the configured base URL.
const pingPath = "/keepalive-ping"

// Pinger periodically requests the site's liveness route to generate
// inbound-looking traffic. Failures are logged at debug level and never
// stop the loop; the ping is purely advisory.
type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger
}

// NewPinger creates a pinger for the site at the given base URL; each ping
// requests <baseURL>/keepalive-ping. A zero or negative interval falls back
// to DefaultInterval.
func NewPinger(baseURL string, interval time.Duration) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pinger{
		url:      strings.TrimRight(baseURL, "/") + pingPath,
		interval: interval,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   slog.Default().With("component", "keepalive"),
	}
}

// Run pings the URL on every interval tick until ctx is cancelled. It blocks;
// callers run it in its own goroutine.
func (p *Pinger) Run(ctx context.Context) {
	p.logger.Info("keepalive loop started", "url", p.url, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("keepalive loop stopped")
			return
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Debug("keepalive request build failed", "error", err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("keepalive ping failed", "error", err)
		return
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	p.logger.Debug("keepalive ping", "status", resp.StatusCode)
}

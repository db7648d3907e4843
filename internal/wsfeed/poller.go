package wsfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tricore/internal/infra/network"
	"tricore/internal/venue"
)

// statusPayload is the shape of a venue's REST status endpoint.
type statusPayload struct {
	FillRate float64 `json:"fill_rate"`
	Uptime   float64 `json:"uptime"`
}

// MetricsPoller refreshes a venue's Metrics from a REST status endpoint
// on a fixed cadence, independent of the WebSocket depth feed. It uses
// the same rate limiter and HTTP client the depth client uses for its
// own reconnects, so a degraded venue gets throttled on both paths at
// once.
type MetricsPoller struct {
	url      string
	v        *venue.SimVenue
	interval time.Duration
	log      zerolog.Logger
	client   *http.Client
	bucket   *network.TokenBucket
}

// NewMetricsPoller builds a poller for v's REST status endpoint at url.
func NewMetricsPoller(url string, v *venue.SimVenue, log zerolog.Logger) *MetricsPoller {
	return &MetricsPoller{
		url:      url,
		v:        v,
		interval: 30 * time.Second,
		log:      log,
		client:   network.NewHTTPClient(),
		bucket:   network.NewTokenBucket(1, 1.0/30.0, 200),
	}
}

// Run polls until ctx is cancelled. A poll that isn't allowed by the
// rate limiter is skipped; one that fails or fails to decode is logged
// and skipped. Neither brings the loop down.
func (p *MetricsPoller) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if !p.bucket.Allow(time.Now()) {
				continue
			}
			if err := p.poll(ctx); err != nil {
				p.log.Warn().Err(err).Str("venue", p.v.Name()).Msg("wsfeed: metrics poll failed")
			}
		}
	}
}

func (p *MetricsPoller) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}

	m := p.v.Metrics()
	m.FillRate = payload.FillRate
	m.Uptime = payload.Uptime
	m.AvgLatencyMs = float64(time.Since(start).Milliseconds())
	p.v.SetMetrics(m)
	return nil
}

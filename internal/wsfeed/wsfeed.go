// Package wsfeed ingests depth updates over a WebSocket connection and
// applies them directly to a venue's book. It is a transport into the
// core, not part of it: it owns real network I/O, reconnection, and
// wall-clock timing, none of which the book/router/quoter packages do.
package wsfeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tricore/internal/book"
	"tricore/internal/infra/network"
	"tricore/internal/venue"
)

// DepthDelta is one decoded book mutation off the wire.
type DepthDelta struct {
	OrderID  string  `json:"order_id"`
	Side     string  `json:"side"` // "buy" or "sell"
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Cancel   bool    `json:"cancel"`
}

// Client is a resilient WebSocket client that applies every decoded
// delta to a venue's book as it arrives. Reconnect attempts are
// throttled by a token bucket so a flapping venue cannot be hammered
// with dial attempts, and connect latency feeds both the venue's own
// Metrics and an egress-wide RTT view.
type Client struct {
	url           string
	v             venue.Venue
	reconnectWait time.Duration
	log           zerolog.Logger
	bucket        *network.TokenBucket
	egress        *network.EgressManager

	conn *websocket.Conn
	mu   sync.Mutex
}

// NewClient returns a client that will apply deltas received at url to
// v's book once Run is called. Reconnects are capped at one every
// reconnectWait on average, bursting up to 3, and back off further
// once observed RTT climbs past 400ms (twice the 200ms baseline).
func NewClient(url string, v venue.Venue, log zerolog.Logger) *Client {
	return &Client{
		url:           url,
		v:             v,
		reconnectWait: 5 * time.Second,
		log:           log,
		bucket:        network.NewTokenBucket(3, 1.0/5.0, 200),
		egress:        network.NewEgressManager(v.Name()),
	}
}

// Run connects and applies incoming deltas until ctx is cancelled,
// reconnecting after a fixed backoff whenever the connection drops.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !c.bucket.Allow(time.Now()) {
			if !sleepOrDone(ctx, c.reconnectWait) {
				return ctx.Err()
			}
			continue
		}

		if err := c.connect(); err != nil {
			c.log.Error().Err(err).Str("url", c.url).Msg("wsfeed: connect failed")
			if !sleepOrDone(ctx, c.reconnectWait) {
				return ctx.Err()
			}
			continue
		}

		c.readLoop(ctx)
		if !sleepOrDone(ctx, c.reconnectWait) {
			return ctx.Err()
		}
	}
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return err
	}
	rtt := float64(time.Since(start).Milliseconds())
	c.egress.UpdateRTT(network.RTTStats{Exchange: c.v.Name(), WSMedianMs: rtt})
	c.bucket.AdjustForRTT(rtt)
	if sv, ok := c.v.(interface{ SetMetrics(venue.Metrics) }); ok {
		m := c.v.Metrics()
		m.AvgLatencyMs = rtt
		sv.SetMetrics(m)
	}
	c.conn = conn
	return nil
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.closeConn()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if c.conn == nil {
			return
		}
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if err := c.Apply(msg); err != nil {
			c.log.Warn().Err(err).Msg("wsfeed: dropping malformed message")
		}
	}
}

// Apply decodes one raw message and applies it to the venue's book.
// Exported so tests can drive it without a live socket.
func (c *Client) Apply(raw []byte) error {
	var d DepthDelta
	if err := json.Unmarshal(raw, &d); err != nil {
		return err
	}
	side := book.Buy
	if d.Side == "sell" {
		side = book.Sell
	}
	if d.Cancel {
		c.v.Book().Cancel(d.OrderID)
		return nil
	}
	_, err := c.v.Book().Add(d.OrderID, d.Price, d.Quantity, side)
	return err
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

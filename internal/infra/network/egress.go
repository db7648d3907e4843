// Package network holds the transport-level plumbing shared by the
// feed and REST clients: a rate limiter for reconnect/poll attempts,
// a configured *http.Client, and a small RTT tracker keyed by venue.
package network

import "sync"

// EgressManager tracks the most recently observed RTT per venue name,
// so a client can read back what it (or a sibling client) last saw
// without threading the value through call sites by hand.
type EgressManager struct {
	label string

	mu   sync.Mutex
	last map[string]RTTStats
}

func NewEgressManager(label string) *EgressManager {
	return &EgressManager{label: label, last: make(map[string]RTTStats)}
}

// RTTStats is one observation of round-trip latency to an exchange.
type RTTStats struct {
	Exchange     string
	WSMedianMs   float64
	RESTMedianMs float64
}

// UpdateRTT records the latest observation for s.Exchange.
func (e *EgressManager) UpdateRTT(s RTTStats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last[s.Exchange] = s
}

// LastRTT returns the most recent observation recorded for exchange,
// and whether one has been recorded at all.
func (e *EgressManager) LastRTT(exchange string) (RTTStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.last[exchange]
	return s, ok
}

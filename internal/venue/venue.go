// Package venue models a single trading venue as a set of narrow
// capabilities layered over a book, the way the pack's exchange adapters
// model a real exchange connection as a capability set rather than a
// single fat interface.
package venue

import "tricore/internal/book"

// ID identifies a venue. The zero value, Unknown, is never a valid
// routing target.
type ID int

const (
	Unknown ID = iota
	Binance
	Coinbase
	Kraken
	FTX
)

func (id ID) String() string {
	switch id {
	case Binance:
		return "binance"
	case Coinbase:
		return "coinbase"
	case Kraken:
		return "kraken"
	case FTX:
		return "ftx"
	default:
		return "unknown"
	}
}

// FeeSchedule holds the maker/taker fee rates a venue charges, expressed
// as a fraction of notional (0.001 == 10 bps).
type FeeSchedule struct {
	MakerRate float64
	TakerRate float64
}

// DefaultFeeSchedule mirrors the reference implementation's defaults.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{MakerRate: 0.001, TakerRate: 0.002}
}

// Metrics summarizes a venue's recent operating characteristics, used by
// the router's latency-adjusted scoring.
type Metrics struct {
	AvgLatencyMs float64
	FillRate     float64
	Uptime       float64
}

// Venue is the minimal contract the router and quoter depend on. A
// concrete venue is free to implement additional narrow interfaces
// (none are required beyond this one for the simulated core).
type Venue interface {
	ID() ID
	Name() string
	Book() *book.Book
	Available() bool
	Fees() FeeSchedule
	Metrics() Metrics
}

// SimVenue is an in-process venue backed by a local order book, used by
// the backtest driver in place of a real exchange connection. Its
// available flag models the venue's own dynamic health (an outage or a
// maintenance window) — distinct from the SOR's active flag, which is
// the router's own decision to include or exclude a registered venue
// from routing regardless of the venue's health.
type SimVenue struct {
	id        ID
	name      string
	b         *book.Book
	fees      FeeSchedule
	metrics   Metrics
	available bool
}

// NewSimVenue constructs a venue over a fresh book.
func NewSimVenue(id ID, fees FeeSchedule) *SimVenue {
	return &SimVenue{
		id:        id,
		name:      id.String(),
		b:         book.New(),
		fees:      fees,
		available: true,
	}
}

func (v *SimVenue) ID() ID            { return v.id }
func (v *SimVenue) Name() string      { return v.name }
func (v *SimVenue) Book() *book.Book  { return v.b }
func (v *SimVenue) Available() bool   { return v.available }
func (v *SimVenue) Fees() FeeSchedule { return v.fees }
func (v *SimVenue) Metrics() Metrics  { return v.metrics }

// SetAvailable flips the venue's own health, used to simulate an outage
// or a maintenance window. This is not the SOR's participation flag
// (see sor.SOR.SetActive) — a venue can be healthy but deactivated by
// the router, or active in the router but currently unavailable.
func (v *SimVenue) SetAvailable(available bool) { v.available = available }

// SetMetrics replaces the venue's latency/fill-rate/uptime snapshot.
func (v *SimVenue) SetMetrics(m Metrics) { v.metrics = m }

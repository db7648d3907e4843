// Package quoter implements an inventory-aware two-sided market maker:
// it prices a bid/ask pair around the cross-venue midpoint, skews them
// against accumulated inventory, and tracks fill-driven P&L and risk.
package quoter

import (
	"math"

	"github.com/rs/zerolog"

	"tricore/internal/book"
	"tricore/internal/sor"
	"tricore/internal/venue"
)

// Params tunes the quoter's spread, skew, sizing, and risk behavior.
type Params struct {
	BaseSpreadBps        float64
	MinSpreadBps         float64
	MaxSpreadBps         float64
	MaxBaseInventory     float64
	MaxQuoteInventory    float64
	TargetBaseInventory  float64
	InventorySkewFactor  float64
	VolatilityAdjustment float64
	BaseQuoteSize        float64
	MinQuoteSize         float64
	MaxQuoteSize         float64
}

// DefaultParams mirrors the reference market maker's defaults.
func DefaultParams() Params {
	return Params{
		BaseSpreadBps:        10,
		MinSpreadBps:         5,
		MaxSpreadBps:         50,
		MaxBaseInventory:     10,
		MaxQuoteInventory:    500000,
		TargetBaseInventory:  5,
		InventorySkewFactor:  0.1,
		VolatilityAdjustment: 1.0,
		BaseQuoteSize:        0.1,
		MinQuoteSize:         0.01,
		MaxQuoteSize:         1.0,
	}
}

// Quote is one side of a two-sided market. Quantity is in the quoter's
// internal size unit (real size x100). Fee and IsMaker carry the
// router's own scoring of this leg, priced in for TheoreticalEdge and
// exposed so a caller can attribute an eventual fill's cost.
type Quote struct {
	Price     float64
	Quantity  int64
	IsBuySide bool
	VenueID   venue.ID
	Fee       float64
	IsMaker   bool
}

// Quotes is the paired result of one quoting cycle.
type Quotes struct {
	Buy             Quote
	Sell            Quote
	TheoreticalEdge float64
}

// Inventory is a point-in-time snapshot of the quoter's book, quote
// currency balance, and P&L split into its realized and unrealized
// components.
type Inventory struct {
	BaseInventory  float64
	QuoteInventory float64
	BaseValue      float64
	TotalValue     float64
	RealizedPnL    float64
	UnrealizedPnL  float64
	TotalPnL       float64
}

// Quoter is a single-instrument, single-strategy market maker. It reads
// the market through a *sor.SOR and never mutates venue books directly;
// fills are reported back to it via OnFill.
type Quoter struct {
	sor    *sor.SOR
	params Params
	log    zerolog.Logger

	baseInventory  float64
	quoteInventory float64
	avgCost        float64 // average entry price of the current baseInventory position
	lastMidpoint   float64
	volEstimate    float64

	quotesPlaced int64
	quotesFilled int64
	totalVolume  float64
	realizedPnL  float64
}

// New returns a quoter with the given parameters, routing market reads
// through sor and starting from zero inventory.
func New(s *sor.SOR, params Params, log zerolog.Logger) *Quoter {
	return &Quoter{
		sor:         s,
		params:      params,
		log:         log,
		volEstimate: 0.001,
	}
}

// Initialize seeds the last-known midpoint used as a fallback when no
// venue currently has a two-sided market.
func (q *Quoter) Initialize(midpoint float64) {
	q.lastMidpoint = midpoint
}

// midpoint returns the cross-venue mid, falling back to the last known
// value if the aggregated book is currently one-sided or empty.
func (q *Quoter) midpoint(agg sor.Aggregated) float64 {
	if math.IsInf(agg.BestBid, -1) || math.IsInf(agg.BestAsk, 1) {
		return q.lastMidpoint
	}
	mid := (agg.BestBid + agg.BestAsk) / 2
	q.lastMidpoint = mid
	return mid
}

// spread returns the half-and-half quote spread in fractional terms
// (e.g. 0.001 == 10bps), widened by volatility and by how far the
// current skew has moved off center, then clamped to [min, max] bps.
func (q *Quoter) spread(skew float64) float64 {
	p := q.params
	bps := p.BaseSpreadBps * (1 + q.volEstimate*p.VolatilityAdjustment) * (1 + math.Abs(skew)*0.5)
	if bps < p.MinSpreadBps {
		bps = p.MinSpreadBps
	}
	if bps > p.MaxSpreadBps {
		bps = p.MaxSpreadBps
	}
	return bps / 10000
}

// inventorySkew is positive when the quoter is holding more base asset
// than its target, which pushes the bid down and the ask up.
func (q *Quoter) inventorySkew() float64 {
	p := q.params
	if p.TargetBaseInventory <= 0 {
		return 0
	}
	return (q.baseInventory/p.TargetBaseInventory - 1) * p.InventorySkewFactor
}

func (q *Quoter) quotePrices(mid, spread, skew float64) (bid, ask float64) {
	half := spread / 2
	bid = mid * (1 - half - skew*half)
	ask = mid * (1 + half + skew*half)
	return bid, ask
}

// quoteSize returns the internal-unit size (real size x100) for one
// side, shrinking the buy side as base inventory approaches its cap and
// the sell side as base inventory falls short of target.
func (q *Quoter) quoteSize(side book.Side) int64 {
	p := q.params
	var size float64
	if side == book.Buy {
		ratio := 0.0
		if p.MaxBaseInventory > 0 {
			ratio = q.baseInventory / p.MaxBaseInventory
		}
		size = p.BaseQuoteSize * (1 - ratio*0.5)
	} else {
		ratio := 1.0
		if p.TargetBaseInventory > 0 {
			ratio = q.baseInventory / p.TargetBaseInventory
			if ratio > 1 {
				ratio = 1
			}
		}
		size = p.BaseQuoteSize * ratio
	}

	units := int64(size * 100)
	minUnits := int64(p.MinQuoteSize * 100)
	maxUnits := int64(p.MaxQuoteSize * 100)
	if units < minUnits {
		units = minUnits
	}
	if units > maxUnits {
		units = maxUnits
	}
	return units
}

// UpdateQuotes recomputes both sides of the market from the current
// cross-venue aggregate and routes each leg through the router to price
// in fees for the theoretical-edge estimate. It does not place any
// order; the caller decides whether and how to act on the result. If
// the router finds no eligible venue for a leg, that leg's Quote still
// carries well-formed price and size with VenueID == venue.Unknown; an
// error here means a real precondition violation, not missing market
// data.
func (q *Quoter) UpdateQuotes() (Quotes, error) {
	agg := q.sor.Aggregated()
	mid := q.midpoint(agg)
	skew := q.inventorySkew()
	spread := q.spread(skew)
	bidPrice, askPrice := q.quotePrices(mid, spread, skew)

	q.quotesPlaced++
	buySize := q.quoteSize(book.Buy)
	buyDecision, err := q.sor.Route(book.Buy, buySize, bidPrice)
	if err != nil {
		return Quotes{}, err
	}

	q.quotesPlaced++
	sellSize := q.quoteSize(book.Sell)
	sellDecision, err := q.sor.Route(book.Sell, sellSize, askPrice)
	if err != nil {
		return Quotes{}, err
	}

	result := Quotes{
		Buy: Quote{
			Price: bidPrice, Quantity: buySize, IsBuySide: true,
			VenueID: buyDecision.VenueID, Fee: buyDecision.ExpectedFee, IsMaker: buyDecision.IsMaker,
		},
		Sell: Quote{
			Price: askPrice, Quantity: sellSize, IsBuySide: false,
			VenueID: sellDecision.VenueID, Fee: sellDecision.ExpectedFee, IsMaker: sellDecision.IsMaker,
		},
		TheoreticalEdge: (askPrice - bidPrice) - (buyDecision.ExpectedFee + sellDecision.ExpectedFee),
	}

	q.log.Debug().
		Float64("mid", mid).
		Float64("bid", bidPrice).
		Float64("ask", askPrice).
		Float64("edge", result.TheoreticalEdge).
		Msg("quoter: updated quotes")

	return result, nil
}

// OnFill applies a fill of quantity internal units at price on side to
// inventory using average-cost accounting: a fill that extends the
// current position (or opens one from flat) rolls into the weighted
// average cost basis; a fill that reduces or reverses it realizes P&L
// on the closing portion against that basis before any remainder opens
// a new position at price.
func (q *Quoter) OnFill(side book.Side, price float64, quantity int64) {
	realQty := float64(quantity) / 100
	signed := realQty
	if side == book.Sell {
		signed = -realQty
	}

	switch {
	case q.baseInventory == 0 || sameSign(q.baseInventory, signed):
		newInventory := q.baseInventory + signed
		q.avgCost = (q.avgCost*math.Abs(q.baseInventory) + price*realQty) / math.Abs(newInventory)
		q.baseInventory = newInventory
	default:
		closing := math.Min(realQty, math.Abs(q.baseInventory))
		if q.baseInventory > 0 {
			q.realizedPnL += closing * (price - q.avgCost)
		} else {
			q.realizedPnL += closing * (q.avgCost - price)
		}
		q.baseInventory += signed
		if opening := realQty - closing; opening > 0 {
			q.avgCost = price
		}
	}

	if side == book.Buy {
		q.quoteInventory -= price * realQty
	} else {
		q.quoteInventory += price * realQty
	}
	q.quotesFilled++
	q.totalVolume += realQty
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// IsWithinRiskLimits reports whether current inventory sits inside the
// configured envelope on both the base and quote side.
func (q *Quoter) IsWithinRiskLimits() bool {
	p := q.params
	if q.baseInventory < 0 || q.baseInventory > p.MaxBaseInventory {
		return false
	}
	if q.quoteInventory < -0.1*p.MaxQuoteInventory || q.quoteInventory > p.MaxQuoteInventory {
		return false
	}
	if math.Abs(q.baseInventory*q.lastMidpoint) > 1.1*p.MaxBaseInventory*q.lastMidpoint {
		return false
	}
	return true
}

// AdjustForRisk widens the spread bounds and halves the size bounds when
// the current position is outside its risk envelope; it is a no-op
// otherwise.
func (q *Quoter) AdjustForRisk() {
	if q.IsWithinRiskLimits() {
		return
	}
	q.params.BaseSpreadBps *= 1.5
	q.params.MaxSpreadBps *= 1.5
	q.params.BaseQuoteSize *= 0.5
	q.params.MaxQuoteSize *= 0.5
}

// Inventory returns a snapshot of current holdings valued at the last
// known midpoint, with unrealized P&L marking the open position's cost
// basis to that midpoint.
func (q *Quoter) Inventory() Inventory {
	baseValue := q.baseInventory * q.lastMidpoint
	unrealized := q.baseInventory * (q.lastMidpoint - q.avgCost)
	return Inventory{
		BaseInventory:  q.baseInventory,
		QuoteInventory: q.quoteInventory,
		BaseValue:      baseValue,
		TotalValue:     baseValue + q.quoteInventory,
		RealizedPnL:    q.realizedPnL,
		UnrealizedPnL:  unrealized,
		TotalPnL:       q.realizedPnL + unrealized,
	}
}

// Imbalance is the fractional deviation of base inventory from target,
// 0 if no target is configured.
func (q *Quoter) Imbalance() float64 {
	if q.params.TargetBaseInventory <= 0 {
		return 0
	}
	return (q.baseInventory - q.params.TargetBaseInventory) / q.params.TargetBaseInventory
}

// FillRate is the fraction of placed quote legs that have been filled.
func (q *Quoter) FillRate() float64 {
	if q.quotesPlaced == 0 {
		return 0
	}
	return float64(q.quotesFilled) / float64(q.quotesPlaced)
}

// EstimateVolatility folds a new bid/ask spread observation into the
// exponential moving average used to widen quotes in choppy markets.
func (q *Quoter) EstimateVolatility(bestBid, bestAsk float64) {
	if bestBid <= 0 {
		return
	}
	spread := (bestAsk - bestBid) / bestBid
	q.volEstimate = q.volEstimate*0.9 + spread*0.1
}

// UpdateParams replaces the quoter's tunable parameters wholesale.
func (q *Quoter) UpdateParams(p Params) { q.params = p }

// GetParams returns the quoter's current tunable parameters.
func (q *Quoter) GetParams() Params { return q.params }

// RealizedPnL returns the last computed realized P&L.
func (q *Quoter) RealizedPnL() float64 { return q.realizedPnL }

// Package sor implements a smart order router that scores registered
// venues by fee- and latency-adjusted cost and picks the best one (or
// splits an order across several) for a given side and quantity.
package sor

import (
	"errors"
	"math"

	"github.com/rs/zerolog"

	"tricore/internal/book"
	"tricore/internal/venue"
)

// ErrInvalidQuantity is returned when a caller asks to route a
// non-positive quantity. A missing market or empty liquidity is not an
// error: it is signaled by a RoutingDecision with VenueID == Unknown.
var ErrInvalidQuantity = errors.New("sor: quantity must be positive")

// RoutingDecision is the result of routing a single order to one venue.
// VenueID is venue.Unknown, with every numeric field at its zero value,
// when no eligible venue could be found.
type RoutingDecision struct {
	VenueID           venue.ID
	ExpectedPrice     float64
	ExpectedFee       float64
	TotalCost         float64
	AvailableQuantity int64
	IsMaker           bool
}

// SplitPiece is one leg of a split routing decision.
type SplitPiece struct {
	VenueID  venue.ID
	Price    float64
	Quantity int64
	Fee      float64
}

// Aggregated is a cross-venue snapshot of the best touch on each side and
// the total resting depth there.
type Aggregated struct {
	BestBid      float64
	BestAsk      float64
	BestBidVenue venue.ID
	BestAskVenue venue.ID
	TotalBidQty  int64
	TotalAskQty  int64
}

// SOR routes orders across a set of registered venues. It holds no
// inventory of its own; it only reads venue books and fee schedules.
type SOR struct {
	venues          map[venue.ID]venue.Venue
	active          map[venue.ID]bool // SOR-level participation flag, distinct from venue.Available()
	order           []venue.ID        // registration order, for deterministic split bounds and tie-breaks
	considerFees    bool
	considerLatency bool
	log             zerolog.Logger
}

// New returns a router with fee and latency adjustment enabled, matching
// the reference implementation's defaults.
func New(log zerolog.Logger) *SOR {
	return &SOR{
		venues:          make(map[venue.ID]venue.Venue),
		active:          make(map[venue.ID]bool),
		considerFees:    true,
		considerLatency: true,
		log:             log,
	}
}

// AddVenue registers a venue with the router, initially active.
// Re-registering an id replaces the prior venue without touching its
// current active flag.
func (s *SOR) AddVenue(v venue.Venue) {
	if _, exists := s.venues[v.ID()]; !exists {
		s.order = append(s.order, v.ID())
		s.active[v.ID()] = true
	}
	s.venues[v.ID()] = v
}

// SetActive toggles a venue's SOR-level participation. This is separate
// from the venue's own Available(): a venue can be active but
// momentarily unavailable (health check failing), or available but
// deactivated by the router (e.g. taken out of rotation deliberately).
// Both must hold for the venue to be eligible for routing.
func (s *SOR) SetActive(id venue.ID, active bool) {
	s.active[id] = active
}

// SetConsiderFees toggles whether fee schedules affect scoring.
func (s *SOR) SetConsiderFees(consider bool) { s.considerFees = consider }

// SetConsiderLatency toggles whether venue latency affects scoring.
func (s *SOR) SetConsiderLatency(consider bool) { s.considerLatency = consider }

// candidateTouch is one venue's price/quantity at the touch relevant to
// the requested side, plus the fields needed to score it.
type candidateTouch struct {
	v     venue.Venue
	price float64
	qty   int64
}

func (s *SOR) eligible(id venue.ID) bool {
	v := s.venues[id]
	return v != nil && s.active[id] && v.Available()
}

func (s *SOR) touches(side book.Side) []candidateTouch {
	var out []candidateTouch
	for _, id := range s.order {
		if !s.eligible(id) {
			continue
		}
		v := s.venues[id]
		b := v.Book()
		var price float64
		if side == book.Buy {
			price = b.BestAsk()
		} else {
			price = b.BestBid()
		}
		if math.IsInf(price, 1) || math.IsInf(price, -1) {
			continue
		}
		qty := b.QuantityAt(price, oppositeSide(side))
		out = append(out, candidateTouch{v: v, price: price, qty: qty})
	}
	return out
}

func oppositeSide(side book.Side) book.Side {
	if side == book.Buy {
		return book.Sell
	}
	return book.Buy
}

// isMaker applies the spec's maker/taker rule: a buy rests as a maker if
// its limit is below the venue's ask; a sell rests as a maker if its
// limit is above the venue's bid. touchPrice is that venue's ask (for a
// buy) or bid (for a sell).
func isMaker(side book.Side, limitPrice, touchPrice float64) bool {
	if math.IsInf(touchPrice, 1) || math.IsInf(touchPrice, -1) {
		return true
	}
	if side == book.Buy {
		return limitPrice < touchPrice
	}
	return limitPrice > touchPrice
}

// calculateBuyCost is the fee- and latency-adjusted total cost of buying
// quantity units at price on venue v.
func (s *SOR) calculateBuyCost(v venue.Venue, price float64, quantity int64, maker bool) (fee, totalCost float64) {
	notional := price * float64(quantity)
	rate := v.Fees().TakerRate
	if maker {
		rate = v.Fees().MakerRate
	}
	if !s.considerFees {
		rate = 0
	}
	fee = notional * rate
	totalCost = notional + fee
	if s.considerLatency {
		totalCost *= 1 + v.Metrics().AvgLatencyMs/10000
	}
	return fee, totalCost
}

// calculateSellProceeds is the fee- and latency-adjusted net proceeds of
// selling quantity units at price on venue v.
func (s *SOR) calculateSellProceeds(v venue.Venue, price float64, quantity int64, maker bool) (fee, netProceeds float64) {
	notional := price * float64(quantity)
	rate := v.Fees().TakerRate
	if maker {
		rate = v.Fees().MakerRate
	}
	if !s.considerFees {
		rate = 0
	}
	fee = notional * rate
	netProceeds = notional - fee
	if s.considerLatency {
		netProceeds *= 1 - v.Metrics().AvgLatencyMs/10000
	}
	return fee, netProceeds
}

// bestEligible scores every touch in candidates and returns the winner:
// minimum total cost for a buy, maximum net proceeds for a sell, ties
// broken by iteration order. It returns a zero-value RoutingDecision
// (VenueID == venue.Unknown) if candidates has no usable entry.
func (s *SOR) bestEligible(candidates []candidateTouch, side book.Side, quantity int64, limitPrice float64) RoutingDecision {
	var best *RoutingDecision
	var bestScore float64
	for _, c := range candidates {
		if c.qty <= 0 {
			continue
		}
		avail := c.qty
		if avail > quantity {
			avail = quantity
		}

		maker := isMaker(side, limitPrice, c.price)
		var fee, score float64
		if side == book.Buy {
			fee, score = s.calculateBuyCost(c.v, c.price, avail, maker)
		} else {
			fee, score = s.calculateSellProceeds(c.v, c.price, avail, maker)
		}

		better := best == nil
		if !better {
			if side == book.Buy {
				better = score < bestScore
			} else {
				better = score > bestScore
			}
		}
		if better {
			d := RoutingDecision{
				VenueID:           c.v.ID(),
				ExpectedPrice:     c.price,
				ExpectedFee:       fee,
				TotalCost:         score,
				AvailableQuantity: avail,
				IsMaker:           maker,
			}
			best = &d
			bestScore = score
		}
	}
	if best == nil {
		return RoutingDecision{VenueID: venue.Unknown}
	}
	return *best
}

// Route picks the single best venue for an order of the given side and
// quantity, capped at limitPrice, scoring minimum total cost for a buy
// and maximum net proceeds for a sell. If no venue is eligible, it
// returns a RoutingDecision with VenueID == venue.Unknown and every
// numeric field at zero — that is not an error condition.
func (s *SOR) Route(side book.Side, quantity int64, limitPrice float64) (RoutingDecision, error) {
	if quantity <= 0 {
		return RoutingDecision{}, ErrInvalidQuantity
	}

	decision := s.bestEligible(s.touches(side), side, quantity, limitPrice)
	if decision.VenueID == venue.Unknown {
		return decision, nil
	}

	s.log.Debug().
		Str("side", side.String()).
		Int64("quantity", quantity).
		Int("venue_id", int(decision.VenueID)).
		Float64("expected_price", decision.ExpectedPrice).
		Float64("total_cost", decision.TotalCost).
		Bool("maker", decision.IsMaker).
		Msg("sor: routed order")
	return decision, nil
}

// RouteSplit repeatedly routes the remainder to whichever eligible venue
// scores best, until the remainder is filled or a call finds no further
// eligible venue. It does not decrement venue depth between iterations
// (venue books are read fresh on every call, matching the reference
// router's single-pass aggregation), so the same venue can legitimately
// win more than one piece if it is still best after the previous piece
// only partly filled the remainder. The number of pieces is capped at
// the number of registered venues purely as a safety valve against that
// repetition, not as a one-piece-per-venue guarantee.
func (s *SOR) RouteSplit(side book.Side, quantity int64, limitPrice float64) ([]SplitPiece, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	remaining := quantity
	var pieces []SplitPiece

	for remaining > 0 && len(pieces) < len(s.order) {
		decision := s.bestEligible(s.touches(side), side, remaining, limitPrice)
		if decision.VenueID == venue.Unknown {
			break
		}
		pieces = append(pieces, SplitPiece{
			VenueID:  decision.VenueID,
			Price:    decision.ExpectedPrice,
			Quantity: decision.AvailableQuantity,
			Fee:      decision.ExpectedFee,
		})
		remaining -= decision.AvailableQuantity
	}

	return pieces, nil
}

// Aggregated returns the best cross-venue touch on each side and the
// summed depth resting there.
func (s *SOR) Aggregated() Aggregated {
	agg := Aggregated{
		BestBid: math.Inf(-1),
		BestAsk: math.Inf(1),
	}
	for _, id := range s.order {
		if !s.eligible(id) {
			continue
		}
		b := s.venues[id].Book()
		if bid := b.BestBid(); bid > agg.BestBid {
			agg.BestBid = bid
			agg.BestBidVenue = id
		}
		if ask := b.BestAsk(); ask < agg.BestAsk {
			agg.BestAsk = ask
			agg.BestAskVenue = id
		}
	}
	for _, id := range s.order {
		if !s.eligible(id) {
			continue
		}
		b := s.venues[id].Book()
		if !math.IsInf(agg.BestBid, -1) {
			agg.TotalBidQty += b.QuantityAt(agg.BestBid, book.Buy)
		}
		if !math.IsInf(agg.BestAsk, 1) {
			agg.TotalAskQty += b.QuantityAt(agg.BestAsk, book.Sell)
		}
	}
	return agg
}

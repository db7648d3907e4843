package sor

import (
	"testing"

	"github.com/rs/zerolog"

	"tricore/internal/book"
	"tricore/internal/venue"
)

func newTestVenue(t *testing.T, id venue.ID, fees venue.FeeSchedule, latencyMs float64) *venue.SimVenue {
	t.Helper()
	v := venue.NewSimVenue(id, fees)
	v.SetMetrics(venue.Metrics{AvgLatencyMs: latencyMs, FillRate: 1, Uptime: 1})
	return v
}

func TestRouteBuyPicksCheapestVenue(t *testing.T) {
	s := New(zerolog.Nop())

	cheap := newTestVenue(t, venue.Binance, venue.FeeSchedule{TakerRate: 0.001}, 5)
	mustAddOrder(t, cheap.Book(), "s1", 100, 10, book.Sell)

	pricey := newTestVenue(t, venue.Coinbase, venue.FeeSchedule{TakerRate: 0.005}, 5)
	mustAddOrder(t, pricey.Book(), "s2", 100, 10, book.Sell)

	s.AddVenue(cheap)
	s.AddVenue(pricey)

	decision, err := s.Route(book.Buy, 10, 100)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if decision.VenueID != venue.Binance {
		t.Fatalf("expected binance (lower fee), got %v", decision.VenueID)
	}
	if decision.IsMaker {
		t.Fatalf("expected a buy limit equal to the ask to be scored as taker (not <)")
	}
}

func TestRouteSellPicksBestProceeds(t *testing.T) {
	s := New(zerolog.Nop())

	low := newTestVenue(t, venue.Kraken, venue.FeeSchedule{TakerRate: 0.001}, 0)
	mustAddOrder(t, low.Book(), "b1", 99, 10, book.Buy)

	high := newTestVenue(t, venue.FTX, venue.FeeSchedule{TakerRate: 0.001}, 0)
	mustAddOrder(t, high.Book(), "b2", 101, 10, book.Buy)

	s.AddVenue(low)
	s.AddVenue(high)

	decision, err := s.Route(book.Sell, 10, 101)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if decision.VenueID != venue.FTX {
		t.Fatalf("expected ftx (higher bid), got %v", decision.VenueID)
	}
}

func TestRouteNoMarketReturnsUnknownVenue(t *testing.T) {
	s := New(zerolog.Nop())
	v := newTestVenue(t, venue.Binance, venue.DefaultFeeSchedule(), 0)
	s.AddVenue(v)

	decision, err := s.Route(book.Buy, 10, 100)
	if err != nil {
		t.Fatalf("expected no error for a missing market, got %v", err)
	}
	if decision != (RoutingDecision{VenueID: venue.Unknown}) {
		t.Fatalf("expected a zero-value decision with VenueID Unknown, got %+v", decision)
	}
}

func TestRouteRejectsNonPositiveQuantity(t *testing.T) {
	s := New(zerolog.Nop())
	if _, err := s.Route(book.Buy, 0, 100); err != ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestSetActiveExcludesVenueEvenWhenAvailable(t *testing.T) {
	s := New(zerolog.Nop())
	v := newTestVenue(t, venue.Binance, venue.DefaultFeeSchedule(), 0)
	mustAddOrder(t, v.Book(), "s1", 100, 10, book.Sell)
	s.AddVenue(v)

	s.SetActive(venue.Binance, false)

	if !v.Available() {
		t.Fatalf("SetActive must not touch the venue's own Available()")
	}
	decision, err := s.Route(book.Buy, 10, 100)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if decision.VenueID != venue.Unknown {
		t.Fatalf("expected deactivated venue to be excluded from routing, got %v", decision.VenueID)
	}

	s.SetActive(venue.Binance, true)
	decision, err = s.Route(book.Buy, 10, 100)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if decision.VenueID != venue.Binance {
		t.Fatalf("expected reactivated venue to route again, got %v", decision.VenueID)
	}
}

func TestRouteMakerRateAppliesBelowTouch(t *testing.T) {
	s := New(zerolog.Nop())
	v := newTestVenue(t, venue.Binance, venue.FeeSchedule{MakerRate: 0.001, TakerRate: 0.005}, 0)
	mustAddOrder(t, v.Book(), "s1", 100, 10, book.Sell)
	s.AddVenue(v)

	decision, err := s.Route(book.Buy, 10, 99)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if !decision.IsMaker {
		t.Fatalf("expected a limit below the ask to be scored as maker")
	}
	wantFee := 100 * 10 * 0.001
	if decision.ExpectedFee != wantFee {
		t.Fatalf("expected fee = %v (maker rate), got %v", wantFee, decision.ExpectedFee)
	}
}

func TestRouteTakerRateAppliesAtOrAboveTouch(t *testing.T) {
	s := New(zerolog.Nop())
	v := newTestVenue(t, venue.Binance, venue.FeeSchedule{MakerRate: 0.001, TakerRate: 0.005}, 0)
	mustAddOrder(t, v.Book(), "s1", 100, 10, book.Sell)
	s.AddVenue(v)

	decision, err := s.Route(book.Buy, 10, 101)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if decision.IsMaker {
		t.Fatalf("expected a limit above the ask to be scored as taker")
	}
	wantFee := 100 * 10 * 0.005
	if decision.ExpectedFee != wantFee {
		t.Fatalf("expected fee = %v (taker rate), got %v", wantFee, decision.ExpectedFee)
	}
}

func TestRouteSplitBoundedByVenueCount(t *testing.T) {
	s := New(zerolog.Nop())

	v1 := newTestVenue(t, venue.Binance, venue.DefaultFeeSchedule(), 0)
	mustAddOrder(t, v1.Book(), "s1", 100, 3, book.Sell)
	v2 := newTestVenue(t, venue.Coinbase, venue.DefaultFeeSchedule(), 0)
	mustAddOrder(t, v2.Book(), "s2", 101, 3, book.Sell)

	s.AddVenue(v1)
	s.AddVenue(v2)

	pieces, err := s.RouteSplit(book.Buy, 100, 101)
	if err != nil {
		t.Fatalf("route split: %v", err)
	}
	if len(pieces) > 2 {
		t.Fatalf("expected at most 2 pieces (one per venue), got %d", len(pieces))
	}
}

func TestRouteSplitEmptyWhenNoMarket(t *testing.T) {
	s := New(zerolog.Nop())
	v := newTestVenue(t, venue.Binance, venue.DefaultFeeSchedule(), 0)
	s.AddVenue(v)

	pieces, err := s.RouteSplit(book.Buy, 10, 100)
	if err != nil {
		t.Fatalf("expected no error for a missing market, got %v", err)
	}
	if len(pieces) != 0 {
		t.Fatalf("expected no pieces, got %d", len(pieces))
	}
}

func TestAggregatedCrossVenue(t *testing.T) {
	s := New(zerolog.Nop())

	v1 := newTestVenue(t, venue.Binance, venue.DefaultFeeSchedule(), 0)
	mustAddOrder(t, v1.Book(), "b1", 100, 5, book.Buy)
	mustAddOrder(t, v1.Book(), "a1", 102, 5, book.Sell)

	v2 := newTestVenue(t, venue.Coinbase, venue.DefaultFeeSchedule(), 0)
	mustAddOrder(t, v2.Book(), "b2", 100.50, 5, book.Buy)
	mustAddOrder(t, v2.Book(), "a2", 101.50, 5, book.Sell)

	s.AddVenue(v1)
	s.AddVenue(v2)

	agg := s.Aggregated()
	if agg.BestBid != 100.50 || agg.BestBidVenue != venue.Coinbase {
		t.Fatalf("expected best bid 100.50 on coinbase, got %v on %v", agg.BestBid, agg.BestBidVenue)
	}
	if agg.BestAsk != 101.50 || agg.BestAskVenue != venue.Coinbase {
		t.Fatalf("expected best ask 101.50 on coinbase, got %v on %v", agg.BestAsk, agg.BestAskVenue)
	}
}

func TestAggregatedExcludesDeactivatedVenue(t *testing.T) {
	s := New(zerolog.Nop())

	v1 := newTestVenue(t, venue.Binance, venue.DefaultFeeSchedule(), 0)
	mustAddOrder(t, v1.Book(), "b1", 100, 5, book.Buy)
	v2 := newTestVenue(t, venue.Coinbase, venue.DefaultFeeSchedule(), 0)
	mustAddOrder(t, v2.Book(), "b2", 100.50, 5, book.Buy)

	s.AddVenue(v1)
	s.AddVenue(v2)
	s.SetActive(venue.Coinbase, false)

	agg := s.Aggregated()
	if agg.BestBidVenue != venue.Binance {
		t.Fatalf("expected deactivated coinbase excluded from aggregation, best bid venue = %v", agg.BestBidVenue)
	}
}

func mustAddOrder(t *testing.T, b *book.Book, id string, price float64, qty int64, side book.Side) {
	t.Helper()
	if _, err := b.Add(id, price, qty, side); err != nil {
		t.Fatalf("add %s: %v", id, err)
	}
}

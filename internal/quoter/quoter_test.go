package quoter

import (
	"testing"

	"github.com/rs/zerolog"

	"tricore/internal/book"
	"tricore/internal/sor"
	"tricore/internal/venue"
)

func newTestQuoter(t *testing.T) (*Quoter, *venue.SimVenue) {
	t.Helper()
	s := sor.New(zerolog.Nop())
	v := venue.NewSimVenue(venue.Binance, venue.DefaultFeeSchedule())
	v.SetMetrics(venue.Metrics{AvgLatencyMs: 0, FillRate: 1, Uptime: 1})
	s.AddVenue(v)

	mustAdd(t, v.Book(), "b1", 99, 1000, book.Buy)
	mustAdd(t, v.Book(), "a1", 101, 1000, book.Sell)

	q := New(s, DefaultParams(), zerolog.Nop())
	q.Initialize(100)
	return q, v
}

func mustAdd(t *testing.T, b *book.Book, id string, price float64, qty int64, side book.Side) {
	t.Helper()
	if _, err := b.Add(id, price, qty, side); err != nil {
		t.Fatalf("add %s: %v", id, err)
	}
}

func TestUpdateQuotesBrackestMidpoint(t *testing.T) {
	q, _ := newTestQuoter(t)
	quotes, err := q.UpdateQuotes()
	if err != nil {
		t.Fatalf("update quotes: %v", err)
	}
	if !(quotes.Buy.Price < 100 && 100 < quotes.Sell.Price) {
		t.Fatalf("expected bid < mid < ask, got bid=%v ask=%v", quotes.Buy.Price, quotes.Sell.Price)
	}
	if quotes.Buy.Quantity <= 0 || quotes.Sell.Quantity <= 0 {
		t.Fatalf("expected positive quote sizes, got buy=%d sell=%d", quotes.Buy.Quantity, quotes.Sell.Quantity)
	}
}

func TestInventorySkewPushesBidDown(t *testing.T) {
	q, _ := newTestQuoter(t)
	_, err := q.UpdateQuotes()
	if err != nil {
		t.Fatalf("update quotes: %v", err)
	}
	baseline, err := q.UpdateQuotes()
	if err != nil {
		t.Fatalf("update quotes: %v", err)
	}

	q.OnFill(book.Buy, 100, 2000) // 20 units of base inventory, above target of 5

	skewed, err := q.UpdateQuotes()
	if err != nil {
		t.Fatalf("update quotes after fill: %v", err)
	}
	if !(skewed.Buy.Price < baseline.Buy.Price) {
		t.Fatalf("expected skewed bid (%v) below baseline bid (%v) after accumulating long inventory", skewed.Buy.Price, baseline.Buy.Price)
	}
}

func TestOnFillUpdatesInventory(t *testing.T) {
	q, _ := newTestQuoter(t)
	q.Initialize(100)
	q.OnFill(book.Buy, 100, 100) // 1 real unit
	inv := q.Inventory()
	if inv.BaseInventory != 1 {
		t.Fatalf("base inventory = %v, want 1", inv.BaseInventory)
	}
	if inv.QuoteInventory != -100 {
		t.Fatalf("quote inventory = %v, want -100", inv.QuoteInventory)
	}
}

func TestWithinRiskLimits(t *testing.T) {
	q, _ := newTestQuoter(t)
	q.Initialize(100)
	if !q.IsWithinRiskLimits() {
		t.Fatalf("fresh quoter should be within risk limits")
	}

	q.OnFill(book.Buy, 100, 2000) // 20 base units, over MaxBaseInventory=10
	if q.IsWithinRiskLimits() {
		t.Fatalf("quoter should breach risk limits after overbuying base")
	}
}

func TestAdjustForRiskWidensAndShrinks(t *testing.T) {
	q, _ := newTestQuoter(t)
	q.Initialize(100)
	before := q.GetParams()

	q.OnFill(book.Buy, 100, 2000)
	q.AdjustForRisk()
	after := q.GetParams()

	if after.BaseSpreadBps <= before.BaseSpreadBps {
		t.Fatalf("expected wider spread after risk adjustment: before=%v after=%v", before.BaseSpreadBps, after.BaseSpreadBps)
	}
	if after.BaseQuoteSize >= before.BaseQuoteSize {
		t.Fatalf("expected smaller size after risk adjustment: before=%v after=%v", before.BaseQuoteSize, after.BaseQuoteSize)
	}
}

func TestFillRateTracksPlacedAndFilled(t *testing.T) {
	q, _ := newTestQuoter(t)
	if _, err := q.UpdateQuotes(); err != nil {
		t.Fatalf("update quotes: %v", err)
	}
	if got := q.FillRate(); got != 0 {
		t.Fatalf("fill rate before any fill = %v, want 0", got)
	}
	q.OnFill(book.Buy, 100, 100)
	if got := q.FillRate(); got <= 0 {
		t.Fatalf("fill rate after a fill should be > 0, got %v", got)
	}
}

func TestSelectRegime(t *testing.T) {
	if r := SelectRegime([]float64{3, 4, 5}, 2); r != Aggressive {
		t.Fatalf("calm low-impact market should select Aggressive, got %v", r)
	}
	if r := SelectRegime([]float64{30, 40}, 2); r != Defensive {
		t.Fatalf("wide market should select Defensive, got %v", r)
	}
	if r := SelectRegime([]float64{15}, 2); r != Neutral {
		t.Fatalf("mid market should select Neutral, got %v", r)
	}
	if r := SelectRegime(nil, 0); r != Neutral {
		t.Fatalf("no data should select Neutral, got %v", r)
	}
}

func TestApplyRegimePreservesInventoryCaps(t *testing.T) {
	base := DefaultParams()
	aggressive := ApplyRegime(base, Aggressive)
	if aggressive.MaxBaseInventory != base.MaxBaseInventory {
		t.Fatalf("ApplyRegime must not touch inventory caps")
	}
	if aggressive.BaseSpreadBps >= base.BaseSpreadBps {
		t.Fatalf("aggressive regime should tighten spread")
	}

	defensive := ApplyRegime(base, Defensive)
	if defensive.BaseSpreadBps <= base.BaseSpreadBps {
		t.Fatalf("defensive regime should widen spread")
	}
}

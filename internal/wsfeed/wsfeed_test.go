package wsfeed

import (
	"testing"

	"github.com/rs/zerolog"

	"tricore/internal/book"
	"tricore/internal/venue"
)

func TestApplyAddsOrder(t *testing.T) {
	v := venue.NewSimVenue(venue.Binance, venue.DefaultFeeSchedule())
	c := NewClient("ws://example.invalid", v, zerolog.Nop())

	msg := []byte(`{"order_id":"1","side":"buy","price":100.5,"quantity":10}`)
	if err := c.Apply(msg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := v.Book().QuantityAt(100.5, book.Buy); got != 10 {
		t.Fatalf("quantity at 100.5 = %d, want 10", got)
	}
}

func TestApplyCancelRemovesOrder(t *testing.T) {
	v := venue.NewSimVenue(venue.Binance, venue.DefaultFeeSchedule())
	c := NewClient("ws://example.invalid", v, zerolog.Nop())

	if err := c.Apply([]byte(`{"order_id":"1","side":"sell","price":101,"quantity":5}`)); err != nil {
		t.Fatalf("apply add: %v", err)
	}
	if err := c.Apply([]byte(`{"order_id":"1","cancel":true}`)); err != nil {
		t.Fatalf("apply cancel: %v", err)
	}
	if got := v.Book().QuantityAt(101, book.Sell); got != 0 {
		t.Fatalf("expected order removed, quantity=%d", got)
	}
}

func TestApplyRejectsMalformedJSON(t *testing.T) {
	v := venue.NewSimVenue(venue.Binance, venue.DefaultFeeSchedule())
	c := NewClient("ws://example.invalid", v, zerolog.Nop())

	if err := c.Apply([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed message")
	}
}

package backtest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tricore/internal/config"
	"tricore/internal/csvfeed"
)

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Simulation.Symbol = "BTCUSDT"
	cfg.Simulation.ConsiderFees = true
	cfg.Simulation.ConsiderLatency = false
	cfg.Simulation.Venues = []config.VenueConfig{
		{ID: "binance", MakerRate: 0.001, TakerRate: 0.001, AvgLatencyMs: 5, FillRate: 1, Uptime: 1},
		{ID: "kraken", MakerRate: 0.0016, TakerRate: 0.0026, AvgLatencyMs: 5, FillRate: 1, Uptime: 1},
	}
	cfg.Simulation.Quoter.BaseSpreadBps = 10
	cfg.Simulation.Quoter.MinSpreadBps = 5
	cfg.Simulation.Quoter.MaxSpreadBps = 50
	cfg.Simulation.Quoter.MaxBaseInventory = 10
	cfg.Simulation.Quoter.MaxQuoteInventory = 500000
	cfg.Simulation.Quoter.TargetBaseInventory = 5
	cfg.Simulation.Quoter.InventorySkewFactor = 0.1
	cfg.Simulation.Quoter.VolatilityAdjustment = 1.0
	cfg.Simulation.Quoter.BaseQuoteSize = 0.1
	cfg.Simulation.Quoter.MinQuoteSize = 0.01
	cfg.Simulation.Quoter.MaxQuoteSize = 1.0
	return cfg
}

func TestDriverCycleProducesState(t *testing.T) {
	d := NewDriver(testConfig(), zerolog.Nop())

	u := csvfeed.Update{
		Timestamp: time.Now().UTC(),
		Symbol:    "BTCUSDT",
		Bid:       100.00,
		Ask:       100.10,
		BidSize:   1000,
		AskSize:   1000,
		LastPrice: 100.05,
		Volume:    10,
	}

	state, _, err := d.Cycle(u)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if state.Midpoint != 100.05 {
		t.Fatalf("midpoint = %v, want 100.05", state.Midpoint)
	}
	if state.SpreadBps <= 0 {
		t.Fatalf("expected positive spread bps, got %v", state.SpreadBps)
	}
	if state.Regime == "" {
		t.Fatalf("expected a non-empty regime label")
	}
}

func TestDriverMultipleCyclesTrackInventory(t *testing.T) {
	d := NewDriver(testConfig(), zerolog.Nop())

	base := time.Now().UTC()
	for i := 0; i < 20; i++ {
		u := csvfeed.Update{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Symbol:    "BTCUSDT",
			Bid:       100.00,
			Ask:       100.10,
			BidSize:   1000,
			AskSize:   1000,
			LastPrice: 100.05,
			Volume:    10,
		}
		if _, _, err := d.Cycle(u); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}

	if !d.Quoter().IsWithinRiskLimits() {
		t.Fatalf("quoter should stay within its risk envelope over a short, stable replay")
	}
}

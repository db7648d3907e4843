// Package config loads tricore's runtime configuration from an optional
// YAML file plus TRICORE_* environment overrides, the way the rest of
// this codebase's ambient stack is configured.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Network struct {
		Region             string `yaml:"region"`
		WSKeepAliveSeconds int    `yaml:"ws_keepalive_seconds"`
	} `yaml:"network"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Server struct {
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
	} `yaml:"server"`
	Simulation struct {
		Symbol          string        `yaml:"symbol"`
		ConsiderFees    bool          `yaml:"consider_fees"`
		ConsiderLatency bool          `yaml:"consider_latency"`
		Venues          []VenueConfig `yaml:"venues"`
		Quoter          QuoterConfig  `yaml:"quoter"`
	} `yaml:"simulation"`
	Fix struct {
		SenderCompID string `yaml:"sender_comp_id"`
		TargetCompID string `yaml:"target_comp_id"`
	} `yaml:"fix"`
}

// VenueConfig describes one simulated venue and its fee/latency profile.
type VenueConfig struct {
	ID           string  `yaml:"id"`
	MakerRate    float64 `yaml:"maker_rate"`
	TakerRate    float64 `yaml:"taker_rate"`
	AvgLatencyMs float64 `yaml:"avg_latency_ms"`
	FillRate     float64 `yaml:"fill_rate"`
	Uptime       float64 `yaml:"uptime"`
}

// QuoterConfig mirrors quoter.Params for YAML loading.
type QuoterConfig struct {
	BaseSpreadBps        float64 `yaml:"base_spread_bps"`
	MinSpreadBps         float64 `yaml:"min_spread_bps"`
	MaxSpreadBps         float64 `yaml:"max_spread_bps"`
	MaxBaseInventory     float64 `yaml:"max_base_inventory"`
	MaxQuoteInventory    float64 `yaml:"max_quote_inventory"`
	TargetBaseInventory  float64 `yaml:"target_base_inventory"`
	InventorySkewFactor  float64 `yaml:"inventory_skew_factor"`
	VolatilityAdjustment float64 `yaml:"volatility_adjustment"`
	BaseQuoteSize        float64 `yaml:"base_quote_size"`
	MinQuoteSize         float64 `yaml:"min_quote_size"`
	MaxQuoteSize         float64 `yaml:"max_quote_size"`
}

func defaultConfig() Config {
	var c Config
	c.Network.Region = "EU-West"
	c.Network.WSKeepAliveSeconds = 15
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Server.Addr = ":9090"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}

	c.Simulation.Symbol = "BTCUSDT"
	c.Simulation.ConsiderFees = true
	c.Simulation.ConsiderLatency = true
	c.Simulation.Venues = []VenueConfig{
		{ID: "binance", MakerRate: 0.0010, TakerRate: 0.0010, AvgLatencyMs: 25, FillRate: 0.97, Uptime: 0.999},
		{ID: "coinbase", MakerRate: 0.0040, TakerRate: 0.0060, AvgLatencyMs: 40, FillRate: 0.95, Uptime: 0.998},
		{ID: "kraken", MakerRate: 0.0016, TakerRate: 0.0026, AvgLatencyMs: 60, FillRate: 0.96, Uptime: 0.997},
	}
	c.Simulation.Quoter = QuoterConfig{
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

	c.Fix.SenderCompID = "TRICORE"
	c.Fix.TargetCompID = "SIM"
	return c
}

// Load reads defaults, then an optional YAML file named by
// TRICORE_CONFIG, then individual TRICORE_* environment overrides, in
// that order of increasing precedence.
func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("TRICORE_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("TRICORE_REGION"); v != "" {
		c.Network.Region = v
	}
	if v := os.Getenv("TRICORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TRICORE_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("TRICORE_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TRICORE_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("TRICORE_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("TRICORE_SYMBOL"); v != "" {
		c.Simulation.Symbol = v
	}
	if v := os.Getenv("TRICORE_CONSIDER_FEES"); v != "" {
		c.Simulation.ConsiderFees = v == "1" || v == "true"
	}
	if v := os.Getenv("TRICORE_CONSIDER_LATENCY"); v != "" {
		c.Simulation.ConsiderLatency = v == "1" || v == "true"
	}
	if v := os.Getenv("TRICORE_BASE_SPREAD_BPS"); v != "" {
		var f float64
		if _, err := fmt.Sscan(v, &f); err == nil && f > 0 {
			c.Simulation.Quoter.BaseSpreadBps = f
		}
	}
	if v := os.Getenv("TRICORE_MAX_BASE_INVENTORY"); v != "" {
		var f float64
		if _, err := fmt.Sscan(v, &f); err == nil && f > 0 {
			c.Simulation.Quoter.MaxBaseInventory = f
		}
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	buf := []rune{}
	for _, r := range s {
		if r == ',' {
			if len(buf) > 0 {
				out = append(out, string(buf))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, r)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}

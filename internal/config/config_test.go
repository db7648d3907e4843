package config

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	_ = os.Unsetenv("TRICORE_CONFIG")
	_ = os.Unsetenv("TRICORE_REGION")
	_ = os.Unsetenv("TRICORE_LOG_LEVEL")

	c := Load()
	if c.Network.Region != "EU-West" {
		t.Fatalf("expected default region EU-West, got %s", c.Network.Region)
	}
	if c.Logging.Level != "info" {
		t.Fatalf("expected default log level info, got %s", c.Logging.Level)
	}
	if len(c.Simulation.Venues) == 0 {
		t.Fatalf("expected default venues to be populated")
	}
	if c.Simulation.Quoter.MaxBaseInventory != 10 {
		t.Fatalf("expected default max base inventory 10, got %v", c.Simulation.Quoter.MaxBaseInventory)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRICORE_REGION", "EU-Central")
	t.Setenv("TRICORE_LOG_LEVEL", "debug")
	t.Setenv("TRICORE_BASE_SPREAD_BPS", "20")
	c := Load()
	if c.Network.Region != "EU-Central" {
		t.Fatalf("env override failed for region, got %s", c.Network.Region)
	}
	if c.Logging.Level != "debug" {
		t.Fatalf("env override failed for log level, got %s", c.Logging.Level)
	}
	if c.Simulation.Quoter.BaseSpreadBps != 20 {
		t.Fatalf("env override failed for base spread, got %v", c.Simulation.Quoter.BaseSpreadBps)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV("a,b,,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitCSV(%q) = %v, want %v", "a,b,,c", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitCSV(%q)[%d] = %q, want %q", "a,b,,c", i, got[i], want[i])
		}
	}
}

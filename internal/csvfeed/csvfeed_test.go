package csvfeed

import (
	"strings"
	"testing"
)

const sample = `timestamp,symbol,bid,ask,bid_size,ask_size,last_price,volume,signal_position
2026-01-01T00:00:00Z,BTCUSDT,100.00,100.10,500,500,100.05,12.5,1
2026-01-01T00:00:01Z,BTCUSDT,100.05,100.15,400,600,100.10,3.2,
`

func TestReadAll(t *testing.T) {
	updates, err := ReadAll(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Symbol != "BTCUSDT" || updates[0].Bid != 100.00 || updates[0].Ask != 100.10 {
		t.Fatalf("row 0 mismatch: %+v", updates[0])
	}
	if !updates[0].HasSignal || updates[0].SignalPosition != 1 {
		t.Fatalf("row 0 should carry a signal position of 1, got %+v", updates[0])
	}
	if updates[1].HasSignal {
		t.Fatalf("row 1 should have no signal, got %+v", updates[1])
	}
}

func TestReadAllRejectsMalformedRow(t *testing.T) {
	bad := "timestamp,symbol,bid,ask,bid_size,ask_size,last_price,volume\nnot-a-time,BTCUSDT,1,2,1,1,1,1\n"
	if _, err := ReadAll(strings.NewReader(bad)); err == nil {
		t.Fatalf("expected error for malformed timestamp")
	}
}

func TestReadAllEmpty(t *testing.T) {
	updates, err := ReadAll(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if updates != nil {
		t.Fatalf("expected nil updates for empty input, got %v", updates)
	}
}

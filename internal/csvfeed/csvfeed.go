// Package csvfeed replays a market-update record from a CSV file, one
// row per tick, into the format the backtest driver consumes.
package csvfeed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Update is one market-data tick: a top-of-book snapshot plus the last
// trade print and volume, with an optional external signal column.
type Update struct {
	Timestamp      time.Time
	Symbol         string
	Bid            float64
	Ask            float64
	BidSize        int64
	AskSize        int64
	LastPrice      float64
	Volume         float64
	SignalPosition int
	HasSignal      bool
}

// header is the expected column order:
// timestamp,symbol,bid,ask,bid_size,ask_size,last_price,volume[,signal_position]
var header = []string{"timestamp", "symbol", "bid", "ask", "bid_size", "ask_size", "last_price", "volume"}

// ReadAll parses every row of r into a slice of Update, in file order.
// The first row is always treated as a header and skipped without
// validation, matching the way spreadsheet-exported market data is
// usually shipped.
func ReadAll(r io.Reader) ([]Update, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvfeed: read: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	updates := make([]Update, 0, len(rows)-1)
	for i, row := range rows[1:] {
		u, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("csvfeed: row %d: %w", i+2, err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func parseRow(row []string) (Update, error) {
	if len(row) < len(header) {
		return Update{}, fmt.Errorf("expected at least %d columns, got %d", len(header), len(row))
	}

	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return Update{}, fmt.Errorf("timestamp: %w", err)
	}
	bid, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return Update{}, fmt.Errorf("bid: %w", err)
	}
	ask, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Update{}, fmt.Errorf("ask: %w", err)
	}
	bidSize, err := strconv.ParseInt(row[4], 10, 64)
	if err != nil {
		return Update{}, fmt.Errorf("bid_size: %w", err)
	}
	askSize, err := strconv.ParseInt(row[5], 10, 64)
	if err != nil {
		return Update{}, fmt.Errorf("ask_size: %w", err)
	}
	lastPrice, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return Update{}, fmt.Errorf("last_price: %w", err)
	}
	volume, err := strconv.ParseFloat(row[7], 64)
	if err != nil {
		return Update{}, fmt.Errorf("volume: %w", err)
	}

	u := Update{
		Timestamp: ts,
		Symbol:    row[1],
		Bid:       bid,
		Ask:       ask,
		BidSize:   bidSize,
		AskSize:   askSize,
		LastPrice: lastPrice,
		Volume:    volume,
	}
	if len(row) > 8 && row[8] != "" {
		pos, err := strconv.Atoi(row[8])
		if err != nil {
			return Update{}, fmt.Errorf("signal_position: %w", err)
		}
		u.SignalPosition = pos
		u.HasSignal = true
	}
	return u, nil
}

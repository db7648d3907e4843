// Package report renders backtest output records to a console table,
// the console-facing counterpart the core's non-goals exclude from the
// book/router/quoter packages themselves.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"tricore/internal/quoter"
	"tricore/internal/venue"
)

// TradeRecord describes one simulated fill.
type TradeRecord struct {
	Timestamp   time.Time
	Symbol      string
	TradeID     int64
	VenueID     venue.ID
	Side        string
	Price       float64
	Quantity    int64
	BuyOrderID  string
	SellOrderID string
	Fee         float64
	SlippageBps float64
	LatencyMs   float64
}

// StateRecord describes the quoter's state at one point in the replay.
// Sharpe and MaxDrawdown are computed by the driver over its own running
// P&L history, not by the quoter itself.
type StateRecord struct {
	Timestamp   time.Time
	Symbol      string
	Midpoint    float64
	SpreadBps   float64
	Edge        float64
	Inventory   quoter.Inventory
	Regime      string
	Sharpe      float64
	MaxDrawdown float64
}

// Table renders trade and state records as aligned columns, matching
// the plain fmt.Printf reporting style the console-only original stats
// printers used.
type Table struct {
	w  *tabwriter.Writer
	tw bool // header for trades written
	sw bool // header for state written
}

// NewTable wraps out in a tab-aligned writer. Flush must be called once
// the caller is done writing rows.
func NewTable(out io.Writer) *Table {
	return &Table{w: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)}
}

func (t *Table) Flush() error { return t.w.Flush() }

// RenderTrade appends one trade row, writing a header the first time
// it's called.
func (t *Table) RenderTrade(r TradeRecord) {
	if !t.tw {
		fmt.Fprintln(t.w, "TIME\tSYMBOL\tTRADE_ID\tVENUE\tSIDE\tPRICE\tQTY\tBUY_ORDER\tSELL_ORDER\tFEE\tSLIPPAGE_BPS\tLATENCY_MS")
		t.tw = true
	}
	fmt.Fprintf(t.w, "%s\t%s\t%d\t%s\t%s\t%.4f\t%d\t%s\t%s\t%.6f\t%.2f\t%.2f\n",
		r.Timestamp.Format(time.RFC3339), r.Symbol, r.TradeID, r.VenueID, r.Side, r.Price, r.Quantity,
		r.BuyOrderID, r.SellOrderID, r.Fee, r.SlippageBps, r.LatencyMs)
}

// RenderState appends one quoter-state row, writing a header the first
// time it's called.
func (t *Table) RenderState(r StateRecord) {
	if !t.sw {
		fmt.Fprintln(t.w, "TIME\tSYMBOL\tMID\tSPREAD_BPS\tEDGE\tBASE_INV\tQUOTE_INV\tREALIZED_PNL\tUNREALIZED_PNL\tTOTAL_PNL\tSHARPE\tMAX_DD\tREGIME")
		t.sw = true
	}
	fmt.Fprintf(t.w, "%s\t%s\t%.4f\t%.2f\t%.4f\t%.4f\t%.2f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%s\n",
		r.Timestamp.Format(time.RFC3339), r.Symbol, r.Midpoint, r.SpreadBps, r.Edge,
		r.Inventory.BaseInventory, r.Inventory.QuoteInventory,
		r.Inventory.RealizedPnL, r.Inventory.UnrealizedPnL, r.Inventory.TotalPnL,
		r.Sharpe, r.MaxDrawdown, r.Regime)
}

// Package backtest wires the book, router, and quoter into a single
// synchronous pipeline driven by a stream of market-data updates: each
// tick mutates every venue's book, the router aggregates across venues,
// the quoter reprices, and a probabilistic counterparty may lift or hit
// the resulting quotes.
package backtest

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tricore/internal/book"
	"tricore/internal/config"
	"tricore/internal/csvfeed"
	"tricore/internal/quoter"
	"tricore/internal/report"
	"tricore/internal/sor"
	"tricore/internal/venue"
)

// regimeWindow is how many recent spread observations SelectRegime
// looks at when classifying the current market regime.
const regimeWindow = 20

// perfWindow bounds how many cycles of total (realized plus unrealized)
// P&L history feed the per-cycle Sharpe estimate.
const perfWindow = 100

// Driver owns one simulated instrument end to end: a venue per
// configured exchange, a router across them, and one quoter.
type Driver struct {
	sor    *sor.SOR
	quoter *quoter.Quoter
	venues []venue.Venue

	synthBid map[venue.ID]string
	synthAsk map[venue.ID]string

	baseParams    quoter.Params
	log           zerolog.Logger
	rng           *rand.Rand
	seenFirst     bool
	tradesSeen    int
	lastMid       float64
	recentSpreads []float64

	equityCurve []float64
	peakEquity  float64
	maxDrawdown float64
}

func venueIDFromName(name string) venue.ID {
	switch name {
	case "binance":
		return venue.Binance
	case "coinbase":
		return venue.Coinbase
	case "kraken":
		return venue.Kraken
	case "ftx":
		return venue.FTX
	default:
		return venue.Unknown
	}
}

// NewDriver builds a router and one simulated venue per entry in
// cfg.Simulation.Venues, plus a quoter parameterized from
// cfg.Simulation.Quoter.
func NewDriver(cfg config.Config, log zerolog.Logger) *Driver {
	s := sor.New(log)
	s.SetConsiderFees(cfg.Simulation.ConsiderFees)
	s.SetConsiderLatency(cfg.Simulation.ConsiderLatency)

	var venues []venue.Venue
	for _, vc := range cfg.Simulation.Venues {
		id := venueIDFromName(vc.ID)
		if id == venue.Unknown {
			continue
		}
		v := venue.NewSimVenue(id, venue.FeeSchedule{MakerRate: vc.MakerRate, TakerRate: vc.TakerRate})
		v.SetMetrics(venue.Metrics{AvgLatencyMs: vc.AvgLatencyMs, FillRate: vc.FillRate, Uptime: vc.Uptime})
		s.AddVenue(v)
		venues = append(venues, v)
	}

	qp := quoter.Params{
		BaseSpreadBps:        cfg.Simulation.Quoter.BaseSpreadBps,
		MinSpreadBps:         cfg.Simulation.Quoter.MinSpreadBps,
		MaxSpreadBps:         cfg.Simulation.Quoter.MaxSpreadBps,
		MaxBaseInventory:     cfg.Simulation.Quoter.MaxBaseInventory,
		MaxQuoteInventory:    cfg.Simulation.Quoter.MaxQuoteInventory,
		TargetBaseInventory:  cfg.Simulation.Quoter.TargetBaseInventory,
		InventorySkewFactor:  cfg.Simulation.Quoter.InventorySkewFactor,
		VolatilityAdjustment: cfg.Simulation.Quoter.VolatilityAdjustment,
		BaseQuoteSize:        cfg.Simulation.Quoter.BaseQuoteSize,
		MinQuoteSize:         cfg.Simulation.Quoter.MinQuoteSize,
		MaxQuoteSize:         cfg.Simulation.Quoter.MaxQuoteSize,
	}

	return &Driver{
		sor:        s,
		quoter:     quoter.New(s, qp, log),
		venues:     venues,
		baseParams: qp,
		synthBid:   make(map[venue.ID]string),
		synthAsk:   make(map[venue.ID]string),
		log:        log,
		rng:        rand.New(rand.NewSource(1)),
	}
}

// applyUpdate replaces every venue's previous synthetic touch with a
// fresh one derived from u, offset per venue by its own taker fee so
// the router sees genuine cross-venue price dispersion rather than an
// identical book on every venue.
func (d *Driver) applyUpdate(u csvfeed.Update) {
	for _, v := range d.venues {
		b := v.Book()
		if id, ok := d.synthBid[v.ID()]; ok {
			b.Cancel(id)
		}
		if id, ok := d.synthAsk[v.ID()]; ok {
			b.Cancel(id)
		}

		skew := v.Fees().TakerRate
		bidPrice := u.Bid * (1 - skew/4)
		askPrice := u.Ask * (1 + skew/4)

		bidID := uuid.NewString()
		if _, err := b.Add(bidID, bidPrice, u.BidSize, book.Buy); err == nil {
			d.synthBid[v.ID()] = bidID
		}
		askID := uuid.NewString()
		if _, err := b.Add(askID, askPrice, u.AskSize, book.Sell); err == nil {
			d.synthAsk[v.ID()] = askID
		}
	}
}

// fillProbability approximates how likely a counterparty is to trade
// against a resting quote on venue id, from that venue's configured
// fill rate.
func (d *Driver) fillProbability(id venue.ID) float64 {
	for _, v := range d.venues {
		if v.ID() == id {
			return v.Metrics().FillRate
		}
	}
	return 0
}

func (d *Driver) venueByID(id venue.ID) venue.Venue {
	for _, v := range d.venues {
		if v.ID() == id {
			return v
		}
	}
	return nil
}

// venueLatency looks up id's most recently reported average latency, 0
// if the venue is not currently registered.
func (d *Driver) venueLatency(id venue.ID) float64 {
	for _, v := range d.venues {
		if v.ID() == id {
			return v.Metrics().AvgLatencyMs
		}
	}
	return 0
}

// fillOutcome carries a filled leg's trade attribution back to Cycle for
// building the observable per-fill trade record.
type fillOutcome struct {
	quantity    int64
	tradeID     int64
	buyOrderID  string
	sellOrderID string
	avgPrice    float64
	fee         float64
	slippageBps float64
}

// fillLeg simulates a counterparty for q by submitting an opposite-side
// order at q.Price into the book of q's venue, then feeds the resulting
// trades back into the quoter as a fill of q's side. The quoter's own
// quote is not an order in that book: the counterparty trades against
// whatever resting orders cross q.Price, and any unfilled remainder of
// the counterparty order stays resting in the book. The reported price
// is the quantity-weighted average of the resting orders it traded
// against, which can differ from q.Price; that gap is the leg's
// slippage.
func (d *Driver) fillLeg(q quoter.Quote) fillOutcome {
	v := d.venueByID(q.VenueID)
	if v == nil {
		return fillOutcome{}
	}
	counterSide := book.Sell
	if !q.IsBuySide {
		counterSide = book.Buy
	}
	// The counterparty's limit is the quoter's exact price; it trades only
	// against resting orders at that price or better.
	result, err := v.Book().Add(uuid.NewString(), q.Price, q.Quantity/100, counterSide)
	if err != nil || len(result) == 0 {
		return fillOutcome{}
	}

	var filled int64
	var notional float64
	for _, t := range result {
		filled += t.Quantity
		notional += t.Price * float64(t.Quantity)
	}
	avgPrice := notional / float64(filled)
	last := result[len(result)-1]

	quoterSide := oppositeOf(counterSide)
	d.quoter.OnFill(quoterSide, avgPrice, filled*100)
	d.tradesSeen++

	var fee float64
	if q.Quantity > 0 {
		fee = q.Fee * float64(filled*100) / float64(q.Quantity)
	}
	slippageBps := (avgPrice - q.Price) / q.Price * 10000

	return fillOutcome{
		quantity:    filled * 100,
		tradeID:     last.ID,
		buyOrderID:  last.BuyOrderID,
		sellOrderID: last.SellOrderID,
		avgPrice:    avgPrice,
		fee:         fee,
		slippageBps: slippageBps,
	}
}

// sharpeRatio is the mean over standard deviation of successive P&L
// deltas in curve, unannualized. It reports 0 until curve has at least
// two points or the deltas have no variance.
func sharpeRatio(curve []float64) float64 {
	if len(curve) < 2 {
		return 0
	}
	deltas := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		deltas = append(deltas, curve[i]-curve[i-1])
	}

	var mean float64
	for _, dl := range deltas {
		mean += dl
	}
	mean /= float64(len(deltas))

	var variance float64
	for _, dl := range deltas {
		variance += (dl - mean) * (dl - mean)
	}
	variance /= float64(len(deltas))

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}
	return mean / stdev
}

func oppositeOf(side book.Side) book.Side {
	if side == book.Buy {
		return book.Sell
	}
	return book.Buy
}

// Cycle processes one market update through the full pipeline and
// returns the resulting state record plus any trades the simulated
// counterparty generated.
func (d *Driver) Cycle(u csvfeed.Update) (report.StateRecord, []report.TradeRecord, error) {
	d.applyUpdate(u)

	mid := (u.Bid + u.Ask) / 2
	if !d.seenFirst {
		d.quoter.Initialize(mid)
		d.seenFirst = true
	}
	d.quoter.EstimateVolatility(u.Bid, u.Ask)

	impactBps := 0.0
	if d.lastMid > 0 {
		impactBps = (mid - d.lastMid) / d.lastMid * 10000
		if impactBps < 0 {
			impactBps = -impactBps
		}
	}
	d.lastMid = mid

	regime := quoter.SelectRegime(d.recentSpreads, impactBps)
	d.quoter.UpdateParams(quoter.ApplyRegime(d.baseParams, regime))

	quotes, err := d.quoter.UpdateQuotes()
	if err != nil {
		return report.StateRecord{}, nil, err
	}

	var trades []report.TradeRecord
	if quotes.TheoreticalEdge > 0 {
		if d.rng.Float64() < d.fillProbability(quotes.Buy.VenueID) {
			if out := d.fillLeg(quotes.Buy); out.quantity > 0 {
				trades = append(trades, report.TradeRecord{
					Timestamp: u.Timestamp, Symbol: u.Symbol, TradeID: out.tradeID, VenueID: quotes.Buy.VenueID,
					Side: "buy", Price: out.avgPrice, Quantity: out.quantity,
					BuyOrderID: out.buyOrderID, SellOrderID: out.sellOrderID,
					Fee: out.fee, SlippageBps: out.slippageBps, LatencyMs: d.venueLatency(quotes.Buy.VenueID),
				})
			}
		}
		if d.rng.Float64() < d.fillProbability(quotes.Sell.VenueID) {
			if out := d.fillLeg(quotes.Sell); out.quantity > 0 {
				trades = append(trades, report.TradeRecord{
					Timestamp: u.Timestamp, Symbol: u.Symbol, TradeID: out.tradeID, VenueID: quotes.Sell.VenueID,
					Side: "sell", Price: out.avgPrice, Quantity: out.quantity,
					BuyOrderID: out.buyOrderID, SellOrderID: out.sellOrderID,
					Fee: out.fee, SlippageBps: out.slippageBps, LatencyMs: d.venueLatency(quotes.Sell.VenueID),
				})
			}
		}
	}

	d.quoter.AdjustForRisk()

	spreadBps := (quotes.Sell.Price - quotes.Buy.Price) / mid * 10000
	d.recentSpreads = append(d.recentSpreads, spreadBps)
	if len(d.recentSpreads) > regimeWindow {
		d.recentSpreads = d.recentSpreads[len(d.recentSpreads)-regimeWindow:]
	}

	inv := d.quoter.Inventory()
	d.equityCurve = append(d.equityCurve, inv.TotalPnL)
	if len(d.equityCurve) > perfWindow {
		d.equityCurve = d.equityCurve[len(d.equityCurve)-perfWindow:]
	}
	if inv.TotalPnL > d.peakEquity {
		d.peakEquity = inv.TotalPnL
	}
	if dd := d.peakEquity - inv.TotalPnL; dd > d.maxDrawdown {
		d.maxDrawdown = dd
	}

	state := report.StateRecord{
		Timestamp:   u.Timestamp,
		Symbol:      u.Symbol,
		Midpoint:    mid,
		SpreadBps:   spreadBps,
		Edge:        quotes.TheoreticalEdge,
		Inventory:   inv,
		Regime:      regime.String(),
		Sharpe:      sharpeRatio(d.equityCurve),
		MaxDrawdown: d.maxDrawdown,
	}
	return state, trades, nil
}

// Quoter exposes the underlying quoter for callers that need direct
// read access (e.g. tests, or a live risk dashboard).
func (d *Driver) Quoter() *quoter.Quoter { return d.quoter }

// SOR exposes the underlying router.
func (d *Driver) SOR() *sor.SOR { return d.sor }

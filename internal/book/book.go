// Package book implements a price-time priority limit order book for a
// single instrument, with an in-book matching engine.
package book

import (
	"container/heap"
	"container/list"
	"errors"
	"math"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// ErrInvalidOrder is returned when Add is called with a non-positive price
// or quantity.
var ErrInvalidOrder = errors.New("book: invalid order")

// Order is a resting or incoming limit order. Remaining shrinks as the
// order fills; Quantity is its original size.
type Order struct {
	ID        string
	Price     float64
	Quantity  int64
	Remaining int64
	Side      Side
	Sequence  int64
}

// Trade is produced exactly once per matched quantity unit pair. Price is
// always the passive (resting) order's price.
type Trade struct {
	ID          int64
	Price       float64
	Quantity    int64
	BuyOrderID  string
	SellOrderID string
}

// priceLevel aggregates all resting orders at one exact price on one side.
// The queue preserves arrival order for FIFO matching within the level.
type priceLevel struct {
	price float64
	qty   int64
	queue *list.List // of *Order
	index int        // heap index, maintained by container/heap
}

type bidLevels []*priceLevel

func (h bidLevels) Len() int            { return len(h) }
func (h bidLevels) Less(i, j int) bool  { return h[i].price > h[j].price }
func (h bidLevels) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *bidLevels) Push(x any) {
	lvl := x.(*priceLevel)
	lvl.index = len(*h)
	*h = append(*h, lvl)
}
func (h *bidLevels) Pop() any {
	old := *h
	n := len(old)
	lvl := old[n-1]
	lvl.index = -1
	*h = old[:n-1]
	return lvl
}

type askLevels []*priceLevel

func (h askLevels) Len() int            { return len(h) }
func (h askLevels) Less(i, j int) bool  { return h[i].price < h[j].price }
func (h askLevels) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *askLevels) Push(x any) {
	lvl := x.(*priceLevel)
	lvl.index = len(*h)
	*h = append(*h, lvl)
}
func (h *askLevels) Pop() any {
	old := *h
	n := len(old)
	lvl := old[n-1]
	lvl.index = -1
	*h = old[:n-1]
	return lvl
}

type orderLocation struct {
	level *priceLevel
	elem  *list.Element
	side  Side
}

// Book is a single-instrument order book. It is not safe for concurrent
// use; callers must serialize access (see spec §5).
type Book struct {
	bids      bidLevels
	asks      askLevels
	bidLevels map[float64]*priceLevel
	askLevels map[float64]*priceLevel
	orders    map[string]*orderLocation
	seq       int64
	tradeSeq  int64
}

// New returns an empty book.
func New() *Book {
	b := &Book{
		bidLevels: make(map[float64]*priceLevel),
		askLevels: make(map[float64]*priceLevel),
		orders:    make(map[string]*orderLocation),
	}
	heap.Init(&b.bids)
	heap.Init(&b.asks)
	return b
}

// Add submits an order. If it crosses the opposite ladder it is matched
// immediately in price-time order; any residual quantity rests at its
// limit price, appended to the tail of that level's queue.
func (b *Book) Add(id string, price float64, quantity int64, side Side) ([]Trade, error) {
	if price <= 0 || quantity <= 0 {
		return nil, ErrInvalidOrder
	}

	b.seq++
	in := &Order{
		ID:        id,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		Side:      side,
		Sequence:  b.seq,
	}

	var trades []Trade
	if side == Buy {
		trades = b.matchIncoming(in, &b.asks, b.askLevels, true)
	} else {
		trades = b.matchIncoming(in, &b.bids, b.bidLevels, false)
	}

	if in.Remaining > 0 {
		b.rest(in)
	}
	return trades, nil
}

// matchIncoming walks the opposite ladder from the touch outward while the
// incoming order remains marketable, trading at each resting order's price.
func (b *Book) matchIncoming(in *Order, opposite heap.Interface, levels map[float64]*priceLevel, oppositeIsAsk bool) []Trade {
	var trades []Trade
	for in.Remaining > 0 {
		lvl := b.peekLevel(oppositeIsAsk)
		if lvl == nil {
			break
		}
		if oppositeIsAsk && lvl.price > in.Price {
			break
		}
		if !oppositeIsAsk && lvl.price < in.Price {
			break
		}

		for in.Remaining > 0 && lvl.queue.Len() > 0 {
			front := lvl.queue.Front()
			resting := front.Value.(*Order)

			qty := min64(in.Remaining, resting.Remaining)
			b.tradeSeq++
			t := Trade{ID: b.tradeSeq, Price: resting.Price, Quantity: qty}
			if oppositeIsAsk {
				t.BuyOrderID, t.SellOrderID = in.ID, resting.ID
			} else {
				t.BuyOrderID, t.SellOrderID = resting.ID, in.ID
			}
			trades = append(trades, t)

			in.Remaining -= qty
			resting.Remaining -= qty
			lvl.qty -= qty

			if resting.Remaining == 0 {
				lvl.queue.Remove(front)
				delete(b.orders, resting.ID)
			}
		}

		if lvl.queue.Len() == 0 {
			delete(levels, lvl.price)
			heap.Remove(opposite, lvl.index)
		}
	}
	return trades
}

func (b *Book) peekLevel(ask bool) *priceLevel {
	if ask {
		if len(b.asks) == 0 {
			return nil
		}
		return b.asks[0]
	}
	if len(b.bids) == 0 {
		return nil
	}
	return b.bids[0]
}

// rest appends a resting order to the tail of its price level's queue,
// creating the level if this is the first order at that price.
func (b *Book) rest(o *Order) {
	if o.Side == Buy {
		lvl, ok := b.bidLevels[o.Price]
		if !ok {
			lvl = &priceLevel{price: o.Price, queue: list.New()}
			b.bidLevels[o.Price] = lvl
			heap.Push(&b.bids, lvl)
		}
		elem := lvl.queue.PushBack(o)
		lvl.qty += o.Remaining
		b.orders[o.ID] = &orderLocation{level: lvl, elem: elem, side: Buy}
		return
	}
	lvl, ok := b.askLevels[o.Price]
	if !ok {
		lvl = &priceLevel{price: o.Price, queue: list.New()}
		b.askLevels[o.Price] = lvl
		heap.Push(&b.asks, lvl)
	}
	elem := lvl.queue.PushBack(o)
	lvl.qty += o.Remaining
	b.orders[o.ID] = &orderLocation{level: lvl, elem: elem, side: Sell}
}

// Cancel removes a resting order. It returns whether the order existed;
// repeated cancels of the same id return false after the first success.
func (b *Book) Cancel(id string) bool {
	loc, ok := b.orders[id]
	if !ok {
		return false
	}
	resting := loc.elem.Value.(*Order)
	loc.level.qty -= resting.Remaining
	loc.level.queue.Remove(loc.elem)
	delete(b.orders, id)

	if loc.level.queue.Len() == 0 {
		if loc.side == Buy {
			delete(b.bidLevels, loc.level.price)
			heap.Remove(&b.bids, loc.level.index)
		} else {
			delete(b.askLevels, loc.level.price)
			heap.Remove(&b.asks, loc.level.index)
		}
	}
	return true
}

// BestBid returns the top price on the buy side, or -Inf if empty.
func (b *Book) BestBid() float64 {
	if len(b.bids) == 0 {
		return math.Inf(-1)
	}
	return b.bids[0].price
}

// BestAsk returns the top price on the sell side, or +Inf if empty.
func (b *Book) BestAsk() float64 {
	if len(b.asks) == 0 {
		return math.Inf(1)
	}
	return b.asks[0].price
}

// QuantityAt returns the aggregate quantity resting at an exact price on
// the given side, or 0 if none.
func (b *Book) QuantityAt(price float64, side Side) int64 {
	if side == Buy {
		if lvl, ok := b.bidLevels[price]; ok {
			return lvl.qty
		}
		return 0
	}
	if lvl, ok := b.askLevels[price]; ok {
		return lvl.qty
	}
	return 0
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

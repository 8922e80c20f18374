package orderbook

// LevelView aggregates one price level.
type LevelView struct {
	Price  int64
	Qty    int64
	Orders int
}

// Depth is a point-in-time view of the top levels of both sides.
type Depth struct {
	Symbol string
	Bids   []LevelView // best (highest) first
	Asks   []LevelView // best (lowest) first

	// Spread and Mid are set only when both sides have orders.
	Spread int64
	Mid    float64
}

// Depth returns up to n levels per side; n <= 0 returns every level.
func (b *OrderBook) Depth(n int) Depth {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := Depth{
		Symbol: b.symbol,
		Bids:   collectLevels(b.bids, n),
		Asks:   collectLevels(b.asks, n),
	}
	if len(d.Bids) > 0 && len(d.Asks) > 0 {
		bid, ask := d.Bids[0].Price, d.Asks[0].Price
		d.Spread = ask - bid
		d.Mid = (float64(bid) + float64(ask)) / 2
	}
	return d
}

func collectLevels(s *bookSide, n int) []LevelView {
	out := make([]LevelView, 0, len(s.levels))
	s.walk(func(lvl *PriceLevel) bool {
		out = append(out, LevelView{Price: lvl.Price, Qty: lvl.TotalQty, Orders: lvl.OrderCount})
		return n <= 0 || len(out) < n
	})
	return out
}

// Orders returns copies of every resting order of side in priority order:
// best price first, oldest first within a price.
func (b *OrderBook) Orders(side Side) []OrderView {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.side(side)
	out := make([]OrderView, 0, s.orders)
	s.walk(func(lvl *PriceLevel) bool {
		for o := lvl.Front(); o != nil; o = o.Next() {
			out = append(out, o.view())
		}
		return true
	})
	return out
}

package orderbook

import (
	"time"

	"github.com/stretchr/testify/require"
)

var allIndexKinds = []IndexKind{IndexRBTree, IndexBTree, IndexHeap}

func fixedClock() time.Time { return time.Unix(1700000000, 0) }

func newTestBook(kind IndexKind, opts ...Option) *OrderBook {
	opts = append([]Option{WithIndex(kind), WithClock(fixedClock)}, opts...)
	return NewOrderBook("TEST", opts...)
}

func mustAdd(t require.TestingT, b *OrderBook, side Side, price, qty int64) Result {
	res, err := b.AddOrder(side, price, qty)
	require.NoError(t, err)
	return res
}

// checkInvariants walks every structure of b and fails t on the first
// broken invariant.
func checkInvariants(t require.TestingT, b *OrderBook) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, hasBid := b.bids.bestPrice()
	ask, hasAsk := b.asks.bestPrice()
	if hasBid && hasAsk {
		require.Less(t, bid, ask, "book is crossed")
	}

	seen := 0
	for _, s := range []*bookSide{b.bids, b.asks} {
		var prevPrice int64
		first := true
		count := 0
		s.walk(func(lvl *PriceLevel) bool {
			require.False(t, lvl.Empty(), "empty level %d retained", lvl.Price)
			if !first {
				if s.side == Buy {
					require.Less(t, lvl.Price, prevPrice, "bids out of order")
				} else {
					require.Greater(t, lvl.Price, prevPrice, "asks out of order")
				}
			}
			first, prevPrice = false, lvl.Price

			var total int64
			var prevSeq uint64
			n := 0
			for o := lvl.Front(); o != nil; o = o.Next() {
				require.Positive(t, o.Remaining)
				require.Equal(t, s.side, o.Side)
				require.Equal(t, lvl.Price, o.Price)
				require.Greater(t, o.SeqID, prevSeq, "level not FIFO")
				prevSeq = o.SeqID

				reg, ok := b.registry.locate(o.ID)
				require.True(t, ok, "order %d missing from registry", o.ID)
				require.Same(t, o, reg)
				total += o.Remaining
				n++
			}
			require.Equal(t, total, lvl.TotalQty)
			require.Equal(t, n, lvl.OrderCount)
			count += n
			return true
		})
		require.Len(t, s.levels, levelsOf(s))
		require.Equal(t, count, s.orders)
		seen += count
	}
	require.Equal(t, seen, b.registry.len())
}

func levelsOf(s *bookSide) int {
	n := 0
	s.walk(func(*PriceLevel) bool { n++; return true })
	return n
}

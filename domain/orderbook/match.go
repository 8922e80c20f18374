package orderbook

// match drains every crossable quantity. Each pass pairs the oldest order
// at the best bid with the oldest at the best ask and always executes at
// the best ask price, whichever side arrived last. Every pass fills at
// least one order completely or stops, so the loop is bounded by the
// number of resting orders.
func (b *OrderBook) match() []Trade {
	var trades []Trade
	for !b.bids.empty() && !b.asks.empty() {
		bidLvl := b.bids.bestLevel()
		askLvl := b.asks.bestLevel()
		if bidLvl.Price < askLvl.Price {
			break
		}

		buy := bidLvl.Front()
		sell := askLvl.Front()
		qty := min(buy.Remaining, sell.Remaining)

		bidLvl.fill(buy, qty)
		askLvl.fill(sell, qty)
		trades = append(trades, Trade{
			Symbol:      b.symbol,
			Seq:         b.tradeSeq.Next(),
			BuyOrderID:  buy.ID,
			SellOrderID: sell.ID,
			Price:       askLvl.Price,
			Qty:         qty,
			Time:        b.now().UnixNano(),
		})

		if buy.Remaining == 0 {
			b.retire(buy)
		}
		if sell.Remaining == 0 {
			b.retire(sell)
		}
	}
	return trades
}

// retire drops o from its level, its side's index and the registry,
// then recycles the node.
func (b *OrderBook) retire(o *Order) {
	b.side(o.Side).remove(o)
	b.registry.remove(o.ID)
	b.pool.Put(o)
}

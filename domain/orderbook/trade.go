package orderbook

// Trade is one execution between a resting buy and a resting sell.
// The book emits trades and keeps none of them.
type Trade struct {
	Symbol      string
	Seq         uint64
	BuyOrderID  OrderID
	SellOrderID OrderID
	Price       int64
	Qty         int64
	Time        int64 // unix nanos
}

// TradeSink receives the trades of each public operation, in execution
// order, while the book is still locked. Implementations must not call
// back into the book.
type TradeSink interface {
	Publish(trades []Trade)
}

// SinkFunc adapts a function to TradeSink.
type SinkFunc func(trades []Trade)

func (f SinkFunc) Publish(trades []Trade) { f(trades) }

// MultiSink fans trades out to every sink in order.
type MultiSink []TradeSink

func (m MultiSink) Publish(trades []Trade) {
	for _, s := range m {
		if s != nil {
			s.Publish(trades)
		}
	}
}

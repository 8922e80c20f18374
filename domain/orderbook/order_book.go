package orderbook

import (
	"sync"
	"time"

	"tickmatch/infra/memory"
	"tickmatch/infra/sequence"
)

// OrderBook is the limit order book of one symbol. Every public method
// runs under one exclusive lock, so no caller ever observes a crossed or
// half-matched book. Books share no state and may run in parallel.
type OrderBook struct {
	mu sync.Mutex

	symbol   string
	bids     *bookSide
	asks     *bookSide
	registry *registry

	ids      *sequence.Sequencer
	tradeSeq *sequence.Sequencer
	pool     *memory.Pool[Order]

	sink TradeSink
	now  func() time.Time
}

// Result is the outcome of an accepted add or modify.
type Result struct {
	// ID stays valid as a reference even when the order filled at once;
	// lookups for it then report absent.
	ID     OrderID
	Trades []Trade
}

type Option func(*OrderBook)

// WithIndex selects the price index backing both sides.
func WithIndex(kind IndexKind) Option {
	return func(b *OrderBook) {
		b.bids = newBookSide(Buy, kind)
		b.asks = newBookSide(Sell, kind)
	}
}

// WithTradeSink delivers every operation's trades to s.
func WithTradeSink(s TradeSink) Option {
	return func(b *OrderBook) { b.sink = s }
}

// WithClock overrides the trade timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *OrderBook) { b.now = now }
}

// NewOrderBook creates an empty book for symbol.
func NewOrderBook(symbol string, opts ...Option) *OrderBook {
	b := &OrderBook{
		symbol:   symbol,
		bids:     newBookSide(Buy, IndexRBTree),
		asks:     newBookSide(Sell, IndexRBTree),
		registry: newRegistry(),
		ids:      sequence.New(0),
		tradeSeq: sequence.New(0),
		pool:     memory.NewPool(func(o *Order) { o.Reset() }),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *OrderBook) Symbol() string { return b.symbol }

// ---------------- Commands ----------------

// AddOrder rests a new limit order and matches the book to exhaustion.
// It fails with ErrInvalidOrder, leaving the book untouched, when side is
// unknown or price or quantity is not positive.
func (b *OrderBook) AddOrder(side Side, price, qty int64) (Result, error) {
	if err := validate(side, price, qty); err != nil {
		return Result{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	res := b.add(side, price, qty)
	b.publish(res.Trades)
	return res, nil
}

// CancelOrder removes a resting order. It reports false for ids that are
// unknown, filled or already canceled. Cancelling never triggers matching.
func (b *OrderBook) CancelOrder(id OrderID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel(id)
}

// Amendment changes one attribute of an order being modified.
type Amendment func(*amend)

type amend struct {
	price    int64
	qty      int64
	hasPrice bool
	hasQty   bool
}

// NewPrice replaces the order's price.
func NewPrice(price int64) Amendment {
	return func(a *amend) { a.price, a.hasPrice = price, true }
}

// NewQuantity replaces the order's remaining quantity.
func NewQuantity(qty int64) Amendment {
	return func(a *amend) { a.qty, a.hasQty = qty, true }
}

// ModifyOrder cancels id and adds a new order on the same side, using the
// amended price and quantity or else the original price and remaining
// quantity. The replacement gets a fresh id and queues behind everything
// already resting at its price. found is false when id is not live. An
// invalid amended value fails with ErrInvalidOrder and leaves id resting.
func (b *OrderBook) ModifyOrder(id OrderID, amendments ...Amendment) (res Result, found bool, err error) {
	var a amend
	for _, fn := range amendments {
		fn(&a)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.registry.locate(id)
	if !ok {
		return Result{}, false, nil
	}

	side, price, qty := o.Side, o.Price, o.Remaining
	if a.hasPrice {
		price = a.price
	}
	if a.hasQty {
		qty = a.qty
	}
	if err := validate(side, price, qty); err != nil {
		return Result{}, true, err
	}

	b.cancel(id)
	res = b.add(side, price, qty)
	b.publish(res.Trades)
	return res, true, nil
}

// ---------------- Queries ----------------

// Order returns a copy of a live order.
func (b *OrderBook) Order(id OrderID) (OrderView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.registry.locate(id)
	if !ok {
		return OrderView{}, false
	}
	return o.view(), true
}

// BestBid returns the highest resting buy price.
func (b *OrderBook) BestBid() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.bestPrice()
}

// BestAsk returns the lowest resting sell price.
func (b *OrderBook) BestAsk() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.bestPrice()
}

// Len returns the number of resting orders.
func (b *OrderBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.len()
}

// LastOrderID returns the most recently assigned id, 0 before any add.
func (b *OrderBook) LastOrderID() OrderID {
	return OrderID(b.ids.Current())
}

// ---------------- internals (lock held) ----------------

func (b *OrderBook) add(side Side, price, qty int64) Result {
	seq := b.ids.Next()
	id := OrderID(seq)
	o := b.pool.Get()
	*o = Order{
		ID:        id,
		Side:      side,
		Price:     price,
		Qty:       qty,
		Remaining: qty,
		SeqID:     seq,
	}
	b.registry.register(o)
	b.side(side).insert(o)

	// o may be recycled by match once filled; only id is safe past here.
	return Result{ID: id, Trades: b.match()}
}

func (b *OrderBook) cancel(id OrderID) bool {
	o, ok := b.registry.locate(id)
	if !ok {
		return false
	}
	b.retire(o)
	return true
}

func (b *OrderBook) side(s Side) *bookSide {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) publish(trades []Trade) {
	if b.sink != nil && len(trades) > 0 {
		b.sink.Publish(trades)
	}
}

package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"tickmatch/domain/orderbook"
	"tickmatch/infra/metrics"
)

var ErrUnknownSymbol = errors.New("service: unknown symbol")

type Options struct {
	Symbols    []string
	Index      orderbook.IndexKind
	PriceScale int32
	// Sink receives the trades of every book.
	Sink    orderbook.TradeSink
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Exchange is the symbol router. The set of books is fixed at
// construction, so lookups need no lock.
type Exchange struct {
	books   map[string]*orderbook.OrderBook
	symbols []string
	scale   int32
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewExchange(opts Options) (*Exchange, error) {
	if len(opts.Symbols) == 0 {
		return nil, errors.New("service: no symbols")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	e := &Exchange{
		books:   make(map[string]*orderbook.OrderBook, len(opts.Symbols)),
		scale:   opts.PriceScale,
		log:     opts.Logger.Named("exchange"),
		metrics: opts.Metrics,
	}
	for _, sym := range opts.Symbols {
		if _, dup := e.books[sym]; dup {
			return nil, errors.Newf("service: duplicate symbol %q", sym)
		}
		bookOpts := []orderbook.Option{orderbook.WithIndex(opts.Index)}
		if opts.Sink != nil {
			bookOpts = append(bookOpts, orderbook.WithTradeSink(opts.Sink))
		}
		e.books[sym] = orderbook.NewOrderBook(sym, bookOpts...)
		e.symbols = append(e.symbols, sym)
		e.metrics.RestingOrders.WithLabelValues(sym).Set(0)
	}
	slices.Sort(e.symbols)
	e.log.Info("books ready",
		zap.Strings("symbols", e.symbols),
		zap.Stringer("index", opts.Index),
		zap.Int32("price_scale", opts.PriceScale))
	return e, nil
}

func (e *Exchange) Symbols() []string { return slices.Clone(e.symbols) }

func (e *Exchange) PriceScale() int32 { return e.scale }

func (e *Exchange) Book(symbol string) (*orderbook.OrderBook, error) {
	b, ok := e.books[symbol]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSymbol, "%q", symbol)
	}
	return b, nil
}

// ---------------- Commands ----------------

// Place adds a limit order with a price already in ticks.
func (e *Exchange) Place(symbol string, side orderbook.Side, price, qty int64) (orderbook.Result, error) {
	b, err := e.Book(symbol)
	if err != nil {
		return orderbook.Result{}, err
	}
	res, err := b.AddOrder(side, price, qty)
	if err != nil {
		e.metrics.OrdersRejected.WithLabelValues(symbol).Inc()
		e.log.Debug("order rejected", zap.String("symbol", symbol), zap.Error(err))
		return orderbook.Result{}, err
	}
	e.metrics.OrdersAccepted.WithLabelValues(symbol, side.String()).Inc()
	e.observe(b, res)
	return res, nil
}

func (e *Exchange) Cancel(symbol string, id orderbook.OrderID) (bool, error) {
	b, err := e.Book(symbol)
	if err != nil {
		return false, err
	}
	ok := b.CancelOrder(id)
	e.metrics.Cancels.WithLabelValues(symbol, outcome(ok)).Inc()
	e.metrics.RestingOrders.WithLabelValues(symbol).Set(float64(b.Len()))
	return ok, nil
}

func (e *Exchange) Modify(symbol string, id orderbook.OrderID, amends ...orderbook.Amendment) (orderbook.Result, bool, error) {
	b, err := e.Book(symbol)
	if err != nil {
		return orderbook.Result{}, false, err
	}
	res, found, err := b.ModifyOrder(id, amends...)
	switch {
	case err != nil:
		e.metrics.Modifies.WithLabelValues(symbol, "rejected").Inc()
		return orderbook.Result{}, found, err
	case !found:
		e.metrics.Modifies.WithLabelValues(symbol, "not_found").Inc()
		return orderbook.Result{}, false, nil
	}
	e.metrics.Modifies.WithLabelValues(symbol, "ok").Inc()
	e.observe(b, res)
	return res, true, nil
}

func (e *Exchange) Depth(symbol string, levels int) (orderbook.Depth, error) {
	b, err := e.Book(symbol)
	if err != nil {
		return orderbook.Depth{}, err
	}
	return b.Depth(levels), nil
}

func (e *Exchange) observe(b *orderbook.OrderBook, res orderbook.Result) {
	sym := b.Symbol()
	if n := len(res.Trades); n > 0 {
		var qty int64
		for _, t := range res.Trades {
			qty += t.Qty
		}
		e.metrics.Trades.WithLabelValues(sym).Add(float64(n))
		e.metrics.TradedQty.WithLabelValues(sym).Add(float64(qty))
		e.log.Debug("matched",
			zap.String("symbol", sym),
			zap.Uint64("order_id", uint64(res.ID)),
			zap.Int("trades", n),
			zap.Uint64("trade_seq", res.Trades[n-1].Seq))
	}
	e.metrics.RestingOrders.WithLabelValues(sym).Set(float64(b.Len()))
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "not_found"
}

// ---------------- Script commands ----------------

// Outcome is what applying a Command produced.
type Outcome struct {
	Command Command
	ID      orderbook.OrderID
	Found   bool
	Trades  []orderbook.Trade
	Depth   orderbook.Depth
}

// Apply executes cmd, converting its decimal prices at the exchange's
// scale.
func (e *Exchange) Apply(cmd Command) (Outcome, error) {
	out := Outcome{Command: cmd}
	switch cmd.Kind {
	case CmdAdd:
		price, err := ToTicks(cmd.Price, e.scale)
		if err != nil {
			return out, err
		}
		res, err := e.Place(cmd.Symbol, cmd.Side, price, cmd.Qty)
		if err != nil {
			return out, err
		}
		out.ID, out.Found, out.Trades = res.ID, true, res.Trades

	case CmdCancel:
		ok, err := e.Cancel(cmd.Symbol, cmd.ID)
		if err != nil {
			return out, err
		}
		out.ID, out.Found = cmd.ID, ok

	case CmdModify:
		var amends []orderbook.Amendment
		if cmd.HasPrice {
			price, err := ToTicks(cmd.Price, e.scale)
			if err != nil {
				return out, err
			}
			amends = append(amends, orderbook.NewPrice(price))
		}
		if cmd.HasQty {
			amends = append(amends, orderbook.NewQuantity(cmd.Qty))
		}
		res, found, err := e.Modify(cmd.Symbol, cmd.ID, amends...)
		if err != nil {
			return out, err
		}
		out.Found = found
		out.ID, out.Trades = cmd.ID, res.Trades
		if found {
			out.ID = res.ID
		}

	case CmdBook:
		d, err := e.Depth(cmd.Symbol, cmd.Depth)
		if err != nil {
			return out, err
		}
		out.Found, out.Depth = true, d

	default:
		return out, errors.Wrapf(ErrBadCommand, "kind %d", cmd.Kind)
	}
	return out, nil
}

// Format renders an outcome for the terminal with decimal prices.
func (e *Exchange) Format(o Outcome) string {
	var sb strings.Builder
	px := func(ticks int64) string { return FromTicks(ticks, e.scale) }

	switch o.Command.Kind {
	case CmdAdd:
		fmt.Fprintf(&sb, "%s %s accepted id=%d", o.Command.Symbol, o.Command.Side, o.ID)
	case CmdCancel:
		if o.Found {
			fmt.Fprintf(&sb, "%s canceled id=%d", o.Command.Symbol, o.ID)
		} else {
			fmt.Fprintf(&sb, "%s cancel id=%d: not found", o.Command.Symbol, o.ID)
		}
	case CmdModify:
		if o.Found {
			fmt.Fprintf(&sb, "%s modified id=%d -> id=%d", o.Command.Symbol, o.Command.ID, o.ID)
		} else {
			fmt.Fprintf(&sb, "%s modify id=%d: not found", o.Command.Symbol, o.Command.ID)
		}
	case CmdBook:
		d := o.Depth
		fmt.Fprintf(&sb, "%s book", d.Symbol)
		for i := len(d.Asks) - 1; i >= 0; i-- {
			fmt.Fprintf(&sb, "\n  ask %s x %d (%d)", px(d.Asks[i].Price), d.Asks[i].Qty, d.Asks[i].Orders)
		}
		if len(d.Bids) > 0 && len(d.Asks) > 0 {
			fmt.Fprintf(&sb, "\n  --- spread %s", px(d.Spread))
		}
		for _, l := range d.Bids {
			fmt.Fprintf(&sb, "\n  bid %s x %d (%d)", px(l.Price), l.Qty, l.Orders)
		}
	}
	for _, t := range o.Trades {
		fmt.Fprintf(&sb, "\n  trade #%d buy=%d sell=%d %d @ %s", t.Seq, t.BuyOrderID, t.SellOrderID, t.Qty, px(t.Price))
	}
	return sb.String()
}

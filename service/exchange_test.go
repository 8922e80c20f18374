package service

import (
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tickmatch/domain/orderbook"
	"tickmatch/infra/metrics"
)

type recordingSink struct {
	mu     sync.Mutex
	trades []orderbook.Trade
}

func (r *recordingSink) Publish(trades []orderbook.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trades...)
}

func newTestExchange(t *testing.T, sink orderbook.TradeSink) (*Exchange, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	e, err := NewExchange(Options{
		Symbols:    []string{"ETH-USD", "BTC-USD"},
		PriceScale: 2,
		Sink:       sink,
		Logger:     zaptest.NewLogger(t),
		Metrics:    m,
	})
	require.NoError(t, err)
	return e, m
}

func apply(t *testing.T, e *Exchange, line string) Outcome {
	t.Helper()
	cmd, err := ParseCommand(line)
	require.NoError(t, err)
	out, err := e.Apply(cmd)
	require.NoError(t, err, line)
	return out
}

func TestNewExchangeValidation(t *testing.T) {
	_, err := NewExchange(Options{})
	assert.Error(t, err)
	_, err = NewExchange(Options{Symbols: []string{"A", "A"}})
	assert.Error(t, err)

	e, _ := newTestExchange(t, nil)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, e.Symbols())
}

func TestApplyScript(t *testing.T) {
	sink := &recordingSink{}
	e, m := newTestExchange(t, sink)

	sell := apply(t, e, "add BTC-USD sell 100.50 5")
	assert.Equal(t, orderbook.OrderID(1), sell.ID)
	apply(t, e, "add BTC-USD sell 101 5")

	buy := apply(t, e, "add BTC-USD buy 101.00 7")
	require.Len(t, buy.Trades, 2)
	assert.Equal(t, int64(10050), buy.Trades[0].Price)
	assert.Equal(t, int64(10100), buy.Trades[1].Price)
	assert.Equal(t, "BTC-USD", buy.Trades[0].Symbol)

	book := apply(t, e, "book BTC-USD")
	require.Len(t, book.Depth.Asks, 1)
	assert.Equal(t, orderbook.LevelView{Price: 10100, Qty: 3, Orders: 1}, book.Depth.Asks[0])
	assert.Empty(t, book.Depth.Bids)

	mod := apply(t, e, "modify BTC-USD 2 price=102")
	assert.True(t, mod.Found)
	assert.Equal(t, orderbook.OrderID(4), mod.ID)

	missing := apply(t, e, "cancel BTC-USD 2")
	assert.False(t, missing.Found)
	gone := apply(t, e, "cancel BTC-USD 4")
	assert.True(t, gone.Found)

	assert.Len(t, sink.trades, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Trades.WithLabelValues("BTC-USD")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.TradedQty.WithLabelValues("BTC-USD")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RestingOrders.WithLabelValues("BTC-USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cancels.WithLabelValues("BTC-USD", "not_found")))
}

func TestSymbolsAreIsolated(t *testing.T) {
	e, _ := newTestExchange(t, nil)
	apply(t, e, "add BTC-USD sell 100 1")
	out := apply(t, e, "add ETH-USD buy 200 1")
	assert.Empty(t, out.Trades)
	// ids are per book
	assert.Equal(t, orderbook.OrderID(1), out.ID)
}

func TestApplyErrors(t *testing.T) {
	e, m := newTestExchange(t, nil)

	_, err := e.Apply(Command{Kind: CmdAdd, Symbol: "DOGE", Qty: 1})
	assert.True(t, errors.Is(err, ErrUnknownSymbol))

	cmd, err := ParseCommand("add BTC-USD buy 1.001 1")
	require.NoError(t, err)
	_, err = e.Apply(cmd)
	assert.True(t, errors.Is(err, ErrSubTick))

	cmd, err = ParseCommand("add BTC-USD buy 1 0")
	require.NoError(t, err)
	_, err = e.Apply(cmd)
	assert.True(t, errors.Is(err, orderbook.ErrInvalidOrder))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersRejected.WithLabelValues("BTC-USD")))

	// rejected adds consume no id
	placed := apply(t, e, "add BTC-USD buy 1 1")
	require.Equal(t, orderbook.OrderID(1), placed.ID)
	cmd, err = ParseCommand("modify BTC-USD 1 qty=-3")
	require.NoError(t, err)
	out, err := e.Apply(cmd)
	assert.True(t, errors.Is(err, orderbook.ErrInvalidOrder))
	assert.False(t, out.Found)

	b, err := e.Book("BTC-USD")
	require.NoError(t, err)
	_, ok := b.Order(1)
	assert.True(t, ok, "rejected modify must leave the order resting")
}

func TestFormat(t *testing.T) {
	e, _ := newTestExchange(t, nil)
	apply(t, e, "add BTC-USD sell 100.5 2")
	apply(t, e, "add BTC-USD buy 99 4")
	out := apply(t, e, "add BTC-USD buy 101 1")

	s := e.Format(out)
	assert.True(t, strings.HasPrefix(s, "BTC-USD BUY accepted id=3"), s)
	assert.Contains(t, s, "trade #1 buy=3 sell=1 1 @ 100.50")

	s = e.Format(apply(t, e, "book BTC-USD"))
	assert.Equal(t, "BTC-USD book\n  ask 100.50 x 1 (1)\n  --- spread 1.50\n  bid 99.00 x 4 (1)", s)
}

package outbox

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tickmatch/domain/orderbook"
	"tickmatch/infra/codec"
)

func openTest(t *testing.T) *Outbox {
	t.Helper()
	return openAt(t, t.TempDir())
}

func openAt(t *testing.T, dir string) *Outbox {
	t.Helper()
	o, err := Open(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	o.now = func() time.Time { return time.Unix(0, 77) }
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func collect(t *testing.T, scan func(func(Entry) error) error) []Entry {
	t.Helper()
	var out []Entry
	require.NoError(t, scan(func(e Entry) error {
		out = append(out, e)
		return nil
	}))
	return out
}

func TestPutAndGet(t *testing.T) {
	o := openTest(t)
	tr := orderbook.Trade{Symbol: "BTC-USD", Seq: 3, BuyOrderID: 1, SellOrderID: 2, Price: 100, Qty: 5}
	require.NoError(t, o.Put(tr))

	e, err := o.Get(o.Ref("BTC-USD", 3))
	require.NoError(t, err)
	assert.Equal(t, StateNew, e.State)
	assert.Zero(t, e.Retries)

	decoded, err := codec.DecodeTrade(e.Payload)
	require.NoError(t, err)
	assert.Equal(t, tr, decoded)

	_, err = o.Get(o.Ref("BTC-USD", 4))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestScanPendingOrder(t *testing.T) {
	o := openTest(t)
	o.Publish([]orderbook.Trade{
		{Symbol: "ETH", Seq: 2},
		{Symbol: "BTC", Seq: 10},
		{Symbol: "ETH", Seq: 1},
		{Symbol: "BTC", Seq: 9},
	})
	require.NoError(t, o.Mark(o.Ref("ETH", 2), StateAcked, 0))
	require.NoError(t, o.Mark(o.Ref("BTC", 9), StateSent, 1))

	var keys []string
	for _, e := range collect(t, o.ScanPending) {
		keys = append(keys, e.Symbol+"/"+e.State.String())
	}
	assert.Equal(t, []string{"BTC/SENT", "BTC/NEW", "ETH/NEW"}, keys)
}

func TestMarkKeepsPayload(t *testing.T) {
	o := openTest(t)
	require.NoError(t, o.Put(orderbook.Trade{Symbol: "X", Seq: 1, Qty: 9}))
	require.NoError(t, o.Mark(o.Ref("X", 1), StateFailed, 5))

	e, err := o.Get(o.Ref("X", 1))
	require.NoError(t, err)
	assert.Equal(t, StateFailed, e.State)
	assert.Equal(t, uint32(5), e.Retries)
	assert.Equal(t, int64(77), e.LastAttempt)
	tr, err := codec.DecodeTrade(e.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(9), tr.Qty)

	assert.True(t, errors.Is(o.Mark(o.Ref("X", 2), StateSent, 0), ErrNotFound))
}

func TestDeleteAcked(t *testing.T) {
	o := openTest(t)
	require.NoError(t, o.Put(
		orderbook.Trade{Symbol: "X", Seq: 1},
		orderbook.Trade{Symbol: "X", Seq: 2},
		orderbook.Trade{Symbol: "X", Seq: 3},
	))
	require.NoError(t, o.Mark(o.Ref("X", 1), StateAcked, 0))
	require.NoError(t, o.Mark(o.Ref("X", 3), StateAcked, 0))

	n, err := o.DeleteAcked()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left := collect(t, o.ScanPending)
	require.Len(t, left, 1)
	assert.Equal(t, uint64(2), left[0].Seq)

	n, err = o.DeleteAcked()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSymbolWithSlash(t *testing.T) {
	o := openTest(t)
	require.NoError(t, o.Put(orderbook.Trade{Symbol: "BTC/USD", Seq: 1}))
	got := collect(t, o.ScanPending)
	require.Len(t, got, 1)
	assert.Equal(t, "BTC/USD", got[0].Symbol)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ACKED", StateAcked.String())
	assert.Equal(t, "UNKNOWN", State(9).String())
	assert.True(t, StateSent.Pending())
	assert.False(t, StateFailed.Pending())
}

func TestReopenKeepsUndeliveredTrades(t *testing.T) {
	dir := t.TempDir()

	first, err := Open(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, first.Put(orderbook.Trade{Symbol: "AAPL", Seq: 1, Qty: 3}))
	require.NoError(t, first.Close())

	// a fresh book numbers its trades from 1 again
	second := openAt(t, dir)
	assert.Greater(t, second.Run(), first.Run())
	require.NoError(t, second.Put(orderbook.Trade{Symbol: "AAPL", Seq: 1, Qty: 8}))

	got := collect(t, second.ScanPending)
	require.Len(t, got, 2)
	assert.Equal(t, first.Run(), got[0].Run)
	assert.Equal(t, second.Run(), got[1].Run)

	var qtys []int64
	for _, e := range got {
		tr, err := codec.DecodeTrade(e.Payload)
		require.NoError(t, err)
		qtys = append(qtys, tr.Qty)
	}
	assert.Equal(t, []int64{3, 8}, qtys)

	// entries of an earlier run stay addressable
	require.NoError(t, second.Mark(got[0].Ref, StateAcked, 0))
	n, err := second.DeleteAcked()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levelIDs(l *PriceLevel) []OrderID {
	var ids []OrderID
	for _, o := range l.Orders() {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestPriceLevelFIFO(t *testing.T) {
	l := &PriceLevel{Price: 10}
	a := &Order{ID: 1, Remaining: 3}
	b := &Order{ID: 2, Remaining: 4}
	c := &Order{ID: 3, Remaining: 5}
	l.Append(a)
	l.Append(b)
	l.Append(c)

	assert.Same(t, a, l.Front())
	assert.Equal(t, []OrderID{1, 2, 3}, levelIDs(l))
	assert.Equal(t, int64(12), l.TotalQty)
	assert.Equal(t, 3, l.OrderCount)
}

func TestPriceLevelRemoveAnywhere(t *testing.T) {
	l := &PriceLevel{Price: 10}
	orders := []*Order{{ID: 1, Remaining: 1}, {ID: 2, Remaining: 1}, {ID: 3, Remaining: 1}, {ID: 4, Remaining: 1}}
	for _, o := range orders {
		l.Append(o)
	}

	l.Remove(orders[1]) // middle
	assert.Equal(t, []OrderID{1, 3, 4}, levelIDs(l))
	l.Remove(orders[3]) // tail
	assert.Equal(t, []OrderID{1, 3}, levelIDs(l))
	l.Remove(orders[0]) // head
	assert.Equal(t, []OrderID{3}, levelIDs(l))
	assert.Nil(t, orders[0].Next())

	l.Append(&Order{ID: 5, Remaining: 2})
	assert.Equal(t, []OrderID{3, 5}, levelIDs(l))

	l.Remove(orders[2])
	l.Remove(l.Front())
	require.True(t, l.Empty())
	assert.Zero(t, l.TotalQty)
	assert.Zero(t, l.OrderCount)
}

func TestPriceLevelFillKeepsPosition(t *testing.T) {
	l := &PriceLevel{Price: 10}
	a := &Order{ID: 1, Remaining: 5}
	l.Append(a)
	l.Append(&Order{ID: 2, Remaining: 5})

	l.fill(a, 2)
	assert.Same(t, a, l.Front())
	assert.Equal(t, int64(3), a.Remaining)
	assert.Equal(t, int64(8), l.TotalQty)
}

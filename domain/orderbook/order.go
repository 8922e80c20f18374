package orderbook

import "fmt"

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// Opposite returns the side an order of s matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) valid() bool { return s == Buy || s == Sell }

// OrderID is assigned by the book, strictly increasing and never reused.
type OrderID uint64

// Order is a resting limit order. It doubles as the position handle of
// its price level: next/prev link it into the level's FIFO.
type Order struct {
	ID        OrderID
	Side      Side
	Price     int64
	Qty       int64
	Remaining int64
	SeqID     uint64

	next *Order
	prev *Order
}

// Next returns the order queued behind o at the same price.
func (o *Order) Next() *Order { return o.next }

// Reset clears o before it goes back to the pool.
func (o *Order) Reset() { *o = Order{} }

// OrderView is a copy of a live order's state, safe to hold after the
// book lock is released.
type OrderView struct {
	ID        OrderID
	Side      Side
	Price     int64
	Qty       int64
	Remaining int64
	SeqID     uint64
}

func (o *Order) view() OrderView {
	return OrderView{
		ID:        o.ID,
		Side:      o.Side,
		Price:     o.Price,
		Qty:       o.Qty,
		Remaining: o.Remaining,
		SeqID:     o.SeqID,
	}
}

// Filled reports the quantity executed so far.
func (v OrderView) Filled() int64 { return v.Qty - v.Remaining }

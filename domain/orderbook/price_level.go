package orderbook

import "fmt"

// PriceLevel is a FIFO queue of resting orders at a single price.
// It exists only while it holds at least one order.
type PriceLevel struct {
	Price int64

	head *Order
	tail *Order

	TotalQty   int64
	OrderCount int
}

// Append queues o behind every order already at this price.
func (l *PriceLevel) Append(o *Order) {
	if l.tail != nil {
		l.tail.next = o
		o.prev = l.tail
	} else {
		l.head = o
	}
	l.tail = o
	l.TotalQty += o.Remaining
	l.OrderCount++
}

// Remove unlinks o from anywhere in the queue in O(1).
func (l *PriceLevel) Remove(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next, o.prev = nil, nil
	l.TotalQty -= o.Remaining
	l.OrderCount--
}

// Front returns the oldest order, or nil when the level is empty.
func (l *PriceLevel) Front() *Order { return l.head }

func (l *PriceLevel) Empty() bool { return l.head == nil }

// fill reduces o's remaining quantity in place; o keeps its queue position.
func (l *PriceLevel) fill(o *Order, qty int64) {
	o.Remaining -= qty
	l.TotalQty -= qty
}

// Orders returns the queued orders oldest first.
func (l *PriceLevel) Orders() []*Order {
	out := make([]*Order, 0, l.OrderCount)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n)
	}
	return out
}

func (l *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%d, Orders=%d, TotalQty=%d}", l.Price, l.OrderCount, l.TotalQty)
}

package orderbook

// registry maps a live order id to its node. The node carries side and
// price and is the handle its level unlinks in O(1), so cancel and modify
// never scan a level.
type registry struct {
	orders map[OrderID]*Order
}

func newRegistry() *registry {
	return &registry{orders: make(map[OrderID]*Order)}
}

func (r *registry) register(o *Order) { r.orders[o.ID] = o }

// locate returns nil, false for unknown ids, including orders that were
// filled or canceled.
func (r *registry) locate(id OrderID) (*Order, bool) {
	o, ok := r.orders[id]
	return o, ok
}

func (r *registry) remove(id OrderID) { delete(r.orders, id) }

func (r *registry) len() int { return len(r.orders) }

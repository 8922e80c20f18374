package orderbook

import "github.com/cockroachdb/errors"

// ErrInvalidOrder rejects an order before the book is touched: a
// non-positive price or quantity, or an unknown side.
var ErrInvalidOrder = errors.New("orderbook: invalid order")

func validate(side Side, price, qty int64) error {
	if !side.valid() {
		return errors.Wrapf(ErrInvalidOrder, "side %d", uint8(side))
	}
	if price <= 0 {
		return errors.Wrapf(ErrInvalidOrder, "price %d must be positive", price)
	}
	if qty <= 0 {
		return errors.Wrapf(ErrInvalidOrder, "quantity %d must be positive", qty)
	}
	return nil
}

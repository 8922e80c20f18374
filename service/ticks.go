package service

import (
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

var ErrSubTick = errors.New("service: price finer than one tick")

// ToTicks converts a decimal price to integer ticks of 10^-scale.
func ToTicks(d decimal.Decimal, scale int32) (int64, error) {
	shifted := d.Shift(scale)
	if !shifted.IsInteger() {
		return 0, errors.Wrapf(ErrSubTick, "%s at scale %d", d, scale)
	}
	bi := shifted.BigInt()
	if !bi.IsInt64() {
		return 0, errors.Newf("service: price %s out of range", d)
	}
	return bi.Int64(), nil
}

// FromTicks renders ticks with exactly scale decimal places.
func FromTicks(ticks int64, scale int32) string {
	return decimal.New(ticks, -scale).StringFixed(scale)
}

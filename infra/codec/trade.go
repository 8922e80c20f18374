// Package codec is the wire encoding of trades shared by the journal,
// the outbox and the Kafka publishers. It writes protobuf wire format by
// hand with protowire, so consumers may decode it with any generated
// message carrying the same field numbers.
package codec

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"tickmatch/domain/orderbook"
)

const (
	fieldSymbol protowire.Number = iota + 1
	fieldSeq
	fieldBuyID
	fieldSellID
	fieldPrice
	fieldQty
	fieldTime
)

var ErrMalformed = errors.New("codec: malformed trade")

// AppendTrade appends the encoding of t to b.
func AppendTrade(b []byte, t orderbook.Trade) []byte {
	if t.Symbol != "" {
		b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
		b = protowire.AppendString(b, t.Symbol)
	}
	b = appendVarint(b, fieldSeq, t.Seq)
	b = appendVarint(b, fieldBuyID, uint64(t.BuyOrderID))
	b = appendVarint(b, fieldSellID, uint64(t.SellOrderID))
	b = appendVarint(b, fieldPrice, uint64(t.Price))
	b = appendVarint(b, fieldQty, uint64(t.Qty))
	b = appendVarint(b, fieldTime, uint64(t.Time))
	return b
}

func appendVarint(b []byte, n protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, n, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func EncodeTrade(t orderbook.Trade) []byte {
	return AppendTrade(make([]byte, 0, 64), t)
}

// DecodeTrade parses one encoded trade. Unknown fields are skipped.
func DecodeTrade(b []byte) (orderbook.Trade, error) {
	var t orderbook.Trade
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return orderbook.Trade{}, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
		}
		b = b[n:]

		switch {
		case num == fieldSymbol && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return orderbook.Trade{}, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
			}
			t.Symbol = s
			b = b[n:]

		case num >= fieldSeq && num <= fieldTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return orderbook.Trade{}, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
			}
			b = b[n:]
			switch num {
			case fieldSeq:
				t.Seq = v
			case fieldBuyID:
				t.BuyOrderID = orderbook.OrderID(v)
			case fieldSellID:
				t.SellOrderID = orderbook.OrderID(v)
			case fieldPrice:
				t.Price = int64(v)
			case fieldQty:
				t.Qty = int64(v)
			case fieldTime:
				t.Time = int64(v)
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return orderbook.Trade{}, errors.Wrapf(ErrMalformed, "field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return t, nil
}

// Key is the partition key for t: trades of one symbol stay ordered.
func Key(t orderbook.Trade) []byte {
	return []byte(t.Symbol)
}

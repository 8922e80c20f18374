// Package orderbook implements a single-symbol limit order book with
// price-time priority matching.
//
// Each side keeps its price levels in a map plus a price index that
// ranks them (red-black tree by default, B-tree or a lazily invalidated
// heap on request). Levels are intrusive doubly-linked FIFO queues, and
// a registry maps order ids to their nodes so cancel and modify unlink
// in O(1). Adding an order runs the matching loop until the book is no
// longer crossed; trades are returned and optionally handed to a
// TradeSink, never printed.
package orderbook

package orderbook

import (
	"cmp"
	"container/heap"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
)

// IndexKind selects the structure ranking the active prices of a side.
type IndexKind uint8

const (
	// IndexRBTree is a red-black tree with true deletion. Default.
	IndexRBTree IndexKind = iota
	// IndexBTree is a B-tree with true deletion.
	IndexBTree
	// IndexHeap is an insert-only binary heap. Purged prices stay in the
	// heap until a best-price read finds them and discards them.
	IndexHeap
)

func (k IndexKind) String() string {
	switch k {
	case IndexRBTree:
		return "rbtree"
	case IndexBTree:
		return "btree"
	case IndexHeap:
		return "heap"
	default:
		return "unknown"
	}
}

// ParseIndexKind maps a config value to an IndexKind.
func ParseIndexKind(s string) (IndexKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rbtree", "rb":
		return IndexRBTree, nil
	case "btree":
		return IndexBTree, nil
	case "heap":
		return IndexHeap, nil
	default:
		return 0, errors.Newf("orderbook: unknown index kind %q", s)
	}
}

// priceIndex ranks the prices of one side, best first.
type priceIndex interface {
	Insert(price int64)
	Delete(price int64)
	// Best returns the most aggressive live price.
	Best() (int64, bool)
	// Walk visits live prices best first until fn returns false.
	Walk(fn func(price int64) bool)
	Len() int
}

// newPriceIndex builds the index for one side. live reports whether a
// price still maps to a non-empty level; only the heap consults it.
func newPriceIndex(kind IndexKind, side Side, live func(int64) bool) priceIndex {
	desc := side == Buy
	switch kind {
	case IndexBTree:
		return newBTreeIndex(desc)
	case IndexHeap:
		return newHeapIndex(desc, live)
	default:
		return newRBTree(desc)
	}
}

// ---- btree ----

const btreeDegree = 32

type btreeIndex struct {
	tree *btree.BTreeG[int64]
}

func newBTreeIndex(desc bool) *btreeIndex {
	less := func(a, b int64) bool { return a < b }
	if desc {
		less = func(a, b int64) bool { return a > b }
	}
	return &btreeIndex{tree: btree.NewG[int64](btreeDegree, less)}
}

func (b *btreeIndex) Insert(price int64) { b.tree.ReplaceOrInsert(price) }

func (b *btreeIndex) Delete(price int64) { b.tree.Delete(price) }

func (b *btreeIndex) Best() (int64, bool) { return b.tree.Min() }

func (b *btreeIndex) Walk(fn func(price int64) bool) { b.tree.Ascend(fn) }

func (b *btreeIndex) Len() int { return b.tree.Len() }

// ---- heap ----

type priceHeap struct {
	prices []int64
	desc   bool
}

func (h *priceHeap) Len() int { return len(h.prices) }

func (h *priceHeap) Less(i, j int) bool {
	if h.desc {
		return h.prices[i] > h.prices[j]
	}
	return h.prices[i] < h.prices[j]
}

func (h *priceHeap) Swap(i, j int) { h.prices[i], h.prices[j] = h.prices[j], h.prices[i] }

func (h *priceHeap) Push(x any) { h.prices = append(h.prices, x.(int64)) }

func (h *priceHeap) Pop() any {
	n := len(h.prices)
	p := h.prices[n-1]
	h.prices = h.prices[:n-1]
	return p
}

// heapIndex never deletes eagerly. Every read validates the top entry
// against live and pops it when its level is gone.
type heapIndex struct {
	h       *priceHeap
	queued  map[int64]struct{}
	live    func(int64) bool
	dropped int
}

func newHeapIndex(desc bool, live func(int64) bool) *heapIndex {
	return &heapIndex{
		h:      &priceHeap{desc: desc},
		queued: make(map[int64]struct{}),
		live:   live,
	}
}

// Insert pushes price unless an entry for it is already queued. A stale
// entry left by an earlier purge becomes valid again once the level is back.
func (x *heapIndex) Insert(price int64) {
	if _, ok := x.queued[price]; ok {
		return
	}
	heap.Push(x.h, price)
	x.queued[price] = struct{}{}
}

func (x *heapIndex) Delete(int64) {}

func (x *heapIndex) Best() (int64, bool) {
	for x.h.Len() > 0 {
		top := x.h.prices[0]
		if x.live(top) {
			return top, true
		}
		heap.Pop(x.h)
		delete(x.queued, top)
		x.dropped++
	}
	return 0, false
}

func (x *heapIndex) Walk(fn func(price int64) bool) {
	prices := slices.Clone(x.h.prices)
	if x.h.desc {
		slices.SortFunc(prices, func(a, b int64) int { return cmp.Compare(b, a) })
	} else {
		slices.SortFunc(prices, cmp.Compare[int64])
	}
	for _, p := range prices {
		if !x.live(p) {
			continue
		}
		if !fn(p) {
			return
		}
	}
}

// Len counts queued entries, stale ones included.
func (x *heapIndex) Len() int { return x.h.Len() }

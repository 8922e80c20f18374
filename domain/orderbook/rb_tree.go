package orderbook

type color uint8

const (
	red color = iota
	black
)

type rbNode struct {
	price  int64
	color  color
	left   *rbNode
	right  *rbNode
	parent *rbNode
}

// rbTree is a red-black tree of prices with a shared black sentinel.
// desc flips which end is "best": max for bids, min for asks.
type rbTree struct {
	root *rbNode
	nil  *rbNode
	size int
	desc bool
}

func newRBTree(desc bool) *rbTree {
	sentinel := &rbNode{color: black}
	return &rbTree{root: sentinel, nil: sentinel, desc: desc}
}

// ---- priceIndex ----

func (t *rbTree) Insert(price int64) {
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		switch {
		case price < x.price:
			x = x.left
		case price > x.price:
			x = x.right
		default:
			return
		}
	}

	z := &rbNode{price: price, color: red, left: t.nil, right: t.nil, parent: y}
	switch {
	case y == t.nil:
		t.root = z
	case price < y.price:
		y.left = z
	default:
		y.right = z
	}
	t.insertFixup(z)
	t.size++
}

func (t *rbTree) Delete(price int64) {
	z := t.search(price)
	if z == t.nil {
		return
	}
	t.deleteNode(z)
	t.size--
}

func (t *rbTree) Best() (int64, bool) {
	var n *rbNode
	if t.desc {
		n = t.maxNode(t.root)
	} else {
		n = t.minNode(t.root)
	}
	if n == t.nil {
		return 0, false
	}
	return n.price, true
}

func (t *rbTree) Walk(fn func(price int64) bool) {
	if t.desc {
		for n := t.maxNode(t.root); n != t.nil; n = t.prev(n) {
			if !fn(n.price) {
				return
			}
		}
		return
	}
	for n := t.minNode(t.root); n != t.nil; n = t.next(n) {
		if !fn(n.price) {
			return
		}
	}
}

func (t *rbTree) Len() int { return t.size }

// ---- internals ----

func (t *rbTree) search(price int64) *rbNode {
	n := t.root
	for n != t.nil {
		switch {
		case price < n.price:
			n = n.left
		case price > n.price:
			n = n.right
		default:
			return n
		}
	}
	return t.nil
}

func (t *rbTree) minNode(n *rbNode) *rbNode {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *rbTree) maxNode(n *rbNode) *rbNode {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *rbTree) next(n *rbNode) *rbNode {
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n, p = p, p.parent
	}
	return p
}

func (t *rbTree) prev(n *rbNode) *rbNode {
	if n.left != t.nil {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n, p = p, p.parent
	}
	return p
}

func (t *rbTree) rotateLeft(x *rbNode) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	t.replaceChild(x, y)
	y.left = x
	x.parent = y
}

func (t *rbTree) rotateRight(y *rbNode) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	t.replaceChild(y, x)
	x.right = y
	y.parent = x
}

// replaceChild hangs v where u was under u's parent.
func (t *rbTree) replaceChild(u, v *rbNode) {
	switch {
	case u.parent == t.nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *rbTree) insertFixup(z *rbNode) {
	for z.parent.color == red {
		gp := z.parent.parent
		if z.parent == gp.left {
			uncle := gp.right
			if uncle.color == red {
				z.parent.color, uncle.color, gp.color = black, black, red
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.rotateLeft(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rotateRight(z.parent.parent)
		} else {
			uncle := gp.left
			if uncle.color == red {
				z.parent.color, uncle.color, gp.color = black, black, red
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rotateRight(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rotateLeft(z.parent.parent)
		}
	}
	t.root.color = black
}

func (t *rbTree) deleteNode(z *rbNode) {
	y := z
	yColor := y.color
	var x *rbNode

	switch {
	case z.left == t.nil:
		x = z.right
		t.replaceChild(z, z.right)
	case z.right == t.nil:
		x = z.left
		t.replaceChild(z, z.left)
	default:
		y = t.minNode(z.right)
		yColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.replaceChild(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.replaceChild(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yColor == black {
		t.deleteFixup(x)
	}
}

func (t *rbTree) deleteFixup(x *rbNode) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
				continue
			}
			if w.right.color == black {
				w.left.color = black
				w.color = red
				t.rotateRight(w)
				w = x.parent.right
			}
			w.color = x.parent.color
			x.parent.color = black
			w.right.color = black
			t.rotateLeft(x.parent)
			x = t.root
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
				continue
			}
			if w.left.color == black {
				w.right.color = black
				w.color = red
				t.rotateLeft(w)
				w = x.parent.left
			}
			w.color = x.parent.color
			x.parent.color = black
			w.left.color = black
			t.rotateRight(x.parent)
			x = t.root
		}
	}
	x.color = black
}

package orderbook

// bookSide owns every price level of one side and the index ranking them.
// A price is in levels iff its level is non-empty; level and index entry
// are created and purged together.
type bookSide struct {
	side   Side
	levels map[int64]*PriceLevel
	index  priceIndex
	orders int
}

func newBookSide(side Side, kind IndexKind) *bookSide {
	s := &bookSide{
		side:   side,
		levels: make(map[int64]*PriceLevel),
	}
	s.index = newPriceIndex(kind, side, s.live)
	return s
}

func (s *bookSide) live(price int64) bool {
	lvl, ok := s.levels[price]
	return ok && !lvl.Empty()
}

// insert queues o at its price, creating the level on first use.
func (s *bookSide) insert(o *Order) {
	lvl, ok := s.levels[o.Price]
	if !ok {
		lvl = &PriceLevel{Price: o.Price}
		s.levels[o.Price] = lvl
		s.index.Insert(o.Price)
	}
	lvl.Append(o)
	s.orders++
}

// remove unlinks o and purges its level when that leaves it empty.
func (s *bookSide) remove(o *Order) {
	lvl, ok := s.levels[o.Price]
	if !ok {
		return
	}
	lvl.Remove(o)
	s.orders--
	if lvl.Empty() {
		delete(s.levels, o.Price)
		s.index.Delete(o.Price)
	}
}

func (s *bookSide) bestPrice() (int64, bool) {
	return s.index.Best()
}

func (s *bookSide) bestLevel() *PriceLevel {
	price, ok := s.index.Best()
	if !ok {
		return nil
	}
	return s.levels[price]
}

func (s *bookSide) empty() bool { return len(s.levels) == 0 }

// walk visits levels best first until fn returns false.
func (s *bookSide) walk(fn func(*PriceLevel) bool) {
	s.index.Walk(func(price int64) bool {
		return fn(s.levels[price])
	})
}

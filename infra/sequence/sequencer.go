package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing uint64 values, starting
// after the value it was created with. Issued values are never reused.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued value, or the start value if none.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

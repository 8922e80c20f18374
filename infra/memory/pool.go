package memory

import "sync"

// Pool is a typed free list over sync.Pool. Values are reset on Put so
// a node fetched by Get never carries links from its previous life.
type Pool[T any] struct {
	p     sync.Pool
	reset func(*T)
}

// NewPool returns a pool that zeroes values with reset before reuse.
// A nil reset assigns the zero value.
func NewPool[T any](reset func(*T)) *Pool[T] {
	if reset == nil {
		reset = func(v *T) {
			var zero T
			*v = zero
		}
	}
	return &Pool[T]{
		p:     sync.Pool{New: func() any { return new(T) }},
		reset: reset,
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

// Put must only be called once v is unreachable from any live structure.
func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	p.reset(v)
	p.p.Put(v)
}

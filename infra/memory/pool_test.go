package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type node struct {
	id   uint64
	next *node
}

func TestPoolResetsOnPut(t *testing.T) {
	p := NewPool[node](nil)

	n := p.Get()
	require.NotNil(t, n)
	n.id = 7
	n.next = &node{id: 8}
	p.Put(n)

	got := p.Get()
	require.Zero(t, got.id)
	require.Nil(t, got.next)
}

func TestPoolCustomReset(t *testing.T) {
	resets := 0
	p := NewPool(func(n *node) {
		resets++
		*n = node{}
	})

	p.Put(p.Get())
	p.Put(nil)
	require.Equal(t, 1, resets)
}

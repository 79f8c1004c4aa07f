// package buffer provides pooled scratch slices.
package buffer

import (
	"sync"
)

// DefaultSize is the capacity of a freshly allocated buffer.
const DefaultSize = 4096

// Pool hands out reusable slices of T. The zero value is ready to use.
type Pool[T any] struct {
	p sync.Pool
}

// Get returns a slice of length size. Its contents are arbitrary.
func (p *Pool[T]) Get(size int) []T {
	v := p.p.Get()
	if v == nil {
		return make([]T, size, max(size, DefaultSize))
	}
	b := *(v.(*[]T))
	if cap(b) < size {
		b = make([]T, size)
	}
	return b[:size]
}

// Put returns b to the pool. b must not be used afterwards.
func (p *Pool[T]) Put(b []T) {
	b = b[:0]
	p.p.Put(&b)
}

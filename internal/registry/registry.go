package registry

import (
	"iter"
	"slices"
	"sync/atomic"

	"github.com/alphadose/haxmap"
)

// Registry maps identifiers to values. Lookups are lock-free; Rebuild swaps in a complete
// new table so readers never observe a half-built or stale mapping.
type Registry[T any] interface {
	Get(id string) (T, bool)
	Keys() []string
	Len() int
	Rebuild(entries iter.Seq2[string, T])
}

type registry[T any] struct {
	values atomic.Pointer[haxmap.Map[string, T]]
}

func New[T any]() Registry[T] {
	r := &registry[T]{}
	r.values.Store(haxmap.New[string, T]())
	return r
}

func (r *registry[T]) Get(id string) (T, bool) {
	return r.values.Load().Get(id)
}

func (r *registry[T]) Keys() []string {
	m := r.values.Load()
	keys := make([]string, 0, m.Len())
	m.ForEach(func(k string, _ T) bool {
		keys = append(keys, k)
		return true
	})
	slices.Sort(keys)
	return keys
}

func (r *registry[T]) Len() int {
	return int(r.values.Load().Len())
}

func (r *registry[T]) Rebuild(entries iter.Seq2[string, T]) {
	m := haxmap.New[string, T]()
	for k, v := range entries {
		m.Set(k, v)
	}
	r.values.Store(m)
}

package registry

import (
	"maps"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	t.Run("starts empty", func(t *testing.T) {
		r := New[int]()
		assert.Equal(t, 0, r.Len())
		assert.Empty(t, r.Keys())
		_, ok := r.Get("a")
		assert.False(t, ok)
	})

	t.Run("rebuild installs entries", func(t *testing.T) {
		r := New[int]()
		r.Rebuild(maps.All(map[string]int{"b": 2, "a": 1}))
		assert.Equal(t, 2, r.Len())
		assert.Equal(t, []string{"a", "b"}, r.Keys())
		v, ok := r.Get("b")
		assert.True(t, ok)
		assert.Equal(t, 2, v)
	})

	t.Run("rebuild drops stale entries", func(t *testing.T) {
		r := New[int]()
		r.Rebuild(maps.All(map[string]int{"a": 1, "stale": 9}))
		r.Rebuild(maps.All(map[string]int{"a": 1, "c": 3}))
		assert.Equal(t, []string{"a", "c"}, r.Keys())
		_, ok := r.Get("stale")
		assert.False(t, ok)
	})

	t.Run("concurrent readers during rebuild", func(t *testing.T) {
		r := New[int]()
		r.Rebuild(maps.All(map[string]int{"a": 1}))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					v, ok := r.Get("a")
					assert.True(t, ok)
					assert.Equal(t, 1, v)
				}
			}()
		}
		for i := 0; i < 100; i++ {
			r.Rebuild(maps.All(map[string]int{"a": 1, "b": i}))
		}
		wg.Wait()
	})
}

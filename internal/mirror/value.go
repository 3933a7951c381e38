package mirror

import "sync"

// Value holds a single piece of UI state, such as the selected date.
type Value[T any] struct {
	mu  sync.RWMutex
	v   T
	def T
}

func NewValue[T any](def T) *Value[T] {
	return &Value[T]{v: def, def: def}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.v = val
	v.mu.Unlock()
}

// Reset restores the initial value.
func (v *Value[T]) Reset() { v.Set(v.def) }

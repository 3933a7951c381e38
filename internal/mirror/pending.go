package mirror

import "sync"

// Pending tracks operations that are in flight, e.g. a ticket being deleted,
// so the UI can show a busy state.
type Pending struct {
	mu     sync.Mutex
	active map[string]int
}

func NewPending() *Pending {
	return &Pending{active: make(map[string]int)}
}

// Begin marks key as in progress. The returned func ends it and is safe to
// call more than once; callers defer it.
func (p *Pending) Begin(key string) (end func()) {
	p.mu.Lock()
	p.active[key]++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.active[key] <= 1 {
				delete(p.active, key)
				return
			}
			p.active[key]--
		})
	}
}

func (p *Pending) Active(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[key] > 0
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

func (p *Pending) Reset() {
	p.mu.Lock()
	p.active = make(map[string]int)
	p.mu.Unlock()
}

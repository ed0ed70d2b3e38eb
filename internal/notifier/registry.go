package notifier

import "sync"

// Registry holds channels keyed by id in insertion order.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
	order    []string
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Add inserts or overwrites a channel by id.
func (r *Registry) Add(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[ch.ID]; !exists {
		r.order = append(r.order, ch.ID)
	}
	r.channels[ch.ID] = ch
}

// Remove deletes a channel and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[id]; !ok {
		return false
	}
	delete(r.channels, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a channel by id.
func (r *Registry) Get(id string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all channels in insertion order.
func (r *Registry) List() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Channel, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.channels[id])
	}
	return out
}

// Resolve maps ids to enabled channels, preserving order. Missing and
// disabled ids are skipped.
func (r *Registry) Resolve(ids []string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Channel, 0, len(ids))
	for _, id := range ids {
		ch, ok := r.channels[id]
		if !ok || !ch.Enabled() {
			continue
		}
		out = append(out, ch)
	}
	return out
}

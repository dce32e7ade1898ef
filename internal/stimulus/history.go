package stimulus

import "slices"

// History remembers recent draws. It holds at most its capacity and is emptied by the
// picker once full, so every value gets sampled before any repeats.
type History struct {
	values   []int
	capacity int
}

// NewHistory returns an empty history with the given capacity.
func NewHistory(capacity int) *History {
	return &History{values: make([]int, 0, capacity), capacity: capacity}
}

func (h *History) Contains(v int) bool { return slices.Contains(h.values, v) }
func (h *History) Full() bool          { return len(h.values) >= h.capacity }
func (h *History) Len() int            { return len(h.values) }
func (h *History) Capacity() int       { return h.capacity }
func (h *History) Reset()              { h.values = h.values[:0] }

// Add records v. Callers clear a full history first.
func (h *History) Add(v int) {
	h.values = append(h.values, v)
}

// Values returns a copy of the recorded draws in insertion order.
func (h *History) Values() []int {
	return slices.Clone(h.values)
}

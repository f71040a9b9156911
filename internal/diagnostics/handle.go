package diagnostics

import "sync/atomic"

// Handle holds the model currently used for serving. Replace swaps in a new
// model atomically; readers never see a partially built one.
type Handle struct {
	current atomic.Pointer[Model]
}

// NewHandle returns a handle serving m, which may be nil.
func NewHandle(m *Model) *Handle {
	h := &Handle{}
	if m != nil {
		h.current.Store(m)
	}
	return h
}

// Current returns the serving model or nil when none is loaded.
func (h *Handle) Current() *Model {
	return h.current.Load()
}

// Replace installs m and returns the previous model.
func (h *Handle) Replace(m *Model) *Model {
	return h.current.Swap(m)
}

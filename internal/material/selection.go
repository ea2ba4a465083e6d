package material

import "sync"

// Selection is the builder's current ring configuration as seen by the overlay.
type Selection struct {
	Metal string  `json:"metal"`
	Carat float64 `json:"carat"`
}

// DefaultSelection returns the selection used before the builder sends one.
func DefaultSelection() Selection {
	return Selection{Metal: DefaultMetal, Carat: DefaultCarat}
}

// Normalize fills empty or non-positive fields with defaults.
func (s Selection) Normalize() Selection {
	if s.Metal == "" {
		s.Metal = DefaultMetal
	}
	if s.Carat <= 0 {
		s.Carat = DefaultCarat
	}
	return s
}

// Tracker holds the current selection and the parameters derived from it.
// Parameters are re-derived only when the selection changes.
type Tracker struct {
	mu       sync.RWMutex
	sel      Selection
	params   Parameters
	onChange []func(Selection)
}

// NewTracker creates a Tracker starting at sel.
func NewTracker(sel Selection) *Tracker {
	sel = sel.Normalize()
	return &Tracker{
		sel:    sel,
		params: Resolve(sel.Metal, sel.Carat),
	}
}

// OnChange registers fn to be called after every change made through Set.
func (t *Tracker) OnChange(fn func(Selection)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = append(t.onChange, fn)
}

// Set replaces the selection. It reports whether anything changed.
func (t *Tracker) Set(sel Selection) bool {
	sel = sel.Normalize()

	t.mu.Lock()
	if sel == t.sel {
		t.mu.Unlock()
		return false
	}
	t.sel = sel
	t.params = Resolve(sel.Metal, sel.Carat)
	callbacks := append([]func(Selection){}, t.onChange...)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn(sel)
	}
	return true
}

// Selection returns the current selection.
func (t *Tracker) Selection() Selection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sel
}

// Parameters returns the render parameters for the current selection.
func (t *Tracker) Parameters() Parameters {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.params
}

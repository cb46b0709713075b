package pagination

import "sync"

// Viewport tracks the latest width reported by a client. Every report
// reclassifies immediately.
type Viewport struct {
	mu     sync.Mutex
	width  int
	mobile bool
}

// NewViewport starts in the compact layout until the first report arrives.
func NewViewport() *Viewport {
	return &Viewport{mobile: true}
}

// Report records a width and returns whether the classification changed.
func (v *Viewport) Report(width int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.width = width
	mobile := IsMobile(width)
	changed := mobile != v.mobile
	v.mobile = mobile
	return changed
}

func (v *Viewport) Mobile() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mobile
}

func (v *Viewport) Width() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width
}

package console

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// Switcher owns every virtual terminal and the one physical Backend they
// take turns driving — "virtual-terminal switch moves the active fb
// pointer" (spec §4.8): each Console keeps its own grid independently of
// whether it is currently on-screen, and Switch repaints the shared
// backend from whichever grid becomes active.
type Switcher struct {
	mu      sync.Mutex
	backend Backend
	vts     []*Console
	active  int
}

// NewSwitcher creates a Switcher with n virtual terminals of the given
// size, all initially rendering offscreen except vt 0.
func NewSwitcher(backend Backend, n, cols, rows int) *Switcher {
	s := &Switcher{backend: backend}
	for i := 0; i < n; i++ {
		s.vts = append(s.vts, New(cols, rows, &nullBackend{}))
	}
	if len(s.vts) > 0 {
		s.vts[0].backend = backend
		backend.UpdateRegion(0, 0, s.vts[0].grid)
	}
	return s
}

// Active returns the currently visible virtual terminal.
func (s *Switcher) Active() *Console {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vts[s.active]
}

// VT returns virtual terminal n regardless of which is active, so a
// background VT can still be written to.
func (s *Switcher) VT(n int) (*Console, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.vts) {
		return nil, errdefs.NotFound(errNoSuchVT)
	}
	return s.vts[n], nil
}

// Switch moves the shared backend's "active fb pointer" to vt n,
// repainting it in full from n's own grid.
func (s *Switcher) Switch(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.vts) {
		return errdefs.NotFound(errNoSuchVT)
	}
	s.vts[s.active].mu.Lock()
	s.vts[s.active].backend = &nullBackend{}
	s.vts[s.active].mu.Unlock()

	s.active = n
	vt := s.vts[n]
	vt.mu.Lock()
	vt.backend = s.backend
	vt.mu.Unlock()

	s.backend.UpdateRegion(0, 0, vt.grid)
	s.backend.UpdateCursor(vt.cx, vt.cy)
	s.backend.ShowCursor(vt.cursorVisible)
	return nil
}

// nullBackend discards everything; it is what an inactive VT renders
// into so its Console can keep running its parser and grid without a
// real framebuffer backing it.
type nullBackend struct{}

func (*nullBackend) UpdateRegion(x, y int, cells [][]Cell) {}
func (*nullBackend) ScrollUp(n int)                        {}
func (*nullBackend) ScrollDown(n int)                       {}
func (*nullBackend) UpdateCursor(x, y int)                  {}
func (*nullBackend) ShowCursor(v bool)                      {}

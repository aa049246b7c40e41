package console

// point is a screen-cell coordinate.
type point struct{ X, Y int }

// Selection tracks a mouse-drag highlight in screen-cell coordinates and
// the last completed selection's text, ready for paste (spec §4.8:
// "mouse-drag selection... remembers (start, end) in screen-cell
// coordinates and, on paste, injects the captured characters back
// through the read ring").
type Selection struct {
	dragging   bool
	start, end point
	text       string
}

// InputSink is the minimal surface Selection.Paste needs to reinject
// captured text — exactly tty.TTY.PushInput's signature, kept as a local
// interface so this package never has to import tty (console has no
// other reason to depend on it, and binding the concrete type is the
// kernel wiring layer's job, not this package's).
type InputSink interface {
	PushInput(p []byte) int
}

// BeginDrag starts a selection at the given cell.
func (c *Console) BeginDrag(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel = Selection{dragging: true, start: point{x, y}, end: point{x, y}}
}

// ExtendDrag moves the selection's current end point.
func (c *Console) ExtendDrag(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sel.dragging {
		return
	}
	c.sel.end = point{x, y}
}

// EndDrag finishes the drag and captures the selected text, row by row
// in reading order between start and end.
func (c *Console) EndDrag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel.dragging = false
	c.sel.text = c.captureLocked()
	return c.sel.text
}

func (c *Console) captureLocked() string {
	a, b := c.sel.start, c.sel.end
	if a.Y > b.Y || (a.Y == b.Y && a.X > b.X) {
		a, b = b, a
	}
	var out []byte
	for y := a.Y; y <= b.Y && y < c.Rows; y++ {
		from, to := 0, c.Cols
		if y == a.Y {
			from = a.X
		}
		if y == b.Y {
			to = b.X + 1
		}
		if from < 0 {
			from = 0
		}
		if to > c.Cols {
			to = c.Cols
		}
		for x := from; x < to; x++ {
			out = append(out, c.grid[y][x].Ch)
		}
		if y != b.Y {
			out = append(out, '\n')
		}
	}
	return string(out)
}

// Paste reinjects the last captured selection into sink's read ring, the
// way middle-click paste feeds a terminal's input exactly as if it had
// been typed.
func (c *Console) Paste(sink InputSink) int {
	c.mu.Lock()
	text := c.sel.text
	c.mu.Unlock()
	if text == "" || sink == nil {
		return 0
	}
	return sink.PushInput([]byte(text))
}

// Package console implements the ANSI terminal emulation of spec §4.8: a
// 5-state escape-sequence parser driving a polymorphic EGA-text/RGB-pixel
// framebuffer backend, plus mouse-drag selection and paste.
package console

import "sync"

// Console is one virtual terminal: an authoritative character grid (so
// selection/copy works the same regardless of which Backend is
// attached), cursor position, current SGR attribute, and a scroll
// region.
type Console struct {
	mu sync.Mutex

	Cols, Rows int
	grid       [][]Cell
	backend    Backend

	p parser

	cx, cy int
	attr   Attr

	scrollTop, scrollBottom int
	cursorVisible           bool

	sel Selection
}

// New creates a Console of the given size bound to backend, blanked with
// DefaultAttr.
func New(cols, rows int, backend Backend) *Console {
	c := &Console{
		Cols: cols, Rows: rows,
		backend:       backend,
		scrollTop:     0,
		scrollBottom:  rows - 1,
		attr:          DefaultAttr,
		cursorVisible: true,
	}
	c.grid = make([][]Cell, rows)
	for y := range c.grid {
		c.grid[y] = make([]Cell, cols)
		for x := range c.grid[y] {
			c.grid[y][x] = Cell{Ch: ' ', Attr: DefaultAttr}
		}
	}
	backend.UpdateRegion(0, 0, c.grid)
	return c
}

// Write feeds bytes through the ANSI parser, painting the grid and
// backend as commands are recognized (spec §4.8).
func (c *Console) Write(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range buf {
		c.p.feed(b, c)
	}
	return len(buf), nil
}

// Cell returns the character currently at (x, y), used by Selection.Copy.
func (c *Console) Cell(x, y int) (Cell, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if y < 0 || y >= c.Rows || x < 0 || x >= c.Cols {
		return Cell{}, false
	}
	return c.grid[y][x], true
}

func (c *Console) paint(x, y int, ch byte) {
	if y < 0 || y >= c.Rows || x < 0 || x >= c.Cols {
		return
	}
	c.grid[y][x] = Cell{Ch: ch, Attr: c.attr}
	c.backend.UpdateRegion(x, y, [][]Cell{{c.grid[y][x]}})
}

func (c *Console) moveCursor(x, y int) {
	if x < 0 {
		x = 0
	}
	if x >= c.Cols {
		x = c.Cols - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= c.Rows {
		y = c.Rows - 1
	}
	c.cx, c.cy = x, y
	c.backend.UpdateCursor(x, y)
}

// plain implements dispatch.plain: ordinary bytes outside an escape
// sequence advance the cursor, with \n/\r/\b handled the way a real
// console's raw output path does.
func (c *Console) plain(b byte) {
	switch b {
	case '\n':
		c.newline()
	case '\r':
		c.moveCursor(0, c.cy)
	case '\b':
		c.moveCursor(c.cx-1, c.cy)
	default:
		c.paint(c.cx, c.cy, b)
		if c.cx+1 >= c.Cols {
			c.newline()
		} else {
			c.moveCursor(c.cx+1, c.cy)
		}
	}
}

func (c *Console) newline() {
	if c.cy >= c.scrollBottom {
		c.scrollUp(1)
		c.moveCursor(0, c.cy)
		return
	}
	c.moveCursor(0, c.cy+1)
}

func (c *Console) scrollUp(n int) {
	top, bottom := c.scrollTop, c.scrollBottom
	for y := top; y <= bottom-n; y++ {
		c.grid[y] = c.grid[y+n]
	}
	for y := bottom - n + 1; y <= bottom; y++ {
		row := make([]Cell, c.Cols)
		for x := range row {
			row[x] = Cell{Ch: ' ', Attr: DefaultAttr}
		}
		c.grid[y] = row
	}
	c.backend.ScrollUp(n)
}

func (c *Console) scrollDown(n int) {
	top, bottom := c.scrollTop, c.scrollBottom
	for y := bottom; y >= top+n; y-- {
		c.grid[y] = c.grid[y-n]
	}
	for y := top; y < top+n; y++ {
		row := make([]Cell, c.Cols)
		for x := range row {
			row[x] = Cell{Ch: ' ', Attr: DefaultAttr}
		}
		c.grid[y] = row
	}
	c.backend.ScrollDown(n)
}

func par(pars []int, i, def int) int {
	if i >= len(pars) || pars[i] == 0 {
		return def
	}
	return pars[i]
}

// csi implements dispatch.csi: the terminal commands spec §4.8 names.
func (c *Console) csi(cmd byte, pars []int, question bool) {
	if question {
		c.csiPrivate(cmd, pars)
		return
	}
	switch cmd {
	case 'A':
		c.moveCursor(c.cx, c.cy-par(pars, 0, 1))
	case 'B':
		c.moveCursor(c.cx, c.cy+par(pars, 0, 1))
	case 'C':
		c.moveCursor(c.cx+par(pars, 0, 1), c.cy)
	case 'D':
		c.moveCursor(c.cx-par(pars, 0, 1), c.cy)
	case 'G':
		c.moveCursor(par(pars, 0, 1)-1, c.cy)
	case 'd':
		c.moveCursor(c.cx, par(pars, 0, 1)-1)
	case 'H':
		c.moveCursor(par(pars, 1, 1)-1, par(pars, 0, 1)-1)
	case 'J':
		c.eraseDisplay(par(pars, 0, 0))
	case 'K':
		c.eraseLine(par(pars, 0, 0))
	case 'P':
		c.deleteChars(par(pars, 0, 1))
	case 'm':
		c.sgr(pars)
	case 'r':
		top := par(pars, 0, 1) - 1
		bottom := par(pars, 1, c.Rows) - 1
		if top < 0 {
			top = 0
		}
		if bottom >= c.Rows {
			bottom = c.Rows - 1
		}
		if top < bottom {
			c.scrollTop, c.scrollBottom = top, bottom
		}
	}
}

func (c *Console) csiPrivate(cmd byte, pars []int) {
	if len(pars) == 0 || pars[0] != 25 {
		return
	}
	switch cmd {
	case 'h':
		c.cursorVisible = true
		c.backend.ShowCursor(true)
	case 'l':
		c.cursorVisible = false
		c.backend.ShowCursor(false)
	}
}

func (c *Console) eraseDisplay(mode int) {
	switch mode {
	case 0:
		c.eraseLine(0)
		for y := c.cy + 1; y < c.Rows; y++ {
			c.clearRow(y, 0, c.Cols)
		}
	case 1:
		c.eraseLine(1)
		for y := 0; y < c.cy; y++ {
			c.clearRow(y, 0, c.Cols)
		}
	case 2:
		for y := 0; y < c.Rows; y++ {
			c.clearRow(y, 0, c.Cols)
		}
	}
}

func (c *Console) eraseLine(mode int) {
	switch mode {
	case 0:
		c.clearRow(c.cy, c.cx, c.Cols)
	case 1:
		c.clearRow(c.cy, 0, c.cx+1)
	case 2:
		c.clearRow(c.cy, 0, c.Cols)
	}
}

func (c *Console) clearRow(y, from, to int) {
	if y < 0 || y >= c.Rows {
		return
	}
	for x := from; x < to && x < c.Cols; x++ {
		c.grid[y][x] = Cell{Ch: ' ', Attr: DefaultAttr}
	}
	end := to
	if end > c.Cols {
		end = c.Cols
	}
	c.backend.UpdateRegion(from, y, [][]Cell{c.grid[y][from:end]})
}

func (c *Console) deleteChars(n int) {
	row := c.grid[c.cy]
	for x := c.cx; x < c.Cols; x++ {
		if x+n < c.Cols {
			row[x] = row[x+n]
		} else {
			row[x] = Cell{Ch: ' ', Attr: DefaultAttr}
		}
	}
	c.backend.UpdateRegion(c.cx, c.cy, [][]Cell{row[c.cx:]})
}

// sgr applies Select Graphic Rendition parameters (spec §4.8: "0 reset, 1
// bold, 7 reverse, 27 unreverse, 30-37/40-47 color, 39/49 default").
func (c *Console) sgr(pars []int) {
	if len(pars) == 0 {
		pars = []int{0}
	}
	for _, p := range pars {
		switch {
		case p == 0:
			c.attr = DefaultAttr
		case p == 1:
			c.attr.Bold = true
		case p == 7:
			c.attr.Reverse = true
		case p == 27:
			c.attr.Reverse = false
		case p >= 30 && p <= 37:
			c.attr.Fg = uint8(p - 30)
		case p == 39:
			c.attr.Fg = DefaultAttr.Fg
		case p >= 40 && p <= 47:
			c.attr.Bg = uint8(p - 40)
		case p == 49:
			c.attr.Bg = DefaultAttr.Bg
		}
	}
}

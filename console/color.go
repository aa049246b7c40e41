package console

// Color is a hardware RGB value (spec §4.8: "color 0-7 map to a fixed
// ANSI->hardware palette; bright colors are 8-15").
type Color struct {
	R, G, B uint8
}

// Palette is the 16-entry ANSI->hardware color table. Indices 0-7 are the
// standard colors (SGR 30-37/40-47), 8-15 their bright counterparts (bold
// + the same base color, the traditional EGA/VGA text-mode convention).
var Palette = [16]Color{
	{0x00, 0x00, 0x00}, // black
	{0xaa, 0x00, 0x00}, // red
	{0x00, 0xaa, 0x00}, // green
	{0xaa, 0x55, 0x00}, // yellow/brown
	{0x00, 0x00, 0xaa}, // blue
	{0xaa, 0x00, 0xaa}, // magenta
	{0x00, 0xaa, 0xaa}, // cyan
	{0xaa, 0xaa, 0xaa}, // white (light grey)
	{0x55, 0x55, 0x55}, // bright black
	{0xff, 0x55, 0x55}, // bright red
	{0x55, 0xff, 0x55}, // bright green
	{0xff, 0xff, 0x55}, // bright yellow
	{0x55, 0x55, 0xff}, // bright blue
	{0xff, 0x55, 0xff}, // bright magenta
	{0x55, 0xff, 0xff}, // bright cyan
	{0xff, 0xff, 0xff}, // bright white
}

// Attr packs the EGA-style text attribute byte: low nibble foreground,
// high nibble background, plus the bold/reverse bits SGR toggles.
type Attr struct {
	Fg      uint8
	Bg      uint8
	Bold    bool
	Reverse bool
}

// DefaultAttr is light-grey on black, the traditional console reset state.
var DefaultAttr = Attr{Fg: 7, Bg: 0}

// resolved returns (fg, bg) after applying Bold (brightens fg by +8) and
// Reverse (swaps fg/bg) — the same resolution order a real VGA text
// console applies when painting a cell.
func (a Attr) resolved() (fg, bg uint8) {
	fg, bg = a.Fg, a.Bg
	if a.Bold && fg < 8 {
		fg += 8
	}
	if a.Reverse {
		fg, bg = bg, fg
	}
	return fg, bg
}

// EGAWord packs fg/bg/char into the 16-bit attr+char cell format EGA text
// mode framebuffers use.
func (a Attr) EGAWord(ch byte) uint16 {
	fg, bg := a.resolved()
	return uint16(bg&0xf)<<12 | uint16(fg&0xf)<<8 | uint16(ch)
}

package console

import "testing"

func TestPlainTextAdvancesCursorAndPaints(t *testing.T) {
	fb := NewEGABackend(10, 5)
	c := New(10, 5, fb)
	c.Write([]byte("AB"))

	cell, _ := c.Cell(0, 0)
	if cell.Ch != 'A' {
		t.Fatalf("cell(0,0) = %q", cell.Ch)
	}
	if c.cx != 2 || c.cy != 0 {
		t.Fatalf("cursor = %d,%d want 2,0", c.cx, c.cy)
	}
}

func TestNewlineScrollsAtBottomRow(t *testing.T) {
	fb := NewEGABackend(4, 2)
	c := New(4, 2, fb)
	c.Write([]byte("a\nb\nc"))

	cell, _ := c.Cell(0, 0)
	if cell.Ch != 'b' {
		t.Fatalf("row0 = %q, want 'b' (scrolled)", cell.Ch)
	}
	cell, _ = c.Cell(0, 1)
	if cell.Ch != 'c' {
		t.Fatalf("row1 = %q, want 'c'", cell.Ch)
	}
}

func TestCursorPositionCommand(t *testing.T) {
	fb := NewEGABackend(10, 10)
	c := New(10, 10, fb)
	c.Write([]byte("\x1b[3;5H"))
	if c.cx != 4 || c.cy != 2 {
		t.Fatalf("cursor = %d,%d want 4,2", c.cx, c.cy)
	}
}

func TestEraseLineWholeClearsRow(t *testing.T) {
	fb := NewEGABackend(6, 1)
	c := New(6, 1, fb)
	c.Write([]byte("hello"))
	c.Write([]byte("\x1b[2K"))
	cell, _ := c.Cell(0, 0)
	if cell.Ch != ' ' {
		t.Fatalf("cell(0,0) = %q, want blank", cell.Ch)
	}
}

func TestSGRColorAndBold(t *testing.T) {
	fb := NewEGABackend(5, 1)
	c := New(5, 1, fb)
	c.Write([]byte("\x1b[1;31mX"))
	cell, _ := c.Cell(0, 0)
	if !cell.Attr.Bold || cell.Attr.Fg != 1 {
		t.Fatalf("attr = %+v, want bold fg=1", cell.Attr)
	}
}

func TestSGRResetRestoresDefault(t *testing.T) {
	fb := NewEGABackend(5, 1)
	c := New(5, 1, fb)
	c.Write([]byte("\x1b[1;31m\x1b[0mX"))
	cell, _ := c.Cell(0, 0)
	if cell.Attr != DefaultAttr {
		t.Fatalf("attr = %+v, want default", cell.Attr)
	}
}

func TestCursorShowHide(t *testing.T) {
	fb := NewEGABackend(5, 1)
	c := New(5, 1, fb)
	c.Write([]byte("\x1b[?25l"))
	if fb.CursorOn {
		t.Fatal("expected cursor hidden")
	}
	c.Write([]byte("\x1b[?25h"))
	if !fb.CursorOn {
		t.Fatal("expected cursor shown")
	}
}

func TestDeleteCharsShiftsRowLeft(t *testing.T) {
	fb := NewEGABackend(6, 1)
	c := New(6, 1, fb)
	c.Write([]byte("abcde"))
	c.moveCursor(1, 0)
	c.csi('P', []int{2}, false)
	cell, _ := c.Cell(1, 0)
	if cell.Ch != 'd' {
		t.Fatalf("cell(1,0) = %q, want 'd'", cell.Ch)
	}
}

func TestScrollRegionLimitsNewlineScroll(t *testing.T) {
	fb := NewEGABackend(4, 4)
	c := New(4, 4, fb)
	c.Write([]byte("\x1b[1;2r")) // scroll region rows 1-2 (0-indexed 0-1)
	if c.scrollTop != 0 || c.scrollBottom != 1 {
		t.Fatalf("scroll region = %d,%d want 0,1", c.scrollTop, c.scrollBottom)
	}

	// A newline on the region's bottom row scrolls rows 0-1 only; row 3
	// (outside the region) keeps its content.
	c.Write([]byte("\x1b[4;1Hz\x1b[1;1Ha\nb\nc"))
	if cell, _ := c.Cell(0, 0); cell.Ch != 'b' {
		t.Fatalf("row0 = %q, want 'b' (scrolled within region)", cell.Ch)
	}
	if cell, _ := c.Cell(0, 1); cell.Ch != 'c' {
		t.Fatalf("row1 = %q, want 'c'", cell.Ch)
	}
	if cell, _ := c.Cell(0, 3); cell.Ch != 'z' {
		t.Fatalf("row3 = %q, want 'z' (outside region)", cell.Ch)
	}
}

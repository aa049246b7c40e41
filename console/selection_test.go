package console

import "testing"

type fakeSink struct {
	got []byte
}

func (f *fakeSink) PushInput(p []byte) int {
	f.got = append(f.got, p...)
	return len(p)
}

func TestDragCaptureSingleRow(t *testing.T) {
	fb := NewEGABackend(10, 3)
	c := New(10, 3, fb)
	c.Write([]byte("hello world"))

	c.BeginDrag(0, 0)
	c.ExtendDrag(4, 0)
	got := c.EndDrag()
	if got != "hello" {
		t.Fatalf("capture = %q, want %q", got, "hello")
	}
}

func TestDragCaptureMultiRow(t *testing.T) {
	fb := NewEGABackend(6, 3)
	c := New(6, 3, fb)
	c.Write([]byte("abcde"))
	c.Write([]byte("\x1b[2;1Hfghij"))

	c.BeginDrag(3, 0)
	c.ExtendDrag(1, 1)
	got := c.EndDrag()
	// Row 0's capture runs to the row's full width (6 cols, only 5
	// written), so it carries one trailing blank before the newline.
	if got != "de \nfg" {
		t.Fatalf("capture = %q, want %q", got, "de \nfg")
	}
}

func TestDragCaptureNormalizesReversedOrder(t *testing.T) {
	fb := NewEGABackend(11, 1)
	c := New(11, 1, fb)
	c.Write([]byte("0123456789"))

	c.BeginDrag(5, 0)
	c.ExtendDrag(2, 0)
	got := c.EndDrag()
	if got != "2345" {
		t.Fatalf("capture = %q, want %q (reversed drag normalized)", got, "2345")
	}
}

func TestPasteReinjectsThroughSink(t *testing.T) {
	fb := NewEGABackend(5, 1)
	c := New(5, 1, fb)
	c.Write([]byte("hi"))
	c.BeginDrag(0, 0)
	c.ExtendDrag(1, 0)
	c.EndDrag()

	var sink fakeSink
	n := c.Paste(&sink)
	if n != 2 || string(sink.got) != "hi" {
		t.Fatalf("paste = %d,%q want 2,%q", n, sink.got, "hi")
	}
}

func TestPasteWithNoSelectionIsNoop(t *testing.T) {
	fb := NewEGABackend(5, 1)
	c := New(5, 1, fb)
	var sink fakeSink
	if n := c.Paste(&sink); n != 0 {
		t.Fatalf("paste = %d, want 0", n)
	}
}

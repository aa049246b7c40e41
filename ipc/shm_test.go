package ipc

import (
	"testing"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
)

func TestShmAtReturnsSharedBackingSlice(t *testing.T) {
	n := NewNamespace(sched.New())
	id, err := n.ShmGet(IPCPrivate, 64, Perm{}, FlagCreat)
	if err != nil {
		t.Fatalf("ShmGet: %v", err)
	}

	a, err := n.ShmAt(id)
	if err != nil {
		t.Fatalf("ShmAt a: %v", err)
	}
	b, err := n.ShmAt(id)
	if err != nil {
		t.Fatalf("ShmAt b: %v", err)
	}

	a[0] = 0xAB
	if b[0] != 0xAB {
		t.Fatalf("second attachment did not observe write through the first, got %x", b[0])
	}

	_, _, nattch, err := n.ShmStat(id)
	if err != nil || nattch != 2 {
		t.Fatalf("ShmStat nattch = %d, %v, want 2", nattch, err)
	}
}

func TestShmRemoveWhileAttachedDefersDestruction(t *testing.T) {
	n := NewNamespace(sched.New())
	id, _ := n.ShmGet(IPCPrivate, 16, Perm{}, FlagCreat)
	if _, err := n.ShmAt(id); err != nil {
		t.Fatalf("ShmAt: %v", err)
	}

	if err := n.ShmRemove(id); err != nil {
		t.Fatalf("ShmRemove: %v", err)
	}
	// The still-attached segment must still answer ShmStat/ShmDt even
	// though its key is gone for new lookups.
	if _, _, _, err := n.ShmStat(id); err != nil {
		t.Fatalf("ShmStat on attached-but-removed segment: %v", err)
	}

	if err := n.ShmDt(id); err != nil {
		t.Fatalf("ShmDt: %v", err)
	}
	if _, _, _, err := n.ShmStat(id); !errdefs.IsNotFound(err) {
		t.Fatalf("ShmStat after last detach = %v, want NotFound (segment freed)", err)
	}
}

func TestShmGetSameKeyReturnsSameSegment(t *testing.T) {
	n := NewNamespace(sched.New())
	id1, err := n.ShmGet(99, 32, Perm{}, FlagCreat)
	if err != nil {
		t.Fatalf("ShmGet: %v", err)
	}
	id2, err := n.ShmGet(99, 32, Perm{}, FlagCreat)
	if err != nil {
		t.Fatalf("ShmGet again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("id1=%d id2=%d, want same id for same key", id1, id2)
	}
}

func TestShmGetOversizeRejected(t *testing.T) {
	n := NewNamespace(sched.New())
	if _, err := n.ShmGet(IPCPrivate, ShmMax+1, Perm{}, FlagCreat); !errdefs.IsInvalidParameter(err) {
		t.Fatalf("ShmGet oversize = %v, want InvalidParameter", err)
	}
}

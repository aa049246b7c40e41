package ipc

import (
	"testing"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
)

func TestMsgSendReceiveFIFOWithinType(t *testing.T) {
	n := NewNamespace(sched.New())
	id, err := n.MsgGet(42, Perm{UID: 1, Mode: 0o600}, FlagCreat)
	if err != nil {
		t.Fatalf("MsgGet: %v", err)
	}

	if err := n.MsgSend(id, 1, []byte("first"), 0); err != nil {
		t.Fatalf("MsgSend first: %v", err)
	}
	if err := n.MsgSend(id, 1, []byte("second"), 0); err != nil {
		t.Fatalf("MsgSend second: %v", err)
	}

	msg, err := n.MsgReceive(id, 1, MsgMax, 0, false)
	if err != nil {
		t.Fatalf("MsgReceive: %v", err)
	}
	if string(msg.Text) != "first" {
		t.Fatalf("got %q, want %q (FIFO within a type)", msg.Text, "first")
	}
}

func TestMsgGetSameKeyReturnsSameQueue(t *testing.T) {
	n := NewNamespace(sched.New())
	id1, err := n.MsgGet(7, Perm{}, FlagCreat)
	if err != nil {
		t.Fatalf("MsgGet: %v", err)
	}
	id2, err := n.MsgGet(7, Perm{}, FlagCreat)
	if err != nil {
		t.Fatalf("MsgGet again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("id1=%d id2=%d, want same id for same key", id1, id2)
	}
}

func TestMsgGetExclOnExistingKeyConflicts(t *testing.T) {
	n := NewNamespace(sched.New())
	if _, err := n.MsgGet(7, Perm{}, FlagCreat); err != nil {
		t.Fatalf("MsgGet: %v", err)
	}
	_, err := n.MsgGet(7, Perm{}, FlagCreat|FlagExcl)
	if !errdefs.IsConflict(err) {
		t.Fatalf("MsgGet with EXCL on existing key = %v, want Conflict", err)
	}
}

func TestMsgReceiveNoMatchIsUnavailableWithWaiters(t *testing.T) {
	n := NewNamespace(sched.New())
	id, _ := n.MsgGet(IPCPrivate, Perm{}, FlagCreat)

	_, err := n.MsgReceive(id, 5, MsgMax, 0, false)
	if !errdefs.IsUnavailable(err) {
		t.Fatalf("MsgReceive on empty queue = %v, want Unavailable", err)
	}
	waiters, err := n.MsgQueueWaiters(id)
	if err != nil || waiters == nil {
		t.Fatalf("MsgQueueWaiters: %v", err)
	}
}

func TestMsgReceiveLessEqualPrefersLowestType(t *testing.T) {
	n := NewNamespace(sched.New())
	id, _ := n.MsgGet(IPCPrivate, Perm{}, FlagCreat)

	n.MsgSend(id, 5, []byte("five"), 0)
	n.MsgSend(id, 2, []byte("two"), 0)
	n.MsgSend(id, 3, []byte("three"), 0)

	msg, err := n.MsgReceive(id, -4, MsgMax, 0, false)
	if err != nil {
		t.Fatalf("MsgReceive: %v", err)
	}
	if msg.Type != 2 {
		t.Fatalf("got type %d, want 2 (lowest type <= 4)", msg.Type)
	}
}

func TestMsgReceiveTooBigWithoutNoErrorFails(t *testing.T) {
	n := NewNamespace(sched.New())
	id, _ := n.MsgGet(IPCPrivate, Perm{}, FlagCreat)
	n.MsgSend(id, 1, []byte("0123456789"), 0)

	if _, err := n.MsgReceive(id, 1, 4, 0, false); !errdefs.IsInvalidParameter(err) {
		t.Fatalf("MsgReceive oversized = %v, want InvalidParameter", err)
	}

	msg, err := n.MsgReceive(id, 1, 4, 0, true)
	if err != nil {
		t.Fatalf("MsgReceive truncated: %v", err)
	}
	if string(msg.Text) != "0123" {
		t.Fatalf("truncated text = %q, want %q", msg.Text, "0123")
	}
}

func TestMsgRemoveInvalidatesOutstandingID(t *testing.T) {
	n := NewNamespace(sched.New())
	id, _ := n.MsgGet(IPCPrivate, Perm{}, FlagCreat)

	if err := n.MsgRemove(id); err != nil {
		t.Fatalf("MsgRemove: %v", err)
	}
	if err := n.MsgSend(id, 1, []byte("x"), 0); !errdefs.IsNotFound(err) {
		t.Fatalf("MsgSend after remove = %v, want NotFound", err)
	}
}

func TestMsgGetReusesSlotWithNewGeneration(t *testing.T) {
	n := NewNamespace(sched.New())
	old, _ := n.MsgGet(IPCPrivate, Perm{}, FlagCreat)
	n.MsgRemove(old)

	fresh, _ := n.MsgGet(IPCPrivate, Perm{}, FlagCreat)
	if fresh == old {
		t.Fatalf("fresh id %d reused old id verbatim, generation must differ", fresh)
	}
	if err := n.MsgSend(old, 1, []byte("x"), 0); !errdefs.IsNotFound(err) {
		t.Fatalf("MsgSend with stale id = %v, want NotFound", err)
	}
}

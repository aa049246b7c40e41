package skb

import (
	"bytes"
	"testing"

	"github.com/eric29200/nulix/errdefs"
)

func TestReserveThenPutPayload(t *testing.T) {
	s := New(64)
	if err := s.Reserve(20); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	copy(s.Put(5), []byte("hello"))
	if !bytes.Equal(s.Data(), []byte("hello")) {
		t.Fatalf("Data = %q, want %q", s.Data(), "hello")
	}
}

func TestPushBuildsHeadersInReverseOrder(t *testing.T) {
	s := New(64)
	if err := s.Reserve(40); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	copy(s.Put(4), []byte("PYLD"))

	transport, err := s.Push(4)
	if err != nil {
		t.Fatalf("Push transport: %v", err)
	}
	copy(transport, []byte("TCP0"))

	network, err := s.Push(4)
	if err != nil {
		t.Fatalf("Push network: %v", err)
	}
	copy(network, []byte("IPV4"))

	if !bytes.Equal(s.Data(), []byte("IPV4TCP0PYLD")) {
		t.Fatalf("Data = %q, want %q", s.Data(), "IPV4TCP0PYLD")
	}
}

func TestPushBeyondHeadroomFails(t *testing.T) {
	s := New(10)
	if err := s.Reserve(4); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := s.Push(5); !errdefs.IsInvalidParameter(err) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

func TestPullStripsHeaderFromHead(t *testing.T) {
	s := FromBytes([]byte("HDR:payload"))
	hdr, err := s.Pull(4)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if string(hdr) != "HDR:" {
		t.Fatalf("hdr = %q", hdr)
	}
	if string(s.Data()) != "payload" {
		t.Fatalf("Data = %q, want %q", s.Data(), "payload")
	}
}

func TestTrimShortensTail(t *testing.T) {
	s := FromBytes([]byte("0123456789"))
	s.Trim(4)
	if string(s.Data()) != "012345" {
		t.Fatalf("Data = %q", s.Data())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := FromBytes([]byte("abc"))
	c := s.Clone()
	c.Put(1)[0] = 'x'
	if string(s.Data()) == string(c.Data()) {
		t.Fatal("clone should not alias the original's backing array")
	}
}

func TestPutGrowsBackingArray(t *testing.T) {
	s := New(2)
	copy(s.Put(10), []byte("0123456789"))
	if string(s.Data()) != "0123456789" {
		t.Fatalf("Data = %q", s.Data())
	}
}

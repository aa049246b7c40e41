// Package blockdev implements block-driver registration and the request
// queue ll_rw_block appends to (spec §4.9).
package blockdev

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// Request is one queued block I/O.
type Request struct {
	Dev      uint32
	Block    uint64
	Size     int
	Write    bool
	Data     []byte // for writes, the bytes to store; for reads, filled in before Done
	done     chan error
}

// Driver is the per-major block-driver vtable (spec §4.9).
type Driver interface {
	Open(minor uint16) error
	Release(minor uint16) error
	// Do services one request synchronously (the repository's ATA driver
	// uses PIO; this models that as a direct call from the queue pump).
	Do(req *Request) error
}

// Table is the major-number -> driver registry plus per-device queues.
type Table struct {
	mu      sync.Mutex
	drivers map[uint16]Driver
	queues  map[uint32]chan *Request
	wg      sync.WaitGroup
	stop    chan struct{}
}

// NewTable creates an empty block-driver table.
func NewTable() *Table {
	return &Table{drivers: make(map[uint16]Driver), queues: make(map[uint32]chan *Request), stop: make(chan struct{})}
}

// Register installs the driver vtable for major.
func (t *Table) Register(major uint16, d Driver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drivers[major] = d
}

func devID(major, minor uint16) uint32 { return uint32(major)<<16 | uint32(minor) }

// ensureQueue lazily starts the pump goroutine for dev, which dequeues
// requests and calls the driver, one at a time (models a single-spindle
// block device with one outstanding request).
func (t *Table) ensureQueue(dev uint32, major uint16) chan *Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if q, ok := t.queues[dev]; ok {
		return q
	}
	q := make(chan *Request, 64)
	t.queues[dev] = q
	t.wg.Add(1)
	go t.pump(dev, major, q)
	return q
}

func (t *Table) pump(dev uint32, major uint16, q chan *Request) {
	defer t.wg.Done()
	t.mu.Lock()
	drv := t.drivers[major]
	t.mu.Unlock()
	for {
		select {
		case req, ok := <-q:
			if !ok {
				return
			}
			var err error
			if drv == nil {
				err = errdefs.NotImplemented(errNoDriver)
			} else {
				err = drv.Do(req)
			}
			req.done <- err
		case <-t.stop:
			return
		}
	}
}

// LLRWBlock appends req to dev's queue and blocks until the driver
// completes it (spec §4.9 ll_rw_block).
func (t *Table) LLRWBlock(major uint16, minor uint16, req *Request) error {
	req.done = make(chan error, 1)
	dev := devID(major, minor)
	q := t.ensureQueue(dev, major)
	select {
	case q <- req:
	default:
		return errdefs.Unavailable(errQueueFull)
	}
	return <-req.done
}

// ReadBlock implements buffercache.BlockReader by routing through the
// registered driver for dev's major number.
func (t *Table) ReadBlock(dev uint32, block uint64, size int) ([]byte, error) {
	major := uint16(dev >> 16)
	minor := uint16(dev)
	req := &Request{Dev: dev, Block: block, Size: size, Data: make([]byte, size)}
	if err := t.LLRWBlock(major, minor, req); err != nil {
		return nil, err
	}
	return req.Data, nil
}

// WriteBlock implements buffercache.BlockReader.
func (t *Table) WriteBlock(dev uint32, block uint64, data []byte) error {
	major := uint16(dev >> 16)
	minor := uint16(dev)
	req := &Request{Dev: dev, Block: block, Size: len(data), Write: true, Data: data}
	return t.LLRWBlock(major, minor, req)
}

// Shutdown stops every queue pump.
func (t *Table) Shutdown() {
	close(t.stop)
	t.wg.Wait()
}

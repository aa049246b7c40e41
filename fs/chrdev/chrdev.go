// Package chrdev implements character-driver (major,minor) registration
// (spec §4.9): open/release/read/write/ioctl dispatched by major number,
// matching fs/blockdev's shape for block drivers. Driver also declares
// Poll, but Table has no Poll dispatch, and there is no mmap operation.
package chrdev

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
)

// Driver is the per-major character-driver vtable.
type Driver interface {
	Open(minor uint16) (any, error) // returns a driver-private handle
	Release(minor uint16, handle any) error
	Read(minor uint16, handle any, buf []byte) (int, error)
	Write(minor uint16, handle any, buf []byte) (int, error)
	Ioctl(minor uint16, handle any, cmd uintptr, arg uintptr) (uintptr, error)
	Poll(minor uint16, handle any) (readable, writable bool)
}

// Table is the major-number -> driver registry.
type Table struct {
	mu      sync.Mutex
	drivers map[uint16]Driver
}

// NewTable creates an empty character-driver table.
func NewTable() *Table {
	return &Table{drivers: make(map[uint16]Driver)}
}

// Register installs the driver vtable for major.
func (t *Table) Register(major uint16, d Driver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drivers[major] = d
}

func (t *Table) driver(major uint16) (Driver, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.drivers[major]
	if !ok {
		return nil, errdefs.NotImplemented(errNoDriver)
	}
	return d, nil
}

// Open resolves major and opens minor, returning a driver-private handle.
func (t *Table) Open(major, minor uint16) (any, error) {
	d, err := t.driver(major)
	if err != nil {
		return nil, err
	}
	return d.Open(minor)
}

// Release resolves major and releases minor's handle.
func (t *Table) Release(major, minor uint16, handle any) error {
	d, err := t.driver(major)
	if err != nil {
		return err
	}
	return d.Release(minor, handle)
}

// Read resolves major and reads from minor's handle.
func (t *Table) Read(major, minor uint16, handle any, buf []byte) (int, error) {
	d, err := t.driver(major)
	if err != nil {
		return 0, err
	}
	return d.Read(minor, handle, buf)
}

// Write resolves major and writes to minor's handle.
func (t *Table) Write(major, minor uint16, handle any, buf []byte) (int, error) {
	d, err := t.driver(major)
	if err != nil {
		return 0, err
	}
	return d.Write(minor, handle, buf)
}

// Ioctl resolves major and issues an ioctl to minor's handle. Unknown
// commands should be reported by the driver as errdefs.NotImplemented
// (ENOIOCTLCMD, per spec §7).
func (t *Table) Ioctl(major, minor uint16, handle any, cmd, arg uintptr) (uintptr, error) {
	d, err := t.driver(major)
	if err != nil {
		return 0, err
	}
	return d.Ioctl(minor, handle, cmd, arg)
}

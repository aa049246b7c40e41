// Package kernel wires every subsystem package into one bootable runtime:
// physical/virtual memory, the scheduler and process table, the VFS with
// its concrete filesystems, the console/tty layer, the network stack, and
// System V IPC. One struct holds a handle to each subsystem, assembled by
// Boot in the dependency order each subsystem requires.
package kernel

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/eric29200/nulix/mm/phys"
	"github.com/pelletier/go-toml"
)

// BootConfig is the boot-time configuration surface, loaded from a TOML
// file and overridable by cmd/kmain's flags: file first, then flags win.
type BootConfig struct {
	Mem   MemConfig   `toml:"mem"`
	Root  RootConfig  `toml:"root"`
	Net   NetConfig   `toml:"net"`
	Procs ProcsConfig `toml:"process"`
}

// MemConfig sizes the physical allocator. NormalSize/HighSize accept
// human-readable sizes ("64MiB", "8MiB") parsed with go-units rather than
// requiring the caller to pre-compute a frame count.
type MemConfig struct {
	NormalSize string `toml:"normal_size"`
	HighSize   string `toml:"high_size"`
}

// RootConfig selects and locates the root filesystem mounted at boot.
type RootConfig struct {
	FSType string `toml:"fstype"` // "tmpfs", "minix", "ext2", or "isofs"
	Device string `toml:"device"` // decimal major of a driver registered in fs/blockdev (minor 0), ignored for tmpfs
}

// NetConfig configures the single network interface this runtime brings
// up at boot; multi-homing is out of scope.
type NetConfig struct {
	Interface string `toml:"interface"`
	Address   string `toml:"address"` // dotted-quad, e.g. "10.0.2.15"
	Gateway   string `toml:"gateway"`
}

// ProcsConfig bounds per-task resource defaults.
type ProcsConfig struct {
	FDLimit int `toml:"fd_limit"`
}

// DefaultConfig returns the configuration used when no TOML file is
// supplied, sized for the kind of small VM this runtime targets.
func DefaultConfig() BootConfig {
	return BootConfig{
		Mem: MemConfig{NormalSize: "32MiB", HighSize: "0MiB"},
		Root: RootConfig{
			FSType: "tmpfs",
		},
		Net: NetConfig{
			Interface: "eth0",
			Address:   "10.0.2.15",
			Gateway:   "10.0.2.2",
		},
		Procs: ProcsConfig{FDLimit: 256},
	}
}

// LoadConfig reads and parses a TOML boot configuration file, starting
// from DefaultConfig so an unspecified table inherits its defaults.
func LoadConfig(path string) (BootConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("kernel: read boot config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("kernel: parse boot config: %w", err)
	}
	return cfg, nil
}

// normalFrames returns the number of 4 KiB frames MemConfig.NormalSize
// describes.
func (c MemConfig) normalFrames() (int, error) {
	return framesOf(c.NormalSize)
}

func (c MemConfig) highFrames() (int, error) {
	return framesOf(c.HighSize)
}

func framesOf(size string) (int, error) {
	if size == "" {
		return 0, nil
	}
	bytes, err := units.RAMInBytes(size)
	if err != nil {
		return 0, fmt.Errorf("kernel: invalid size %q: %w", size, err)
	}
	return int(bytes / phys.PageSize), nil
}

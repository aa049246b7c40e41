// Command kmain is the boot entrypoint: it loads a TOML boot
// configuration (overridable by flags), wires every kernel subsystem
// together, and runs the scheduler loop until a task calls reboot(2) or
// the process receives SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/eric29200/nulix/kernel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// sizeValue is a pflag.Value accepting human-readable sizes ("64MiB") and
// validating them with go-units at flag-parse time rather than at boot
// time, so a typo surfaces as a usage error instead of a boot failure.
type sizeValue struct{ s *string }

func (v sizeValue) String() string { return *v.s }
func (v sizeValue) Type() string   { return "size" }
func (v sizeValue) Set(s string) error {
	if _, err := units.RAMInBytes(s); err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	*v.s = s
	return nil
}

var _ pflag.Value = sizeValue{}

type bootFlags struct {
	configPath string

	memNormal string
	memHigh   string

	rootFSType string
	rootDevice string

	netInterface string
	netAddress   string
	netGateway   string

	fdLimit int

	tickInterval time.Duration
}

func main() {
	var f bootFlags

	root := &cobra.Command{
		Use:   "kmain",
		Short: "Boot the nulix kernel runtime",
		Long: `kmain loads boot configuration from a TOML file (--config), applies any
flag overrides, wires up memory, the VFS, the scheduler, the network
stack, and the console, then runs the scheduler loop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.Flags().StringVar(&f.configPath, "config", "", "path to a TOML boot configuration file (defaults baked in if omitted)")
	root.Flags().Var(sizeValue{&f.memNormal}, "mem-normal", "override [mem].normal_size, e.g. 64MiB")
	root.Flags().Var(sizeValue{&f.memHigh}, "mem-high", "override [mem].high_size")
	root.Flags().StringVar(&f.rootFSType, "root-fstype", "", "override [root].fstype (tmpfs, minix, ext2, isofs)")
	root.Flags().StringVar(&f.rootDevice, "root-device", "", "override [root].device")
	root.Flags().StringVar(&f.netInterface, "net-interface", "", "override [net].interface")
	root.Flags().StringVar(&f.netAddress, "net-address", "", "override [net].address")
	root.Flags().StringVar(&f.netGateway, "net-gateway", "", "override [net].gateway")
	root.Flags().IntVar(&f.fdLimit, "fd-limit", 0, "override [process].fd_limit")
	root.Flags().DurationVar(&f.tickInterval, "tick", 10*time.Millisecond, "scheduler tick interval")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kmain:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f bootFlags) error {
	cfg := kernel.DefaultConfig()
	if f.configPath != "" {
		loaded, err := kernel.LoadConfig(f.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyOverrides(&cfg, f)

	k := kernel.New(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := k.Boot(ctx); err != nil {
		return fmt.Errorf("kmain: boot failed: %w", err)
	}

	reg := prometheus.NewRegistry()
	if err := k.RegisterMetrics(reg); err != nil {
		return fmt.Errorf("kmain: register metrics: %w", err)
	}

	return runLoop(ctx, k, f.tickInterval)
}

// applyOverrides layers non-empty flag values over the loaded config:
// file first, then flags win.
func applyOverrides(cfg *kernel.BootConfig, f bootFlags) {
	if f.memNormal != "" {
		cfg.Mem.NormalSize = f.memNormal
	}
	if f.memHigh != "" {
		cfg.Mem.HighSize = f.memHigh
	}
	if f.rootFSType != "" {
		cfg.Root.FSType = f.rootFSType
	}
	if f.rootDevice != "" {
		cfg.Root.Device = f.rootDevice
	}
	if f.netInterface != "" {
		cfg.Net.Interface = f.netInterface
	}
	if f.netAddress != "" {
		cfg.Net.Address = f.netAddress
	}
	if f.netGateway != "" {
		cfg.Net.Gateway = f.netGateway
	}
	if f.fdLimit != 0 {
		cfg.Procs.FDLimit = f.fdLimit
	}
}

// runLoop drives the scheduler's timer wheel at tick granularity until
// reboot(2) is called on k or ctx is cancelled (SIGINT/SIGTERM).
func runLoop(ctx context.Context, k *kernel.Kernel, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			k.Sched.Tick(1)
			if _, down := k.ShutdownRequested(); down {
				return nil
			}
		}
	}
}

// Command pataprobe is a bring-up tool: it raises the calling process's
// I/O privilege level via iopl(3) and runs a read-only probe of the
// four legacy PATA/ATAPI channel positions against real hardware,
// printing what it finds.
//
// It exists to exercise internal/port.Hardware and the controller
// package's Probe against an actual PCI IDE controller, the way the
// teacher's cmd/tamago tool exercised board bring-up against real
// silicon.
package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/tamago-contrib/pataide/controller"
	"github.com/tamago-contrib/pataide/internal/port"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pataprobe:", err)
		os.Exit(1)
	}
}

func run() error {
	// iopl(3) grants the process unrestricted port I/O privilege; this
	// is the userspace escape hatch real bring-up tools use instead of
	// loading a kernel module, and it requires CAP_SYS_RAWIO.
	if err := unix.Iopl(3); err != nil {
		return fmt.Errorf("iopl(3): %w (are you root?)", err)
	}

	c := controller.New(port.Hardware{})
	if err := c.Probe(); err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	if len(c.Devices) == 0 {
		fmt.Println("no PATA/ATAPI devices found")
		return nil
	}

	for _, dev := range c.Devices {
		fmt.Printf("%s\tlength=%d\n", dev.Name, dev.Length())
	}

	return nil
}

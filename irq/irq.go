// Package irq provides the IRQ subsystem collaborator spec.md §1 treats
// as external: a way to route the two legacy IDE interrupt lines (14,
// 15) to handlers, and a single-slot wakeup primitive for the ATAPI
// packet protocol (spec.md §4.D "IRQ handlers", §9 "condition-variable
// idiom").
//
// The IOAPIC routing piece is adapted from usbarmory/tamago's
// soc/intel/ioapic driver; the wakeup piece replaces spec.md's global
// atapi_in_progress flag with a per-channel Waiter, per spec.md §9's
// suggested redesign ("a per-channel completion object signaled by the
// IRQ handler and awaited by the caller; the global flag disappears").
package irq

import (
	"github.com/tamago-contrib/pataide/internal/bits"
	"github.com/tamago-contrib/pataide/internal/port"
)

// I/O APIC registers (spec.md treats the controller itself as an
// external collaborator; this is the default concrete implementation).
const (
	regSel = 0x00
	regWin = 0x10

	redirTableBase = 0x10
)

// Controller is an I/O APIC instance used to unmask and route the
// legacy ATA interrupt lines (14 and 15) to CPU interrupt vectors.
type Controller struct {
	Port port.Port
	Base uint32
}

func (c *Controller) read(reg uint32) uint32 {
	c.Port.Out32(uint16(c.Base+regSel), reg)
	return c.Port.In32(uint16(c.Base + regWin))
}

func (c *Controller) write(reg uint32, val uint32) {
	c.Port.Out32(uint16(c.Base+regSel), reg)
	c.Port.Out32(uint16(c.Base+regWin), val)
}

// Enable routes IRQ line (a Global System Interrupt index, 14 or 15 for
// the legacy IDE channels) to the given interrupt vector, unmasked, in
// physical destination mode to the bootstrap processor.
func (c *Controller) Enable(line int, vector uint8) {
	var low uint32
	low = bits.Set(low, 0, 0xff, uint32(vector))
	// bit 16 is the mask bit; leave clear to unmask.

	c.write(redirTableBase+uint32(line)*2, low)
	c.write(redirTableBase+uint32(line)*2+1, 0)
}

// Waiter is a single-slot "one caller, one wakeup" synchronization
// point, used by the ATAPI transport between issuing a PACKET command
// and the data phase (spec.md §4.D step 5, §5 "Suspension points").
//
// Exactly one goroutine may be waiting at a time; this is enforced by
// controller.Controller, which routes every published ATAPI node's
// ReadSector through a locked wrapper that holds the global transaction
// lock across the whole call, including the Arm/Wait pair.
type Waiter struct {
	ch chan struct{}
}

// NewWaiter returns a ready-to-use Waiter.
func NewWaiter() *Waiter {
	return &Waiter{ch: make(chan struct{}, 1)}
}

// Arm prepares the Waiter to receive the next Signal, discarding any
// stale pending signal from a previous, unrelated transfer.
func (w *Waiter) Arm() {
	select {
	case <-w.ch:
	default:
	}
}

// Wait blocks until Signal is called.
func (w *Waiter) Wait() {
	<-w.ch
}

// Signal wakes a goroutine blocked in Wait, or leaves a signal pending
// if none is currently waiting. Called from the IRQ handler.
func (w *Waiter) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

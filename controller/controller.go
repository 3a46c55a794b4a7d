// Package controller implements the driver's lifecycle and global
// runtime state: probing the four legacy PATA/ATAPI channel positions,
// classifying each, and publishing a block.Device node for each drive
// found (spec.md §4.F, §9 "global mutable state → explicit driver
// context").
//
// Where the source this spec distills from kept this state as module
// globals, Controller threads it through a single value instead, so a
// test can construct one against a fake port.Port without touching
// process-wide state (spec.md §9).
package controller

import (
	"fmt"
	"sync"

	"github.com/tamago-contrib/pataide/ata"
	"github.com/tamago-contrib/pataide/atapi"
	"github.com/tamago-contrib/pataide/block"
	"github.com/tamago-contrib/pataide/dmabuf"
	"github.com/tamago-contrib/pataide/internal/port"
	"github.com/tamago-contrib/pataide/irq"
	"github.com/tamago-contrib/pataide/pci"
)

// PCI identity of the legacy IDE controller this driver targets
// (spec.md §3, §6): Intel PIIX/PIIX3.
const pciVendorIntel = 0x8086

var pciDeviceIDs = []uint16{0x7010, 0x7111}

// channel describes one of the two canonical legacy IDE channels
// (spec.md §3).
type channel struct {
	ioBase   uint16
	control  uint16
	irqLine  int
	bmOffset uint16
}

var channels = [2]channel{
	{ioBase: 0x1F0, control: 0x3F6, irqLine: 14, bmOffset: 0}, // primary
	{ioBase: 0x170, control: 0x376, irqLine: 15, bmOffset: 8}, // secondary
}

// dmaPhysBase and dmaRegionSize bound the fixed physical range the DMA
// allocator hands out from (spec.md §1 "DMA-capable physical memory
// allocator" is an external collaborator; this is its default wiring
// for a single controller instance).
const (
	dmaPhysBase   = 0x00100000
	dmaRegionSize = 1 << 20
)

// ioapicBase is the default memory-mapped... here, port-mapped stand-in
// base this driver's I/O APIC collaborator is wired at. Real platforms
// discover this via ACPI; out of scope here (spec.md §1).
const ioapicBase = 0xFEC00000

// Controller holds every piece of process-global state the original
// design kept as module statics (spec.md §3 "Global state"): the
// transaction lock, the PCI address, the I/O APIC routing, and the
// /dev/hd<letter> / /dev/cdrom<n> naming counters. It keeps no wait
// queue of its own: probePosition gives each ATAPI device its own
// irq.Waiter.
type Controller struct {
	// Lock serializes every hardware transaction across all four
	// devices (spec.md §5 "a single process-global spinlock").
	Lock sync.Mutex

	Port   port.Port
	PCI    *pci.Device
	IOAPIC *irq.Controller

	hdCounter    int
	cdromCounter int

	Devices []*block.Device
}

// New constructs a Controller bound to the given register access
// primitive (spec.md §4.A); p is typically port.Hardware{} on real
// hardware or a porttest fake in tests.
func New(p port.Port) *Controller {
	return &Controller{
		Port:   p,
		IOAPIC: &irq.Controller{Port: p, Base: ioapicBase},
	}
}

func (c *Controller) nextHDName() string {
	name := fmt.Sprintf("/dev/hd%c", 'a'+c.hdCounter)
	c.hdCounter++
	return name
}

func (c *Controller) nextCDROMName() string {
	name := fmt.Sprintf("/dev/cdrom%d", c.cdromCounter)
	c.cdromCounter++
	return name
}

// Probe scans the PCI bus for the IDE controller, installs the two
// legacy IRQ routes, and probes all four (channel, position) pairs,
// publishing a block.Device for every drive found (spec.md §4.F
// "Module init").
//
// Unknown or absent signatures are skipped; a Probe that finds nothing
// is not an error (spec.md §7 "Absent device: skipped silently").
func (c *Controller) Probe() error {
	found := pci.Scan(c.Port, pciVendorIntel, pciDeviceIDs...)
	if len(found) == 0 {
		return fmt.Errorf("controller: no PIIX/PIIX3 IDE controller found on PCI bus")
	}
	c.PCI = found[0]

	c.IOAPIC.Enable(14, 0x20+14)
	c.IOAPIC.Enable(15, 0x20+15)

	alloc := dmabuf.NewRegion(dmaPhysBase, dmaRegionSize)

	for _, ch := range channels {
		for _, slave := range [2]bool{false, true} {
			if err := c.probePosition(ch, slave, alloc); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *Controller) probePosition(ch channel, slave bool, alloc *dmabuf.Region) error {
	dev := &ata.Device{
		Port:    c.Port,
		IOBase:  ch.ioBase,
		Control: ch.control,
		Slave:   slave,
	}

	sig, identifyErr := dev.Identify()
	switch sig {
	case ata.SigAbsent:
		return nil // spec.md §7: skipped silently
	case ata.SigUnknown:
		return nil // spec.md §7: logged, skipped (logging is out of core scope)
	}
	if identifyErr != nil {
		return nil
	}

	switch sig {
	case ata.SigPATA:
		if err := dev.InitDMA(c.PCI, ch.bmOffset, alloc); err != nil {
			return fmt.Errorf("controller: DMA init: %w", err)
		}

		node := &block.Device{
			Sectors: &lockedReadWriter{lockedReader: lockedReader{mu: &c.Lock, next: dev}, writer: dev},
			Name:    c.nextHDName(),
			Flags:   block.FlagBlockDevice,
			Mask:    0660,
		}
		c.Devices = append(c.Devices, node)

	case ata.SigATAPI:
		waiter := irq.NewWaiter()
		adev := &atapi.Device{
			Port:    c.Port,
			IOBase:  ch.ioBase,
			Control: ch.control,
			Slave:   slave,
			IRQ:     waiter,
		}

		if err := adev.ProbeCapacity(); err != nil && err != atapi.ErrNoMedium {
			return fmt.Errorf("controller: ATAPI capacity probe: %w", err)
		}

		node := &block.Device{
			Sectors: &lockedReader{mu: &c.Lock, next: adev},
			Name:    c.nextCDROMName(),
			Flags:   block.FlagBlockDevice,
			Mask:    0660,
		}
		c.Devices = append(c.Devices, node)
	}

	return nil
}

// lockedReader wraps a transport's block.Sectors capability so every
// ReadSector call is serialized under the controller-wide transaction
// lock (spec.md §3 "a single spinlock", §5 "two concurrent callers
// issuing transfers serialize ... never interleaved mid-command").
//
// This is also what makes irq.Waiter's single-slot Arm/Wait protocol
// safe for ATAPI transports: Arm and Wait both run while mu is held, so
// a second caller can't observe the device mid-command and steal or
// stomp on a pending Signal.
type lockedReader struct {
	mu   *sync.Mutex
	next block.Sectors
}

func (l *lockedReader) SectorSize() int     { return l.next.SectorSize() }
func (l *lockedReader) SectorCount() uint64 { return l.next.SectorCount() }

func (l *lockedReader) ReadSector(lba uint64, dst []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.ReadSector(lba, dst)
}

// lockedReadWriter adds locked write support for PATA transports.
type lockedReadWriter struct {
	lockedReader
	writer block.Writer
}

func (l *lockedReadWriter) WriteSector(lba uint64, src []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer.WriteSector(lba, src)
}

package ata

import (
	"fmt"

	"github.com/tamago-contrib/pataide/dmabuf"
	"github.com/tamago-contrib/pataide/pci"
)

// prdtEOT marks the last (and here, only) entry of a Physical Region
// Descriptor Table (spec.md §3 "DMA region").
const prdtEOT = 0x8000

// InitDMA allocates the PRDT and DMA buffer for this device and wires
// up the channel's Bus-Master base from the controller's PCI BAR4
// (spec.md §4.B "DMA init (PATA only)"). bmOffset selects which
// channel's 8-byte Bus-Master register block within BAR4 this device
// uses: 0 for the primary channel, 8 for the secondary (the PIIX/PIIX3
// layout spec.md §6 describes one BAR4 shared by both channels).
//
// If BAR4 is memory-mapped rather than I/O-space, DMA is left disabled
// for this device (d.DMA stays nil, d.BusMasterBase stays 0) and the
// caller must fall back to PIO — spec.md §9 flags the original driver's
// failure to do this as a bug; this implementation refuses to arm DMA
// rather than issue Bus-Master commands to a garbage port.
func (d *Device) InitDMA(dev *pci.Device, bmOffset uint16, alloc *dmabuf.Region) error {
	bar4 := dev.BAR(4)
	if !pci.IsIOBAR(bar4) {
		d.BusMasterBase = 0
		d.DMA = nil
		return nil
	}

	prdtVirt, prdtPhys, err := alloc.Alloc(8, 4)
	if err != nil {
		return fmt.Errorf("ata: allocate PRDT: %w", err)
	}

	bufVirt, bufPhys, err := alloc.Alloc(4096, 4096)
	if err != nil {
		return fmt.Errorf("ata: allocate DMA buffer: %w", err)
	}

	putPRDTEntry(prdtVirt, bufPhys, SectorSize, prdtEOT)

	dev.EnableBusMaster()

	d.BusMasterBase = pci.IOBase(bar4) + bmOffset
	d.DMA = &dmaRegion{
		alloc:    alloc,
		prdtAddr: prdtPhys,
		prdtVirt: prdtVirt,
		bufAddr:  bufPhys,
		bufVirt:  bufVirt,
	}

	return nil
}

// putPRDTEntry fills a single 8-byte PRDT entry: 4-byte physical
// address, 2-byte byte count, 2-byte flags (bit 15 end-of-table).
func putPRDTEntry(entry []byte, addr uint32, count uint16, flags uint16) {
	entry[0] = byte(addr)
	entry[1] = byte(addr >> 8)
	entry[2] = byte(addr >> 16)
	entry[3] = byte(addr >> 24)
	entry[4] = byte(count)
	entry[5] = byte(count >> 8)
	entry[6] = byte(flags)
	entry[7] = byte(flags >> 8)
}

// ReadSectorDMA reads one 512-byte sector via Bus-Master DMA (spec.md
// §4.C "Read one sector (DMA path)"). The caller must hold the global
// transaction lock (controller.Controller enforces this by routing
// every published node's transfers through a locked wrapper).
func (d *Device) ReadSectorDMA(lba uint64, dst []byte) error {
	if d.DMA == nil {
		return fmt.Errorf("ata: DMA not available on this device")
	}
	if len(dst) != SectorSize {
		return fmt.Errorf("ata: DMA read buffer must be %d bytes, got %d", SectorSize, len(dst))
	}

	bm := d.BusMasterBase

	d.Port.Out8(bm+bmCommand, 0)
	d.Port.Out32(bm+bmPRDT, d.DMA.prdtAddr)
	d.Port.Out8(bm+bmStatus, bmStatusErrAck)

	// arm for read (direction bit set, not yet started)
	d.Port.Out8(bm+bmCommand, bmCmdRWCon)

	if err := d.waitBusyClear(0); err != nil {
		return err
	}

	d.setLBA48(lba, 0x40|d.selectByte())
	d.stall()

	d.Port.Out8(d.IOBase+regFeatures, 0)
	d.Port.Out8(d.IOBase+regSeccount0, 1)

	if err := waitBusyClearAndReady(d); err != nil {
		return err
	}

	d.Port.Out8(d.IOBase+regCommand, CmdReadDMA)
	d.stall()

	// start bus master, keeping the read direction bit set
	d.Port.Out8(bm+bmCommand, bmCmdRWCon|bmCmdStart)

	for {
		bmStat := d.Port.In8(bm + bmStatus)
		if bmStat&bmStatusIRQ != 0 && d.status()&StatusBSY == 0 {
			break
		}
	}

	copy(dst, d.DMA.bufVirt[:SectorSize])
	d.Port.Out8(bm+bmStatus, bmStatusErrAck)

	return nil
}

// MaxReadRetryAttempts bounds the sector-read retry loop: it is the
// total number of attempts, the first one included. spec.md §9
// flags the original's disabled (#if 0) read retry as a bug ("omits
// retry on error ... An implementation should reinstate a bounded
// retry and surface failure"); this reinstates it bounded, the same way
// WriteSectorVerified bounds its own retry.
const MaxReadRetryAttempts = 4

// ReadSector reads one sector via DMA when available, falling back to
// PIO otherwise (spec.md §9 BAR4 fallback), making up to
// MaxReadRetryAttempts attempts in all before surfacing the last error.
func (d *Device) ReadSector(lba uint64, dst []byte) error {
	var err error
	for attempt := 0; attempt < MaxReadRetryAttempts; attempt++ {
		if d.DMA != nil {
			err = d.ReadSectorDMA(lba, dst)
		} else {
			err = d.ReadSectorPIO(lba, dst)
		}
		if err == nil {
			return nil
		}
	}
	return err
}

package ata

import "github.com/tamago-contrib/pataide/dmabuf"

// PutPRDTEntryForTest exposes putPRDTEntry to the ata_test package.
func PutPRDTEntryForTest(entry []byte, addr uint32, count uint16, flags uint16) {
	putPRDTEntry(entry, addr, count, flags)
}

// SetDMAForTest wires a Device's DMA region directly, standing in for
// InitDMA in tests that don't want to emulate PCI config space.
func SetDMAForTest(d *Device, alloc *dmabuf.Region, prdtPhys uint32, prdtVirt []byte, bufPhys uint32, bufVirt []byte) {
	d.DMA = &dmaRegion{
		alloc:    alloc,
		prdtAddr: prdtPhys,
		prdtVirt: prdtVirt,
		bufAddr:  bufPhys,
		bufVirt:  bufVirt,
	}
}

package ata

// SectorSize satisfies block.Sectors.
func (d *Device) SectorSize() int {
	return SectorSize
}

// SectorCount satisfies block.Sectors, preferring the 48-bit capacity
// field per the data model invariant (spec.md §3).
func (d *Device) SectorCount() uint64 {
	return d.Identity.Capacity()
}

// WriteSector satisfies block.Writer, backing it with the write-verify
// contract (spec.md §3 "write ... is not observed complete until a
// following read ... returns bitwise-identical data").
func (d *Device) WriteSector(lba uint64, src []byte) error {
	return d.WriteSectorVerified(lba, src)
}

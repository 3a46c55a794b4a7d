// Package block implements the byte-range adapter (spec.md §4.E) and
// the block device capability contract a VFS node consumes (spec.md
// §6). It turns arbitrary byte-range read/write requests into whole-
// sector transfers, with read-modify-write handling for an unaligned
// prefix and postfix sector.
//
// The VFS node abstraction itself is out of scope (spec.md §1); Device
// is the small capability interface this package asks a caller to
// implement, one per transport (see the ata and atapi packages), modeled
// on periph.io's habit of specifying hardware capability as a narrow
// interface (conn.Resource, gpio.PinIO) rather than a concrete type.
package block

import "fmt"

// Sectors is the capability a byte-range adapter needs from a
// transport: read exactly one whole sector at the given LBA. Writes are
// the separate Writer capability; for a transport that does not
// implement Writer (ATAPI), Device.Write returns ErrReadOnly.
type Sectors interface {
	// SectorSize is the size in bytes of one sector on this device.
	SectorSize() int
	// SectorCount is the device's total addressable sector count.
	SectorCount() uint64
	// ReadSector reads exactly SectorSize() bytes at lba into dst.
	ReadSector(lba uint64, dst []byte) error
}

// Writer is implemented by transports that support sector writes
// (hard disks). ATAPI nodes do not implement it (spec.md §6 "ATAPI
// nodes return failure/no-op").
type Writer interface {
	WriteSector(lba uint64, src []byte) error
}

// ErrReadOnly is returned by Device.Write for a transport with no
// Writer capability.
var ErrReadOnly = fmt.Errorf("block: device does not support writes")

// FlagBlockDevice is the flags value every node this package publishes
// carries (spec.md §6 "flags = BLOCK_DEVICE").
const FlagBlockDevice uint32 = 1 << 0

// Device adapts a Sectors transport into the byte-addressable read/write
// contract a VFS node exposes (spec.md §6).
type Device struct {
	Sectors Sectors

	// Name, Flags, Mask, UID, GID mirror the node attributes spec.md
	// §6 requires a VFS node to publish.
	Name  string
	Flags uint32
	Mask  uint16
	UID   uint32
	GID   uint32
}

// Length returns the device's capacity in bytes, the `length` attribute
// spec.md §6 requires.
func (dv *Device) Length() uint64 {
	return dv.Sectors.SectorCount() * uint64(dv.Sectors.SectorSize())
}

// Open is a no-op (spec.md §6).
func (dv *Device) Open() error { return nil }

// Close is a no-op (spec.md §6).
func (dv *Device) Close() error { return nil }

// Read transfers size bytes starting at offset into buf, clamping at
// device capacity (spec.md §4.E, §6). It returns the number of bytes
// actually transferred.
func (dv *Device) Read(offset uint64, size int, buf []byte) (int, error) {
	return transferRange(dv.Sectors, offset, size, buf, false)
}

// Write transfers size bytes from buf to the device starting at offset,
// clamping at device capacity. Devices without write support return
// ErrReadOnly (spec.md §6 "ATAPI nodes return failure/no-op").
func (dv *Device) Write(offset uint64, size int, buf []byte) (int, error) {
	if _, ok := dv.Sectors.(Writer); !ok {
		return 0, ErrReadOnly
	}
	return transferRange(dv.Sectors, offset, size, buf, true)
}

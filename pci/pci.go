// Package pci implements the PCI configuration space access and bus
// scan spec.md §1 calls out as an external collaborator ("the PCI bus
// scanner"), adapted from usbarmory/tamago's soc/intel/pci driver
// (mechanism #1, CONFIG_ADDRESS/CONFIG_DATA port pair) to run over the
// port.Port seam instead of tamago's memory-mapped register helpers.
package pci

import "github.com/tamago-contrib/pataide/internal/port"

// Configuration mechanism #1 I/O ports.
const (
	ConfigAddress = 0x0CF8
	ConfigData    = 0x0CFC
)

const (
	maxBuses   = 1
	maxDevices = 32
	maxFuncs   = 8
)

// Header type 0x0 configuration space offsets.
const (
	offVendorID = 0x00
	offCommand  = 0x04
	offBAR0     = 0x10
)

// Command register bits.
const (
	CommandIOSpace     uint16 = 1 << 0
	CommandBusMaster   uint16 = 1 << 2
)

// Device identifies a function on the PCI bus by its config space
// address (bus/slot/function).
type Device struct {
	Port port.Port

	Bus  uint8
	Slot uint8
	Func uint8

	VendorID uint16
	DeviceID uint16
}

func (d *Device) address(off uint8) uint32 {
	return 1<<31 |
		uint32(d.Bus)<<16 |
		uint32(d.Slot)<<11 |
		uint32(d.Func)<<8 |
		uint32(off&0xfc)
}

// ReadConfig32 reads a 32-bit configuration space register.
func (d *Device) ReadConfig32(off uint8) uint32 {
	d.Port.Out32(ConfigAddress, d.address(off))
	return d.Port.In32(ConfigData)
}

// WriteConfig32 writes a 32-bit configuration space register. off must
// be 32-bit aligned.
func (d *Device) WriteConfig32(off uint8, val uint32) {
	d.Port.Out32(ConfigAddress, d.address(off))
	d.Port.Out32(ConfigData, val)
}

// ReadConfig16 reads a 16-bit configuration space register.
func (d *Device) ReadConfig16(off uint8) uint16 {
	v := d.ReadConfig32(off &^ 3)
	return uint16(v >> ((off & 2) * 8))
}

// EnableBusMaster sets the Bus Master Enable bit in the command
// register, required before the device can use Bus-Master DMA (spec.md
// §4.B "Enable bus mastering by setting bit 2 of the PCI command
// register").
func (d *Device) EnableBusMaster() {
	cmd := d.ReadConfig32(offCommand)
	cmd |= uint32(CommandBusMaster)
	d.WriteConfig32(offCommand, cmd)
}

// BAR returns the raw Base Address Register n (0-5).
func (d *Device) BAR(n int) uint32 {
	if n < 0 || n > 5 {
		return 0
	}
	return d.ReadConfig32(uint8(offBAR0 + n*4))
}

// IsIOBAR reports whether a BAR value describes an I/O-space region
// (bit 0 set) as opposed to a memory-mapped region.
func IsIOBAR(bar uint32) bool {
	return bar&0x1 != 0
}

// IOBase masks a BAR value down to its I/O port base address.
func IOBase(bar uint32) uint16 {
	return uint16(bar &^ 0x3)
}

func (d *Device) probe() bool {
	v := d.ReadConfig32(offVendorID)
	if uint16(v) == 0xFFFF {
		return false
	}
	d.VendorID = uint16(v)
	d.DeviceID = uint16(v >> 16)
	return true
}

// Scan walks every (slot, function) on bus 0, the only bus it scans,
// and returns every device matching the given vendor/device ID
// (spec.md §3 "ata_pci: ... obtained by scanning for vendor 0x8086,
// device 0x7010 or 0x7111").
func Scan(p port.Port, vendor uint16, devices ...uint16) []*Device {
	var found []*Device

	for bus := 0; bus < maxBuses; bus++ {
		for slot := 0; slot < maxDevices; slot++ {
			for fn := 0; fn < maxFuncs; fn++ {
				d := &Device{Port: p, Bus: uint8(bus), Slot: uint8(slot), Func: uint8(fn)}
				if !d.probe() {
					if fn == 0 {
						break
					}
					continue
				}
				if d.VendorID != vendor {
					continue
				}
				for _, want := range devices {
					if d.DeviceID == want {
						found = append(found, d)
						break
					}
				}
			}
		}
	}

	return found
}

// https://github.com/usbarmory/tamago
//
// Adapted from internal/reg/port_amd64.go: the asm-backed port
// primitives, generalized into a Port implementation.

//go:build amd64
// +build amd64

package port

// Hardware is the real, assembly-backed Port implementation. It is the
// only type in this driver that issues an actual IN/OUT instruction.
//
// Hardware has no state: port addresses are global to the processor, so
// a zero value is ready to use. Running it requires I/O privilege level
// 3 (see cmd/pataprobe for how a userspace caller obtains that on
// Linux; in-kernel callers already run at CPL 0).
type Hardware struct{}

// defined in hardware_amd64.s
func in8(addr uint16) uint8
func out8(addr uint16, val uint8)
func in16(addr uint16) uint16
func out16(addr uint16, val uint16)
func in32(addr uint16) uint32
func out32(addr uint16, val uint32)

func (Hardware) In8(addr uint16) uint8 { return in8(addr) }

func (Hardware) Out8(addr uint16, val uint8) { out8(addr, val) }

func (Hardware) In16(addr uint16) uint16 { return in16(addr) }

func (Hardware) Out16(addr uint16, val uint16) { out16(addr, val) }

func (Hardware) In32(addr uint16) uint32 { return in32(addr) }

func (Hardware) Out32(addr uint16, val uint32) { out32(addr, val) }

// Package port defines the x86 I/O-port primitives the driver is built
// on: byte/word/dword port access and the short settle delay IDE
// controllers expect after a register write.
//
// Port is the seam the rest of the driver is built against so that it
// can run, under test, against a fake controller instead of real
// hardware (see the porttest package). Hardware is the real,
// assembly-backed implementation used in production and by the
// cmd/pataprobe bring-up tool.
package port

// Port is the minimal register I/O capability every other component
// depends on. No component in this driver talks to hardware except
// through a Port.
type Port interface {
	In8(addr uint16) uint8
	Out8(addr uint16, val uint8)
	In16(addr uint16) uint16
	Out16(addr uint16, val uint16)
	In32(addr uint16) uint32
	Out32(addr uint16, val uint32)
}

// Stall performs the ~400ns settle delay IDE controllers require after a
// register write, by reading the alternate status register four times
// and discarding the result (spec.md 4.A).
func Stall(p Port, altStatus uint16) {
	for i := 0; i < 4; i++ {
		p.In8(altStatus)
	}
}

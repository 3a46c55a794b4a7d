package ata_test

import (
	"bytes"
	"testing"

	"github.com/tamago-contrib/pataide/ata"
	"github.com/tamago-contrib/pataide/dmabuf"
	"github.com/tamago-contrib/pataide/internal/porttest"
)

func newPrimaryMaster(t *testing.T, fake *porttest.Fake) *ata.Device {
	t.Helper()
	return &ata.Device{
		Port:    fake,
		IOBase:  0x1F0,
		Control: 0x3F6,
		Slave:   false,
	}
}

func TestIdentifyClassifiesPATA(t *testing.T) {
	fake := porttest.New()
	fake.SetDrive(porttest.Primary, false, porttest.NewPATADrive(32768, "TEST DISK"))

	dev := newPrimaryMaster(t, fake)

	sig, err := dev.Identify()
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if sig != ata.SigPATA {
		t.Fatalf("signature = %v, want SigPATA", sig)
	}
	if got, want := dev.Identity.Capacity(), uint64(32768); got != want {
		t.Fatalf("capacity = %d, want %d", got, want)
	}
	if dev.Identity.Model != "TEST DISK" {
		t.Fatalf("model = %q, want %q", dev.Identity.Model, "TEST DISK")
	}
}

func TestIdentifyAbsentDevice(t *testing.T) {
	fake := porttest.New()

	dev := newPrimaryMaster(t, fake)

	sig, err := dev.Identify()
	if sig != ata.SigAbsent {
		t.Fatalf("signature = %v, want SigAbsent", sig)
	}
	if err != ata.ErrNoResponse {
		t.Fatalf("err = %v, want ErrNoResponse", err)
	}
}

func TestReadSectorPIORoundTrip(t *testing.T) {
	fake := porttest.New()
	drive := porttest.NewPATADrive(100, "RW DISK")

	var sector [512]byte
	for i := range sector {
		sector[i] = byte(i)
	}
	drive.SetSector(5, sector)
	fake.SetDrive(porttest.Primary, false, drive)

	dev := newPrimaryMaster(t, fake)
	if _, err := dev.Identify(); err != nil {
		t.Fatalf("Identify: %v", err)
	}

	var got [512]byte
	if err := dev.ReadSectorPIO(5, got[:]); err != nil {
		t.Fatalf("ReadSectorPIO: %v", err)
	}
	if !bytes.Equal(got[:], sector[:]) {
		t.Fatalf("read sector mismatch")
	}
}

func TestWriteSectorVerifiedRetriesOnMismatch(t *testing.T) {
	fake := porttest.New()
	drive := porttest.NewPATADrive(100, "FLAKY DISK")
	drive.WriteVerifyFlaky = 2 // first two writes corrupt the readback
	fake.SetDrive(porttest.Primary, false, drive)

	dev := newPrimaryMaster(t, fake)
	if _, err := dev.Identify(); err != nil {
		t.Fatalf("Identify: %v", err)
	}

	src := bytes.Repeat([]byte{0xAA}, 512)
	if err := dev.WriteSectorVerified(10, src); err != nil {
		t.Fatalf("WriteSectorVerified: %v", err)
	}

	var readback [512]byte
	if err := dev.ReadSectorPIO(10, readback[:]); err != nil {
		t.Fatalf("ReadSectorPIO: %v", err)
	}
	if !bytes.Equal(readback[:], src) {
		t.Fatalf("final sector contents mismatch after retry")
	}
}

func TestWriteSectorVerifiedExhaustsRetries(t *testing.T) {
	fake := porttest.New()
	drive := porttest.NewPATADrive(100, "ALWAYS FLAKY")
	drive.WriteVerifyFlaky = ata.MaxWriteVerifyAttempts + 10
	fake.SetDrive(porttest.Primary, false, drive)

	dev := newPrimaryMaster(t, fake)
	if _, err := dev.Identify(); err != nil {
		t.Fatalf("Identify: %v", err)
	}

	src := bytes.Repeat([]byte{0x55}, 512)
	err := dev.WriteSectorVerified(1, src)
	if err != ata.ErrWriteVerifyFailed {
		t.Fatalf("err = %v, want ErrWriteVerifyFailed", err)
	}
}

func TestReadSectorDMA(t *testing.T) {
	fake := porttest.New()
	drive := porttest.NewPATADrive(100, "DMA DISK")

	var sector [512]byte
	for i := range sector {
		sector[i] = byte(511 - i)
	}
	drive.SetSector(42, sector)
	fake.SetDrive(porttest.Primary, false, drive)

	dev := newPrimaryMaster(t, fake)
	if _, err := dev.Identify(); err != nil {
		t.Fatalf("Identify: %v", err)
	}

	alloc := dmabuf.NewRegion(0x100000, 1<<16)
	fake.SetDMAMemory(porttest.Primary, alloc)

	// Directly wire the device's bus-master base and DMA buffers the
	// way controller.probePosition would via InitDMA, without needing
	// a real pci.Device (BAR4 plumbing is exercised separately in the
	// controller package tests).
	prdtVirt, prdtPhys, err := alloc.Alloc(8, 4)
	if err != nil {
		t.Fatalf("alloc PRDT: %v", err)
	}
	bufVirt, bufPhys, err := alloc.Alloc(4096, 4096)
	if err != nil {
		t.Fatalf("alloc buffer: %v", err)
	}
	ata.PutPRDTEntryForTest(prdtVirt, bufPhys, 512, 0x8000)

	dev.BusMasterBase = fake.BusMasterBase(porttest.Primary)
	ata.SetDMAForTest(dev, alloc, prdtPhys, prdtVirt, bufPhys, bufVirt)

	var got [512]byte
	if err := dev.ReadSectorDMA(42, got[:]); err != nil {
		t.Fatalf("ReadSectorDMA: %v", err)
	}
	if !bytes.Equal(got[:], sector[:]) {
		t.Fatalf("DMA read mismatch")
	}
}

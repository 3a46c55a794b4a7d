package controller_test

import (
	"testing"

	"github.com/tamago-contrib/pataide/block"
	"github.com/tamago-contrib/pataide/controller"
	"github.com/tamago-contrib/pataide/internal/porttest"
)

func TestProbePublishesExpectedNodes(t *testing.T) {
	fake := porttest.New()
	fake.SetDrive(porttest.Primary, false, porttest.NewPATADrive(32768, "PRIMARY MASTER"))
	fake.SetDrive(porttest.Secondary, false, porttest.NewATAPIDrive(358399, 2048))

	c := controller.New(fake)
	if err := c.Probe(); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	if len(c.Devices) != 2 {
		t.Fatalf("len(Devices) = %d, want 2", len(c.Devices))
	}

	hda := c.Devices[0]
	if hda.Name != "/dev/hda" {
		t.Fatalf("Devices[0].Name = %q, want /dev/hda", hda.Name)
	}
	if got, want := hda.Length(), uint64(16777216); got != want {
		t.Fatalf("hda length = %d, want %d", got, want)
	}
	if hda.Flags != block.FlagBlockDevice {
		t.Fatalf("hda.Flags = %#x, want FlagBlockDevice", hda.Flags)
	}

	cdrom := c.Devices[1]
	if cdrom.Name != "/dev/cdrom0" {
		t.Fatalf("Devices[1].Name = %q, want /dev/cdrom0", cdrom.Name)
	}
	if got, want := cdrom.Length(), uint64(734003200); got != want {
		t.Fatalf("cdrom length = %d, want %d", got, want)
	}
	if cdrom.Flags != block.FlagBlockDevice {
		t.Fatalf("cdrom.Flags = %#x, want FlagBlockDevice", cdrom.Flags)
	}
}

func TestProbeSkipsAbsentPositions(t *testing.T) {
	fake := porttest.New()
	fake.SetDrive(porttest.Primary, false, porttest.NewPATADrive(100, "ONLY DRIVE"))

	c := controller.New(fake)
	if err := c.Probe(); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	if len(c.Devices) != 1 {
		t.Fatalf("len(Devices) = %d, want 1", len(c.Devices))
	}
}

package ata

import (
	"errors"
)

// identifyProbeCap bounds the BSY poll during probe (spec.md §4.B step
// 3: "generous cap (10 000)").
const identifyProbeCap = 10000

// Signature classifies what answered a soft reset by reading back
// LBA1/LBA2 (spec.md §4.B step 4).
type Signature int

const (
	// SigAbsent means no drive is wired to this position.
	SigAbsent Signature = iota
	// SigPATA means a PATA (or SATA in legacy emulation) drive answered.
	SigPATA
	// SigATAPI means an ATAPI drive (CD/DVD) answered.
	SigATAPI
	// SigUnknown is an unrecognized signature: logged and skipped by
	// the controller (spec.md §7).
	SigUnknown
)

// ErrNoResponse is returned by Identify when the signature read after
// the soft reset classified the position as absent.
var ErrNoResponse = errors.New("ata: no device responds at this position")

// ErrUnknownSignature is returned by Identify for a signature this
// driver does not recognize.
var ErrUnknownSignature = errors.New("ata: unrecognized device signature")

// SoftReset pulses the device-control reset bit and waits for it to
// settle (spec.md §4.B "Soft reset"). It is run once per channel at
// probe time to force both drives on the channel into a known state.
func (d *Device) SoftReset() {
	d.Port.Out8(d.Control, ctrlSRST)
	d.stall()
	d.Port.Out8(d.Control, 0x00)
}

// classify selects this device and reads back LBA1/LBA2 to determine
// what, if anything, is present (spec.md §4.B steps 2-4).
func (d *Device) classify() (Signature, error) {
	d.Port.Out8(d.IOBase+regHDDevSel, 0xA0|d.selectByte())
	d.stall()

	if err := d.waitBusyClear(identifyProbeCap); err != nil {
		return SigAbsent, err
	}

	lba1 := d.Port.In8(d.IOBase + regLBA1)
	lba2 := d.Port.In8(d.IOBase + regLBA2)

	switch {
	case lba1 == sigAbsent && lba2 == sigAbsent:
		return SigAbsent, nil
	case lba1 == sigLBA1PATA && lba2 == sigLBA2PATA,
		lba1 == sigLBA1PATA2 && lba2 == sigLBA2PATA2:
		return SigPATA, nil
	case lba1 == sigLBA1ATAPI && lba2 == sigLBA2ATAPI,
		lba1 == sigLBA1ATAPI2 && lba2 == sigLBA2ATAPI2:
		return SigATAPI, nil
	default:
		return SigUnknown, nil
	}
}

// Identify runs the full probe sequence for this device position: soft
// reset, signature classification, and (for a recognized signature) an
// IDENTIFY or IDENTIFY PACKET command, filling in d.Identity.
//
// It returns the Signature regardless of error so the caller can
// distinguish "absent" (skip silently) from "unknown" (skip, log) per
// spec.md §7.
func (d *Device) Identify() (Signature, error) {
	d.SoftReset()
	d.stall()

	sig, err := d.classify()
	if err != nil {
		return SigAbsent, err
	}

	var cmd uint8
	switch sig {
	case SigAbsent:
		return sig, ErrNoResponse
	case SigPATA:
		cmd = CmdIdentify
	case SigATAPI:
		cmd = CmdIdentifyPacket
	default:
		return SigUnknown, ErrUnknownSignature
	}

	d.Port.Out8(d.IOBase+regCommand, cmd)
	d.stall()

	if err := d.waitReadyAdvanced(true); err != nil {
		return sig, err
	}

	var words [256]uint16
	for i := range words {
		words[i] = d.Port.In16(d.IOBase + regData)
	}

	d.Identity = parseIdentity(words)

	return sig, nil
}

// parseIdentity extracts the fields this driver consumes from the raw
// 256-word IDENTIFY response, following the word numbering in
// dswarbrick/smart's IdentifyDeviceData (sectors_28 at words 60-61,
// sectors_48 at words 100-103, model at words 27-46 byte-swapped per
// pair).
func parseIdentity(words [256]uint16) Identity {
	id := Identity{
		Sectors28: uint32(words[60]) | uint32(words[61])<<16,
		Sectors48: uint64(words[100]) |
			uint64(words[101])<<16 |
			uint64(words[102])<<32 |
			uint64(words[103])<<48,
	}

	var model [40]byte
	for i := 0; i < 20; i++ {
		w := words[27+i]
		model[2*i] = byte(w >> 8)
		model[2*i+1] = byte(w)
	}
	id.Model = trimModel(model[:])

	return id
}

func trimModel(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}

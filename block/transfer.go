package block

// transferRange plans and executes the sequence of sector operations
// backing a single byte-range request, covering at most one partial
// prefix sector and one partial postfix sector plus whole interior
// sectors (spec.md §4.E).
func transferRange(s Sectors, offset uint64, size int, buf []byte, write bool) (int, error) {
	capacity := s.SectorCount() * uint64(s.SectorSize())

	if offset >= capacity {
		return 0, nil
	}
	if offset+uint64(size) > capacity {
		size = int(capacity - offset)
	}
	if size == 0 {
		return 0, nil
	}

	ss := uint64(s.SectorSize())

	startSector := offset / ss
	endSector := (offset + uint64(size) - 1) / ss

	var writer Writer
	if write {
		writer = s.(Writer)
	}

	bufOff := 0
	remaining := size

	// partial prefix sector
	if offset%ss != 0 {
		scratch := make([]byte, ss)
		if err := s.ReadSector(startSector, scratch); err != nil {
			return 0, err
		}

		prefixOff := int(offset % ss)
		n := int(ss) - prefixOff
		if n > remaining {
			n = remaining
		}

		if write {
			copy(scratch[prefixOff:prefixOff+n], buf[bufOff:bufOff+n])
			if err := writer.WriteSector(startSector, scratch); err != nil {
				return 0, err
			}
		} else {
			copy(buf[bufOff:bufOff+n], scratch[prefixOff:prefixOff+n])
		}

		bufOff += n
		remaining -= n
		startSector++
	}

	// partial postfix sector
	var postfixPending bool
	var postfixSector uint64
	if (offset+uint64(size))%ss != 0 && startSector <= endSector {
		postfixPending = true
		postfixSector = endSector
		endSector--
	}

	// whole interior sectors, transferred directly to/from the
	// caller's buffer
	for sec := startSector; sec <= endSector && remaining > 0; sec++ {
		chunk := buf[bufOff : bufOff+int(ss)]

		if write {
			if err := writer.WriteSector(sec, chunk); err != nil {
				return 0, err
			}
		} else {
			if err := s.ReadSector(sec, chunk); err != nil {
				return 0, err
			}
		}

		bufOff += int(ss)
		remaining -= int(ss)
	}

	if postfixPending {
		scratch := make([]byte, ss)
		if err := s.ReadSector(postfixSector, scratch); err != nil {
			return 0, err
		}

		n := remaining

		if write {
			copy(scratch[:n], buf[bufOff:bufOff+n])
			if err := writer.WriteSector(postfixSector, scratch); err != nil {
				return 0, err
			}
		} else {
			copy(buf[bufOff:bufOff+n], scratch[:n])
		}

		bufOff += n
		remaining -= n
	}

	return size, nil
}

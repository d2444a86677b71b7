package psd

import "fmt"

// PackBits run-length decoding. A header byte below 128 copies the next
// header+1 bytes literally, 128 is a no-op, above 128 replicates the next
// byte 257-header times. A legal row consumes its input exactly and
// produces exactly the expected width.

// packBitsDecodeRow decodes one compressed row into dst. Every input byte
// must be consumed and dst must be filled exactly; any mismatch is
// corruption.
func packBitsDecodeRow(src []byte, dst []byte) error {
	si, di := 0, 0
	for si < len(src) && di < len(dst) {
		header := src[si]
		si++
		switch {
		case header < 128:
			count := int(header) + 1
			if si+count > len(src) || di+count > len(dst) {
				return fmt.Errorf("packbits literal run overflow: %w", ErrCorruptData)
			}
			copy(dst[di:di+count], src[si:si+count])
			si += count
			di += count
		case header == 128:
			// No-op, mandated by the PackBits specification.
		default:
			count := 257 - int(header)
			if si >= len(src) {
				return fmt.Errorf("packbits repeat run truncated: %w", ErrCorruptData)
			}
			if di+count > len(dst) {
				return fmt.Errorf("packbits repeat run overflow: %w", ErrCorruptData)
			}
			v := src[si]
			si++
			for i := 0; i < count; i++ {
				dst[di+i] = v
			}
			di += count
		}
	}
	if si != len(src) || di != len(dst) {
		return fmt.Errorf("packbits row %d/%d in, %d/%d out: %w",
			si, len(src), di, len(dst), ErrCorruptData)
	}
	return nil
}

// rleRowCounts reads a big-endian row-count table of the given entry width
// (2 or 4 bytes) and returns the per-row byte counts and their sum.
func rleRowCounts(table []byte, rows int, countWidth int) ([]uint64, uint64, error) {
	if countWidth != 2 && countWidth != 4 {
		return nil, 0, ErrInvalidArgument
	}
	if len(table) < rows*countWidth {
		return nil, 0, fmt.Errorf("rle count table short: %w", ErrCorruptData)
	}
	counts := make([]uint64, rows)
	var sum uint64
	for i := 0; i < rows; i++ {
		p := table[i*countWidth:]
		var v uint64
		if countWidth == 2 {
			v = uint64(be.Uint16(p))
		} else {
			v = uint64(be.Uint32(p))
		}
		counts[i] = v
		sum += v
	}
	return counts, sum, nil
}

// rleDecode decodes a contiguous buffer laid out as a row-count table
// followed by row data. The table width must be 2 or 4 bytes and the
// buffer must be consumed exactly: tableBytes + sum(counts) == len(buf).
func rleDecode(buf []byte, rows int, width int, countWidth int, dst []byte) error {
	counts, sum, err := rleRowCounts(buf, rows, countWidth)
	if err != nil {
		return err
	}
	tableBytes := uint64(rows * countWidth)
	if tableBytes+sum != uint64(len(buf)) {
		return fmt.Errorf("rle payload %d != table %d + rows %d: %w",
			len(buf), tableBytes, sum, ErrCorruptData)
	}
	if len(dst) != rows*width {
		return fmt.Errorf("rle output size: %w", ErrInvalidArgument)
	}
	data := buf[tableBytes:]
	var off uint64
	for y := 0; y < rows; y++ {
		rowLen := counts[y]
		if off+rowLen > uint64(len(data)) {
			return fmt.Errorf("rle row %d overruns payload: %w", y, ErrCorruptData)
		}
		row := data[off : off+rowLen]
		if err := packBitsDecodeRow(row, dst[y*width:(y+1)*width]); err != nil {
			return err
		}
		off += rowLen
	}
	return nil
}

// rleDecodeChannel decodes a layer channel payload whose row-count width is
// unknown. Both widths are accounted in memory first: whichever makes
// table + data match the payload exactly wins; 2 bytes is preferred when
// both match; neither matching is corruption.
func rleDecodeChannel(payload []byte, rows int, width int) ([]byte, error) {
	_, sum2, err2 := rleRowCounts(payload, rows, 2)
	_, sum4, err4 := rleRowCounts(payload, rows, 4)

	total2 := uint64(rows)*2 + sum2
	total4 := uint64(rows)*4 + sum4
	match2 := err2 == nil && total2 == uint64(len(payload))
	match4 := err4 == nil && total4 == uint64(len(payload))

	countWidth := 0
	switch {
	case match2:
		countWidth = 2
	case match4:
		countWidth = 4
		debugf("rle channel: 4-byte row counts selected (%d rows)", rows)
	default:
		return nil, fmt.Errorf("rle channel row-count width: %w", ErrCorruptData)
	}

	dst := make([]byte, rows*width)
	if err := rleDecode(payload, rows, width, countWidth, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

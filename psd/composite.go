package psd

import (
	"errors"
	"fmt"
)

// scanlineBytes is the byte width of one decoded scanline for the given
// pixel width and depth: packed bits for depth 1, whole samples otherwise.
func scanlineBytes(width uint32, depth uint16) uint64 {
	if depth == 1 {
		return (uint64(width) + 7) / 8
	}
	return uint64(width) * uint64(depth/8)
}

// parseComposite reads the composite image data section: a 2-byte
// compression kind with no length prefix, then the planar image data.
// Missing composite data is not an error; the document is simply returned
// without a composite buffer.
func (d *Document) parseComposite(s *Stream) error {
	kind, err := s.ReadUint16()
	if err != nil {
		// End of file here means the writer emitted no composite.
		return nil
	}
	if kind > 3 {
		return fmt.Errorf("composite compression %d: %w", kind, ErrUnsupportedCompression)
	}
	d.composite.compression = Compression(kind)

	rowBytes := scanlineBytes(d.width, d.depth)
	expected64 := uint64(d.channels) * uint64(d.height) * rowBytes
	expected := int(expected64)

	switch Compression(kind) {
	case CompressionRaw:
		buf := make([]byte, expected)
		if err := s.ReadExact(buf); err != nil {
			return err
		}
		d.composite.data = buf

	case CompressionRLE:
		rows := int(d.channels) * int(d.height)
		countsPos, err := s.Tell()
		if err != nil {
			return err
		}
		// Standard files carry 2-byte row counts, large files 4-byte,
		// but writers disagree: try the format default first, then the
		// other width.
		first, second := 2, 4
		if d.isLarge {
			first, second = 4, 2
		}
		buf, errFirst := decodeCompositeRLE(s, countsPos, rows, int(rowBytes), expected, first)
		if errFirst != nil {
			debugf("composite rle: %d-byte counts failed, retrying %d-byte", first, second)
			var errSecond error
			buf, errSecond = decodeCompositeRLE(s, countsPos, rows, int(rowBytes), expected, second)
			if errSecond != nil {
				return fmt.Errorf("composite rle (both count widths): %w", ErrCorruptData)
			}
		}
		d.composite.data = buf

	case CompressionZIP, CompressionZIPPred:
		// The section has no length field; read what remains, bounded
		// by twice the uncompressed size. With prediction the inflated
		// stream also carries one filter byte per row.
		inflatedSize := int64(expected64)
		if Compression(kind) == CompressionZIPPred {
			inflatedSize += int64(d.channels) * int64(d.height)
		}
		compressed, err := s.ReadUpTo(inflatedSize * 2)
		if err != nil {
			return err
		}
		if len(compressed) == 0 {
			return ErrStreamEOF
		}
		var buf []byte
		if Compression(kind) == CompressionZIP {
			buf, err = zipDecompress(compressed, expected)
		} else {
			bytesPerPixel := 1
			if d.depth > 8 {
				bytesPerPixel = int(d.depth / 8)
			}
			buf, err = zipDecompressWithPrediction(compressed, expected, int(rowBytes), bytesPerPixel)
		}
		if err != nil {
			return err
		}
		d.composite.data = buf
	}
	return nil
}

// decodeCompositeRLE sums the row-count table of the given width, reads
// the table plus payload and decodes every row. The stream is rewound to
// countsPos first so both widths can be attempted on the same bytes.
func decodeCompositeRLE(s *Stream, countsPos int64, rows, rowBytes, expected int, countWidth int) ([]byte, error) {
	if err := s.Seek(countsPos); err != nil {
		return nil, err
	}
	table := make([]byte, rows*countWidth)
	if err := s.ReadExact(table); err != nil {
		return nil, err
	}
	counts, sum, err := rleRowCounts(table, rows, countWidth)
	if err != nil {
		return nil, err
	}
	pos, err := s.Tell()
	if err != nil {
		return nil, err
	}
	if sum > uint64(s.Size()-pos) {
		return nil, fmt.Errorf("rle payload %d exceeds stream: %w", sum, ErrCorruptData)
	}
	payload := make([]byte, sum)
	if err := s.ReadExact(payload); err != nil {
		return nil, err
	}

	dst := make([]byte, expected)
	var off uint64
	for y := 0; y < rows; y++ {
		rowLen := counts[y]
		if off+rowLen > uint64(len(payload)) {
			return nil, fmt.Errorf("composite rle row %d: %w", y, ErrCorruptData)
		}
		if err := packBitsDecodeRow(payload[off:off+rowLen], dst[y*rowBytes:(y+1)*rowBytes]); err != nil {
			return nil, err
		}
		off += rowLen
	}
	return dst, nil
}

// compositeErrorIsSoft reports whether a composite parse failure leaves
// the document usable without a composite buffer.
func compositeErrorIsSoft(err error) bool {
	return errors.Is(err, ErrStreamEOF) ||
		errors.Is(err, ErrStreamInvalid) ||
		errors.Is(err, ErrUnsupportedCompression)
}

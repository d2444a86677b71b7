package psd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// ZIP-compressed PSD data is DEFLATE, but real-world writers vary between
// raw DEFLATE streams and zlib-wrapped streams. Raw is attempted first; if
// it does not produce exactly the expected output, the same input is
// retried with zlib framing. Any remaining failure is corruption.
func zipDecompress(compressed []byte, expected int) ([]byte, error) {
	if out, err := inflateExact(flate.NewReader(bytes.NewReader(compressed)), expected); err == nil {
		return out, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err == nil {
		if out, err := inflateExact(zr, expected); err == nil {
			debugf("zip: zlib-wrapped stream detected (%d bytes in)", len(compressed))
			return out, nil
		}
	}
	return nil, fmt.Errorf("deflate stream (raw and zlib): %w", ErrCorruptData)
}

// inflateExact reads exactly expected bytes from r and requires the stream
// to terminate there.
func inflateExact(r io.ReadCloser, expected int) ([]byte, error) {
	defer r.Close()
	out := make([]byte, expected)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	var probe [1]byte
	if n, err := r.Read(probe[:]); n != 0 || err != io.EOF {
		return nil, fmt.Errorf("trailing deflate output: %w", ErrCorruptData)
	}
	return out, nil
}

// paeth is the PNG Paeth predictor on (left, above, upper-left).
func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := p-int(a), p-int(b), p-int(c)
	if pa < 0 {
		pa = -pa
	}
	if pb < 0 {
		pb = -pb
	}
	if pc < 0 {
		pc = -pc
	}
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

// reversePrediction undoes a PNG-style filter over a single scanline of
// 1 + width bytes (filter byte first). Because prediction is applied per
// scanline, the above and upper-left neighbors are zero. The filter byte
// is removed: the first width bytes of the slice hold the output.
func reversePrediction(scanline []byte, bytesPerPixel int) error {
	if len(scanline) < 2 {
		return ErrInvalidArgument
	}
	if bytesPerPixel <= 0 || bytesPerPixel > 8 {
		return ErrInvalidArgument
	}
	filter := scanline[0]
	data := scanline[1:]

	switch filter {
	case 0, 2:
		// None; Up has a zero neighbor so it is also a no-op.
	case 1: // Sub
		for i := bytesPerPixel; i < len(data); i++ {
			data[i] += data[i-bytesPerPixel]
		}
	case 3: // Average
		for i := bytesPerPixel; i < len(data); i++ {
			data[i] += data[i-bytesPerPixel] / 2
		}
	case 4: // Paeth
		for i := bytesPerPixel; i < len(data); i++ {
			data[i] += paeth(data[i-bytesPerPixel], 0, 0)
		}
	default:
		return fmt.Errorf("prediction filter %d: %w", filter, ErrCorruptData)
	}

	copy(scanline, data)
	return nil
}

// zipDecompressWithPrediction inflates once, then reverses prediction over
// each scanline region. The inflated stream carries 1 + scanlineWidth
// bytes per row; the filter bytes are removed, so the output is exactly
// expected bytes.
func zipDecompressWithPrediction(compressed []byte, expected, scanlineWidth, bytesPerPixel int) ([]byte, error) {
	if scanlineWidth <= 0 || expected%scanlineWidth != 0 {
		return nil, ErrInvalidArgument
	}
	rows := expected / scanlineWidth
	inflated, err := zipDecompress(compressed, expected+rows)
	if err != nil {
		return nil, err
	}
	out := make([]byte, expected)
	for y := 0; y < rows; y++ {
		line := inflated[y*(scanlineWidth+1) : (y+1)*(scanlineWidth+1)]
		if err := reversePrediction(line, bytesPerPixel); err != nil {
			return nil, err
		}
		copy(out[y*scanlineWidth:(y+1)*scanlineWidth], line[:scanlineWidth])
	}
	return out, nil
}

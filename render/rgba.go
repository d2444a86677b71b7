// Package render converts planar Photoshop pixel data into interleaved,
// non-premultiplied 8-bit RGBA. Both the composite image and individual
// pixel layers are supported, in every color mode the document decoder
// produces: RGB, grayscale, duotone, indexed, CMYK, Lab (D50) and
// 1-bit bitmap.
package render

import (
	"fmt"

	"github.com/openpsd/psd-go/colorspace"
	"github.com/openpsd/psd-go/psd"
)

// CompositeInfo describes the composite's native storage, returned by
// the extended renderer entry point.
type CompositeInfo struct {
	ColorMode   psd.ColorMode
	Depth       uint16
	Channels    uint16
	Compression psd.Compression
}

// CompositeRGBA8 renders the document composite to RGBA8. The two-call
// protocol applies: a nil output buffer returns the required byte size
// (width * height * 4) without rendering; a non-nil buffer shorter than
// required fails with a buffer-too-small error. A document without a
// composite buffer fails with an invalid-argument error.
func CompositeRGBA8(doc *psd.Document, out []byte) (required int, err error) {
	required, _, err = CompositeRGBA8Ex(doc, out)
	return required, err
}

// CompositeRGBA8Ex is CompositeRGBA8 plus the composite's native color
// mode, depth, channel count and original compression kind.
func CompositeRGBA8Ex(doc *psd.Document, out []byte) (required int, info CompositeInfo, err error) {
	if doc == nil {
		return 0, info, psd.ErrNullPointer
	}

	width, height := doc.Dimensions()
	mode := doc.ColorMode()
	depth := doc.Depth()
	channels := doc.Channels()
	composite, compression := doc.CompositeImage()

	info = CompositeInfo{
		ColorMode:   mode,
		Depth:       depth,
		Channels:    channels,
		Compression: compression,
	}

	required = int(width) * int(height) * 4
	if len(composite) == 0 {
		return required, info, fmt.Errorf("document has no composite image: %w", psd.ErrInvalidArgument)
	}
	if out == nil {
		return required, info, nil
	}
	if len(out) < required {
		return required, info, psd.ErrBufferTooSmall
	}

	planeBytes := planeSize(width, height, depth)
	if channels == 0 || planeBytes == 0 {
		return required, info, psd.ErrCorruptData
	}
	if uint64(len(composite)) < uint64(channels)*planeBytes {
		return required, info, fmt.Errorf("composite shorter than %d planes: %w", channels, psd.ErrCorruptData)
	}

	var planes [5][]byte
	planeCount := int(channels)
	if planeCount > 5 {
		planeCount = 5
	}
	for i := 0; i < planeCount; i++ {
		planes[i] = composite[uint64(i)*planeBytes : uint64(i+1)*planeBytes]
	}

	err = planarToRGBA8(mode, depth, width, height, planes, doc.ColorModeData(), out)
	return required, info, err
}

// LayerRGBA8 renders an individual pixel layer to RGBA8 under the same
// two-call protocol. The output dimensions are the layer bounds; channel
// planes are selected by channel id (0..3 base color, -1 alpha) and
// decoded lazily on first use.
func LayerRGBA8(doc *psd.Document, layerIndex int, out []byte) (required int, err error) {
	if doc == nil {
		return 0, psd.ErrNullPointer
	}
	layer, err := doc.Layer(layerIndex)
	if err != nil {
		return 0, err
	}

	width := layer.Bounds.Width()
	height := layer.Bounds.Height()
	required = int(width) * int(height) * 4
	if out == nil {
		return required, nil
	}
	if len(out) < required {
		return required, psd.ErrBufferTooSmall
	}
	if width == 0 || height == 0 {
		return required, nil
	}

	mode := doc.ColorMode()
	depth := doc.Depth()

	// Gather planes by channel id. The alpha channel (-1) is parked in
	// slot 4 and reordered per color mode below.
	var byID [5][]byte
	for i := range layer.Channels {
		id, data, _, err := doc.LayerChannelData(layerIndex, i)
		if err != nil || len(data) == 0 {
			continue
		}
		if id >= 0 && id < 4 {
			byID[id] = data
		} else if id == -1 {
			byID[4] = data
		}
	}

	var planes [5][]byte
	switch mode {
	case psd.ColorModeRGB, psd.ColorModeLab:
		planes[0], planes[1], planes[2] = byID[0], byID[1], byID[2]
		planes[3] = byID[4]
	case psd.ColorModeGrayscale, psd.ColorModeDuotone, psd.ColorModeIndexed, psd.ColorModeBitmap:
		planes[0] = byID[0]
		planes[1] = byID[4]
	case psd.ColorModeCMYK:
		planes[0], planes[1], planes[2], planes[3] = byID[0], byID[1], byID[2], byID[3]
		planes[4] = byID[4]
	default:
		return required, fmt.Errorf("color mode %v: %w", mode, psd.ErrUnsupportedColorMode)
	}

	err = planarToRGBA8(mode, depth, width, height, planes, doc.ColorModeData(), out)
	return required, err
}

// planeSize is the byte size of one channel plane.
func planeSize(width, height uint32, depth uint16) uint64 {
	if depth == 1 {
		return ((uint64(width) + 7) / 8) * uint64(height)
	}
	return uint64(width) * uint64(height) * uint64(depth/8)
}

// sampleToU8 reduces one sample to 8 bits: depth 8 verbatim, higher
// depths take the most significant byte of the big-endian sample.
func sampleToU8(plane []byte, idx uint64, bps uint64) uint8 {
	return plane[idx*bps]
}

func sampleBE16(plane []byte, idx uint64, bps uint64) uint16 {
	off := idx * bps
	return uint16(plane[off])<<8 | uint16(plane[off+1])
}

// planarToRGBA8 is the per-pixel conversion core shared by the composite
// and layer entry points.
func planarToRGBA8(mode psd.ColorMode, depth uint16, width, height uint32, planes [5][]byte, colorModeData []byte, out []byte) error {
	if width == 0 || height == 0 {
		return nil
	}

	if depth == 1 {
		// Bitmap: packed bits, MSB first, set bit paints white.
		if planes[0] == nil {
			return psd.ErrCorruptData
		}
		rowBytes := (uint64(width) + 7) / 8
		for y := uint32(0); y < height; y++ {
			for x := uint32(0); x < width; x++ {
				off := uint64(y)*rowBytes + uint64(x/8)
				bit := 7 - (x & 7)
				var v uint8
				if planes[0][off]>>(bit)&1 != 0 {
					v = 255
				}
				o := (uint64(y)*uint64(width) + uint64(x)) * 4
				out[o+0] = v
				out[o+1] = v
				out[o+2] = v
				out[o+3] = 255
			}
		}
		return nil
	}

	bps := uint64(depth / 8)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			idx := uint64(y)*uint64(width) + uint64(x)
			var r, g, b uint8
			a := uint8(255)

			switch mode {
			case psd.ColorModeRGB:
				if planes[0] != nil {
					r = sampleToU8(planes[0], idx, bps)
				}
				g, b = r, r
				if planes[1] != nil {
					g = sampleToU8(planes[1], idx, bps)
				}
				if planes[2] != nil {
					b = sampleToU8(planes[2], idx, bps)
				}
				if planes[3] != nil {
					a = sampleToU8(planes[3], idx, bps)
				}

			case psd.ColorModeGrayscale, psd.ColorModeDuotone:
				if planes[0] != nil {
					r = sampleToU8(planes[0], idx, bps)
				}
				g, b = r, r
				if planes[1] != nil {
					a = sampleToU8(planes[1], idx, bps)
				}

			case psd.ColorModeIndexed:
				var key uint8
				if planes[0] != nil {
					key = sampleToU8(planes[0], idx, bps)
				}
				if len(colorModeData) >= 768 {
					r = colorModeData[key]
					g = colorModeData[256+int(key)]
					b = colorModeData[512+int(key)]
				} else {
					r, g, b = key, key, key
				}
				if planes[1] != nil {
					a = sampleToU8(planes[1], idx, bps)
				}

			case psd.ColorModeCMYK:
				// Stored values are already complemented by writers;
				// reverse and composite with black.
				var c, m, yy, k uint16
				if planes[0] != nil {
					c = uint16(sampleToU8(planes[0], idx, bps))
				}
				if planes[1] != nil {
					m = uint16(sampleToU8(planes[1], idx, bps))
				}
				if planes[2] != nil {
					yy = uint16(sampleToU8(planes[2], idx, bps))
				}
				if planes[3] != nil {
					k = uint16(sampleToU8(planes[3], idx, bps))
				}
				r = 255 - uint8(min16(255, c+k))
				g = 255 - uint8(min16(255, m+k))
				b = 255 - uint8(min16(255, yy+k))
				if planes[4] != nil {
					a = sampleToU8(planes[4], idx, bps)
				}

			case psd.ColorModeLab:
				if planes[0] == nil || planes[1] == nil || planes[2] == nil {
					return psd.ErrCorruptData
				}
				var l, aa, bb float64
				if depth == 8 {
					l = float64(planes[0][idx]) * 100.0 / 255.0
					aa = float64(int(planes[1][idx]) - 128)
					bb = float64(int(planes[2][idx]) - 128)
				} else {
					l = float64(sampleBE16(planes[0], idx, bps)) * 100.0 / 65535.0
					aa = float64(int(sampleBE16(planes[1], idx, bps))-32768) / 256.0
					bb = float64(int(sampleBE16(planes[2], idx, bps))-32768) / 256.0
				}
				r, g, b = colorspace.LabD50ToSRGB8(l, aa, bb)
				if planes[3] != nil {
					a = sampleToU8(planes[3], idx, bps)
				}

			default:
				return fmt.Errorf("color mode %v: %w", mode, psd.ErrUnsupportedColorMode)
			}

			o := idx * 4
			out[o+0] = r
			out[o+1] = g
			out[o+2] = b
			out[o+3] = a
		}
	}
	return nil
}

func min16(a, b uint16) uint16 {
	if a < b {
		return a
	}
	return b
}

package psd

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// builder assembles big-endian binary fixtures for tests.
type builder struct {
	buf bytes.Buffer
}

func (b *builder) raw(p ...byte) *builder {
	b.buf.Write(p)
	return b
}

func (b *builder) bytesOf(p []byte) *builder {
	b.buf.Write(p)
	return b
}

func (b *builder) str(s string) *builder {
	b.buf.WriteString(s)
	return b
}

func (b *builder) u16(v uint16) *builder {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) u32(v uint32) *builder {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) u64(v uint64) *builder {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) i16(v int16) *builder { return b.u16(uint16(v)) }
func (b *builder) i32(v int32) *builder { return b.u32(uint32(v)) }

func (b *builder) f64(v float64) *builder {
	return b.u64(math.Float64bits(v))
}

// utf16be appends the UTF-16BE encoding of s without a length prefix.
func (b *builder) utf16be(s string) *builder {
	for _, u := range utf16.Encode([]rune(s)) {
		b.u16(u)
	}
	return b
}

// unicodeString appends a descriptor Unicode string: 32-bit character
// count followed by UTF-16BE code units.
func (b *builder) unicodeString(s string) *builder {
	units := utf16.Encode([]rune(s))
	b.u32(uint32(len(units)))
	for _, u := range units {
		b.u16(u)
	}
	return b
}

// ostype appends a class-id token in OSType form (length zero + 4 bytes).
func (b *builder) ostype(s string) *builder {
	b.u32(0)
	return b.str(s)
}

func (b *builder) bytes() []byte { return b.buf.Bytes() }
func (b *builder) len() int     { return b.buf.Len() }

// header appends a standard 26-byte file header.
func (b *builder) header(version uint16, channels uint16, height, width uint32, depth uint16, mode ColorMode) *builder {
	b.str("8BPS")
	b.u16(version)
	b.raw(0, 0, 0, 0, 0, 0)
	b.u16(channels)
	b.u32(height)
	b.u32(width)
	b.u16(depth)
	b.u16(uint16(mode))
	return b
}

// taggedBlock appends an 8BIM tagged block with even padding.
func (b *builder) taggedBlock(key string, payload []byte) *builder {
	b.str("8BIM")
	b.str(key)
	b.u32(uint32(len(payload)))
	b.bytesOf(payload)
	if len(payload)%2 != 0 {
		b.raw(0)
	}
	return b
}

// pascalName appends a Pascal string padded to a multiple of four
// including the length byte (the layer-name convention).
func (b *builder) pascalName(name string) *builder {
	b.raw(byte(len(name)))
	b.str(name)
	total := 1 + len(name)
	for total%4 != 0 {
		b.raw(0)
		total++
	}
	return b
}

// layerExtra builds a layer extra-data blob: empty mask data, empty
// blending ranges, the given name, then the given tagged blocks.
func layerExtra(name string, blocks func(*builder)) []byte {
	var e builder
	e.u32(0) // layer mask data
	e.u32(0) // blending ranges
	e.pascalName(name)
	if blocks != nil {
		blocks(&e)
	}
	return e.bytes()
}

// simpleLayerSpec describes one layer for buildLayerSection.
type simpleLayerSpec struct {
	bounds    Bounds
	flags     uint8
	extra     []byte
	channels  []int16 // channel ids
	chPayload [][]byte
	chKind    []Compression
}

// buildLayerSection appends a standard-format layer and mask info
// section containing the given layers. Channel length fields include the
// 2-byte compression prefix unless payloadOnly is set.
func buildLayerSection(b *builder, count int16, layers []simpleLayerSpec, payloadOnly bool) {
	var sub builder
	sub.i16(count)
	for _, l := range layers {
		sub.i32(l.bounds.Top).i32(l.bounds.Left).i32(l.bounds.Bottom).i32(l.bounds.Right)
		sub.u16(uint16(len(l.channels)))
		for i, id := range l.channels {
			sub.i16(id)
			length := uint32(len(l.chPayload[i]))
			if !payloadOnly {
				length += 2
			}
			sub.u32(length)
		}
		sub.str("8BIM").str("norm")
		sub.raw(255, 0, l.flags, 0)
		sub.u32(uint32(len(l.extra)))
		sub.bytesOf(l.extra)
	}
	for _, l := range layers {
		for i := range l.channels {
			kind := CompressionRaw
			if l.chKind != nil {
				kind = l.chKind[i]
			}
			sub.u16(uint16(kind))
			sub.bytesOf(l.chPayload[i])
		}
	}

	section := sub.bytes()
	b.u32(uint32(4 + len(section) + 4)) // subsection length field + data + global mask
	b.u32(uint32(len(section)))
	b.bytesOf(section)
	b.u32(0) // global layer mask info
}

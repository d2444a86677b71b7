package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalRGB builds the scenario of an empty standard RGB document:
// 512x256, 3 channels, depth 8, no color data, no resources, no layers.
func minimalRGB() []byte {
	var b builder
	b.header(VersionPSD, 3, 256, 512, 8, ColorModeRGB)
	b.u32(0) // color mode data
	b.u32(0) // image resources
	b.u32(0) // layer and mask info
	return b.bytes()
}

func TestParseMinimalDocument(t *testing.T) {
	doc, err := ParseBytes(minimalRGB())
	require.NoError(t, err)
	defer doc.Close()

	w, h := doc.Dimensions()
	assert.Equal(t, uint32(512), w)
	assert.Equal(t, uint32(256), h)
	assert.False(t, doc.IsLarge())
	assert.Equal(t, ColorModeRGB, doc.ColorMode())
	assert.Equal(t, uint16(8), doc.Depth())
	assert.Equal(t, uint16(3), doc.Channels())
	assert.Equal(t, 0, doc.LayerCount())
	assert.Equal(t, 0, doc.ResourceCount())
	assert.False(t, doc.HasTransparencyLayer())

	composite, _ := doc.CompositeImage()
	assert.Nil(t, composite, "document without composite data parses cleanly")
}

func TestParseResourceBlock(t *testing.T) {
	var b builder
	b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
	b.u32(0)
	// Resource section, one block: 8BIM, id 0x03ED, empty even-padded
	// name, 4 data bytes.
	b.u32(16)
	b.str("8BIM")
	b.u16(0x03ED)
	b.raw(0, 0) // zero-length Pascal name, padded to even
	b.u32(4)
	b.raw(0xDE, 0xAD, 0xBE, 0xEF)
	b.u32(0) // layer section

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 1, doc.ResourceCount())
	idx, err := doc.FindResource(0x03ED)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	res, err := doc.Resource(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x03ED), res.ID)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, res.Data)

	_, err = doc.FindResource(0x0404)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResourceSectionUnknownSignatureStops(t *testing.T) {
	var b builder
	b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
	b.u32(0)
	// One good block (12 bytes) followed by 8 junk bytes; parsing must
	// stop but the stream stays aligned for the layer section.
	b.u32(20)
	b.str("8BIM").u16(1000).raw(0, 0).u32(0)
	b.str("JUNK").u32(0xFFFFFFFF)
	b.u32(0) // layer section

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 1, doc.ResourceCount())
}

func TestParseBadSignature(t *testing.T) {
	var b builder
	b.str("9BPS").u16(1)
	_, err := ParseBytes(b.bytes())
	assert.ErrorIs(t, err, ErrInvalidFileFormat)
}

func TestParseBadVersion(t *testing.T) {
	var b builder
	b.str("8BPS").u16(3).raw(0, 0, 0, 0, 0, 0)
	b.u16(3).u32(4).u32(4).u16(8).u16(3)
	_, err := ParseBytes(b.bytes())
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestParseBadHeaderFields(t *testing.T) {
	cases := []struct {
		name  string
		build func(*builder)
	}{
		{"zero channels", func(b *builder) { b.header(VersionPSD, 0, 4, 4, 8, ColorModeRGB) }},
		{"too many channels", func(b *builder) { b.header(VersionPSD, 57, 4, 4, 8, ColorModeRGB) }},
		{"bad depth", func(b *builder) { b.header(VersionPSD, 3, 4, 4, 7, ColorModeRGB) }},
		{"width over standard limit", func(b *builder) { b.header(VersionPSD, 3, 4, 30001, 8, ColorModeRGB) }},
		{"zero height", func(b *builder) { b.header(VersionPSD, 3, 0, 4, 8, ColorModeRGB) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b builder
			tc.build(&b)
			_, err := ParseBytes(b.bytes())
			assert.ErrorIs(t, err, ErrInvalidHeader)
		})
	}
}

func TestLargeFormatAcceptsBigDimensions(t *testing.T) {
	var b builder
	b.header(VersionPSB, 3, 300000, 300000, 8, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	b.u64(0) // 8-byte layer section length in PSB

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()
	assert.True(t, doc.IsLarge())

	w, h := doc.Dimensions()
	assert.Equal(t, uint32(300000), w)
	assert.Equal(t, uint32(300000), h)
}

func TestUnknownColorModeRetained(t *testing.T) {
	var b builder
	b.header(VersionPSD, 3, 4, 4, 8, ColorMode(42))
	b.u32(0).u32(0).u32(0)

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, ColorMode(42), doc.ColorMode())
}

func TestColorModeDataRetainedVerbatim(t *testing.T) {
	palette := make([]byte, 768)
	for i := range palette {
		palette[i] = byte(i)
	}
	var b builder
	b.header(VersionPSD, 1, 4, 4, 8, ColorModeIndexed)
	b.u32(768).bytesOf(palette)
	b.u32(0).u32(0)

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, palette, doc.ColorModeData())
}

func TestParseIsDeterministic(t *testing.T) {
	data := minimalRGB()

	a, err := ParseBytes(data)
	require.NoError(t, err)
	defer a.Close()
	b, err := ParseBytes(data)
	require.NoError(t, err)
	defer b.Close()

	aw, ah := a.Dimensions()
	bw, bh := b.Dimensions()
	assert.Equal(t, aw, bw)
	assert.Equal(t, ah, bh)
	assert.Equal(t, a.ColorMode(), b.ColorMode())
	assert.Equal(t, a.Depth(), b.Depth())
	assert.Equal(t, a.Channels(), b.Channels())
	assert.Equal(t, a.LayerCount(), b.LayerCount())
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, int32(0), StatusCode(nil))
	assert.Equal(t, int32(-203), StatusCode(ErrCorruptData))
	assert.Equal(t, int32(-400), StatusCode(ErrBufferTooSmall))
	assert.Equal(t, int32(-200), StatusCode(ErrInvalidFileFormat))
}

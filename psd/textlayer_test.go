package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const styleEngineData = "<< /EngineDict << /StyleRun << /RunArray [ << /StyleSheet << /StyleSheetData << " +
	"/Font 1 /FontSize 12.0 /AutoLeading 1.2 /Tracking 50.0 " +
	"/FillColor << /Type 1 /Values [ 1.0 0.0 0.25 ] >> " +
	">> >> >> ] >> /ParagraphRun << /Justification 2 >> >> " +
	"/ResourceDict << /FontSet [ << /Name (Helvetica) >> << /Name (ArialMT) >> ] >> >>"

// tyShPayload assembles a complete modern text block: version, affine
// transform, text version, descriptor version, text descriptor, warp
// header and descriptor, and the trailing four-double bounds.
func tyShPayload(text string, engine []byte) []byte {
	var b builder
	b.u16(1)                                         // TySh version
	b.f64(1).f64(0).f64(0).f64(1).f64(10.5).f64(20) // transform
	b.u16(50)                                        // text version
	b.u32(16)                                        // text descriptor version
	b.bytesOf(textDescriptor(text, engine))
	b.u16(1)  // warp version
	b.u32(16) // warp descriptor version
	var warp builder
	warp.ostype("warp")
	warp.u32(0)
	b.bytesOf(warp.bytes())
	b.f64(1).f64(2).f64(101).f64(52) // bounds: left, top, right, bottom
	return b.bytes()
}

func textLayerDoc(text string, engine []byte) []byte {
	extra := layerExtra("text layer", func(e *builder) {
		e.taggedBlock("TySh", tyShPayload(text, engine))
	})

	var b builder
	b.header(VersionPSD, 3, 8, 8, 8, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	buildLayerSection(&b, 1, []simpleLayerSpec{{
		bounds:    Bounds{Top: 2, Left: 1, Bottom: 4, Right: 3},
		extra:     extra,
		channels:  []int16{0},
		chPayload: [][]byte{{1, 2, 3, 4}},
	}}, false)
	return b.bytes()
}

func TestTextLayerIndexAndType(t *testing.T) {
	doc, err := ParseBytes(textLayerDoc("Hi", []byte(styleEngineData)))
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 1, doc.TextLayerCount())
	layer, err := doc.Layer(0)
	require.NoError(t, err)
	assert.True(t, layer.Features.HasText)
	assert.Equal(t, LayerTypeText, layer.Type())

	tl, err := doc.TextLayerAt(0)
	require.NoError(t, err)
	assert.Equal(t, 0, tl.LayerIndex)
	assert.Equal(t, TextSourceTySh, tl.Source)
	assert.True(t, tl.HasRenderedPixels)
	assert.Equal(t, uint16(1), tl.TyShVersion)
	assert.Equal(t, uint16(50), tl.TextVersion)
	assert.Equal(t, uint32(16), tl.TextDescVersion)
}

func TestTextLayerTransformAndBounds(t *testing.T) {
	doc, err := ParseBytes(textLayerDoc("Hi", []byte(styleEngineData)))
	require.NoError(t, err)
	defer doc.Close()

	matrix, bounds, err := doc.TextLayerMatrixBounds(0)
	require.NoError(t, err)
	assert.Equal(t, TextMatrix{XX: 1, YY: 1, TX: 10.5, TY: 20}, matrix)
	assert.Equal(t, TextBounds{Left: 1, Top: 2, Right: 101, Bottom: 52}, bounds)
}

func TestTextLayerGetText(t *testing.T) {
	doc, err := ParseBytes(textLayerDoc("Hello, 世界", []byte(styleEngineData)))
	require.NoError(t, err)
	defer doc.Close()

	text, err := doc.TextLayerText(0)
	require.NoError(t, err)
	assert.Equal(t, "Hello, 世界", text)

	// The descriptor is cached; a second call returns the same result
	// without re-parsing the payload.
	again, err := doc.TextLayerText(0)
	require.NoError(t, err)
	assert.Equal(t, text, again)
}

func TestTextLayerDefaultStyle(t *testing.T) {
	doc, err := ParseBytes(textLayerDoc("Hi", []byte(styleEngineData)))
	require.NoError(t, err)
	defer doc.Close()

	style, err := doc.TextLayerDefaultStyle(0)
	require.NoError(t, err)

	assert.Equal(t, "ArialMT", style.FontName, "the /Font index selects from /FontSet")
	assert.Equal(t, 12.0, style.Size)
	assert.Equal(t, 50.0, style.Tracking)
	assert.InDelta(t, 14.4, style.Leading, 1e-9, "leading falls back to size * AutoLeading")
	assert.Equal(t, JustifyCenter, style.Justification)
	assert.Equal(t, [4]uint8{255, 0, 64, 255}, style.ColorRGBA)
}

func TestTextLayerStyleRejectsMissingFont(t *testing.T) {
	doc, err := ParseBytes(textLayerDoc("Hi", []byte("<< /NoUsefulKeys 1 >>")))
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.TextLayerDefaultStyle(0)
	assert.ErrorIs(t, err, ErrInvalidStructure)
}

func TestNonTextLayerQueriesFail(t *testing.T) {
	doc, err := ParseBytes(onePixelLayerDoc(false))
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.TextLayerText(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLegacyTyShRetainedWithoutEagerParse(t *testing.T) {
	extra := layerExtra("old", func(e *builder) {
		e.taggedBlock("tySh", []byte{0, 1, 2, 3, 4, 5})
	})

	var b builder
	b.header(VersionPSD, 3, 8, 8, 8, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	buildLayerSection(&b, 1, []simpleLayerSpec{{
		bounds:    Bounds{Bottom: 2, Right: 2},
		extra:     extra,
		channels:  []int16{0},
		chPayload: [][]byte{{1, 2, 3, 4}},
	}}, false)

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 1, doc.TextLayerCount())
	tl, err := doc.TextLayerAt(0)
	require.NoError(t, err)
	assert.Equal(t, TextSourceTyShLegacy, tl.Source)

	raw, err := doc.LayerDescriptor(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5}, raw)
}

func TestEngineDataToUTF8(t *testing.T) {
	var blob builder
	blob.str("/Text (")
	blob.raw(0xFE, 0xFF)
	blob.utf16be("héllo")
	blob.str(") /Plain (ascii)")

	out, err := engineDataToUTF8(blob.bytes())
	require.NoError(t, err)
	assert.Equal(t, "/Text (héllo) /Plain (ascii)", out)
}

func TestEngineDataLittleEndianBOM(t *testing.T) {
	var blob builder
	blob.str("(")
	blob.raw(0xFF, 0xFE)
	blob.raw('A', 0x00, 'B', 0x00)
	blob.str(")")

	out, err := engineDataToUTF8(blob.bytes())
	require.NoError(t, err)
	assert.Equal(t, "(AB)", out)
}

func TestEngineDataUnmatchedParen(t *testing.T) {
	_, err := engineDataToUTF8([]byte("/Text (oops"))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

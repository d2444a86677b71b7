package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onePixelLayerDoc builds a 4x4 RGB document with a single 2x2 layer
// holding one raw channel.
func onePixelLayerDoc(payloadOnly bool) []byte {
	var b builder
	b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	buildLayerSection(&b, 1, []simpleLayerSpec{{
		bounds:    Bounds{Top: 0, Left: 0, Bottom: 2, Right: 2},
		extra:     layerExtra("bg", nil),
		channels:  []int16{0},
		chPayload: [][]byte{{1, 2, 3, 4}},
	}}, payloadOnly)
	return b.bytes()
}

func TestParseSingleLayer(t *testing.T) {
	doc, err := ParseBytes(onePixelLayerDoc(false))
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 1, doc.LayerCount())
	layer, err := doc.Layer(0)
	require.NoError(t, err)

	assert.Equal(t, Bounds{Top: 0, Left: 0, Bottom: 2, Right: 2}, layer.Bounds)
	assert.False(t, layer.BoundsInvalid)
	assert.Equal(t, "bg", layer.Name)
	assert.Equal(t, uint32(0x3842494D), layer.BlendSig)
	assert.Equal(t, uint32(0x6E6F726D), layer.BlendKey)
	assert.Equal(t, uint8(255), layer.Opacity)
	assert.Equal(t, LayerTypePixel, layer.Type())
	require.Len(t, layer.Channels, 1)
	assert.Equal(t, int16(0), layer.Channels[0].ID)
	assert.Equal(t, CompressionRaw, layer.Channels[0].Compression)
}

// The per-channel length heuristic must pick correctly whether the
// stored lengths include the 2-byte compression field or not.
func TestChannelLengthHeuristicBothConventions(t *testing.T) {
	for _, payloadOnly := range []bool{false, true} {
		doc, err := ParseBytes(onePixelLayerDoc(payloadOnly))
		require.NoError(t, err, "payloadOnly=%v", payloadOnly)

		id, data, kind, err := doc.LayerChannelData(0, 0)
		require.NoError(t, err)
		assert.Equal(t, int16(0), id)
		assert.Equal(t, CompressionRaw, kind)
		assert.Equal(t, []byte{1, 2, 3, 4}, data)
		doc.Close()
	}
}

func TestLayerChannelLazyDecodeIdempotent(t *testing.T) {
	doc, err := ParseBytes(onePixelLayerDoc(false))
	require.NoError(t, err)
	defer doc.Close()

	_, first, _, err := doc.LayerChannelData(0, 0)
	require.NoError(t, err)
	_, second, _, err := doc.LayerChannelData(0, 0)
	require.NoError(t, err)
	// Same backing array: the decode ran once.
	assert.Same(t, &first[0], &second[0])
}

func TestTransparencyLayerFlag(t *testing.T) {
	var b builder
	b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	buildLayerSection(&b, -1, []simpleLayerSpec{{
		bounds:    Bounds{Bottom: 1, Right: 1},
		extra:     layerExtra("a", nil),
		channels:  []int16{0},
		chPayload: [][]byte{{9}},
	}}, false)

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()
	assert.True(t, doc.HasTransparencyLayer())
	assert.Equal(t, 1, doc.LayerCount())
}

func TestUnicodeNameOverride(t *testing.T) {
	var luni builder
	luni.unicodeString("Überschrift")
	extra := layerExtra("legacy", func(e *builder) {
		e.taggedBlock("luni", luni.bytes())
	})

	var b builder
	b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	buildLayerSection(&b, 1, []simpleLayerSpec{{
		bounds:    Bounds{Bottom: 1, Right: 1},
		extra:     extra,
		channels:  []int16{0},
		chPayload: [][]byte{{9}},
	}}, false)

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	layer, err := doc.Layer(0)
	require.NoError(t, err)
	assert.Equal(t, "Überschrift", layer.Name)
}

func TestGroupMarkersAndFeatures(t *testing.T) {
	var start builder
	start.u32(1) // open folder
	var end builder
	end.u32(3) // bounding divider

	cases := []struct {
		name  string
		key   string
		extra []byte
		want  LayerType
	}{
		{"group start", "lsct", layerExtra("g", func(e *builder) { e.taggedBlock("lsct", start.bytes()) }), LayerTypeGroupStart},
		{"group end", "lsct", layerExtra("g", func(e *builder) { e.taggedBlock("lsct", end.bytes()) }), LayerTypeGroupEnd},
		{"effects", "lfx2", layerExtra("fx", func(e *builder) { e.taggedBlock("lfx2", []byte{0, 0}) }), LayerTypeEffects},
		{"fill", "SoCo", layerExtra("f", func(e *builder) { e.taggedBlock("SoCo", []byte{0, 0}) }), LayerTypeFill},
		{"adjustment", "levl", layerExtra("adj", func(e *builder) { e.taggedBlock("levl", []byte{0, 0}) }), LayerTypeAdjustment},
		{"smart object", "SoLd", layerExtra("so", func(e *builder) { e.taggedBlock("SoLd", []byte{0, 0}) }), LayerTypeSmartObject},
		{"video", "vtrk", layerExtra("v", func(e *builder) { e.taggedBlock("vtrk", []byte{0, 0}) }), LayerTypeVideo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b builder
			b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
			b.u32(0)
			b.u32(0)
			buildLayerSection(&b, 1, []simpleLayerSpec{{
				bounds:    Bounds{Bottom: 1, Right: 1},
				extra:     tc.extra,
				channels:  []int16{0},
				chPayload: [][]byte{{9}},
			}}, false)

			doc, err := ParseBytes(b.bytes())
			require.NoError(t, err)
			defer doc.Close()

			layer, err := doc.Layer(0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, layer.Type())
		})
	}
}

func TestLayerTypeDeterministic(t *testing.T) {
	l := &Layer{Features: Features{HasText: true, HasEffects: true}}
	first := l.Type()
	assert.Equal(t, LayerTypeText, first)
	assert.Equal(t, first, l.Type())
}

func TestBoundsValidation(t *testing.T) {
	var b builder
	b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	buildLayerSection(&b, 1, []simpleLayerSpec{{
		// Inverted box: right < left.
		bounds:    Bounds{Top: 0, Left: 10, Bottom: 2, Right: 2},
		extra:     layerExtra("bad", nil),
		channels:  nil,
		chPayload: nil,
	}}, false)

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	layer, err := doc.Layer(0)
	require.NoError(t, err)
	assert.True(t, layer.BoundsInvalid)
	// The stored values are kept, not reset.
	assert.Equal(t, int32(10), layer.Bounds.Left)
}

func TestOversizedExtraLengthDemotesLayer(t *testing.T) {
	big := make([]byte, maxLayerExtraLength+1)

	var b builder
	b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	buildLayerSection(&b, 1, []simpleLayerSpec{{
		bounds: Bounds{Bottom: 2, Right: 2},
		extra:  big,
	}}, false)

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	layer, err := doc.Layer(0)
	require.NoError(t, err)
	assert.Equal(t, LayerTypeEmpty, layer.Type())
	assert.Equal(t, Bounds{}, layer.Bounds)
	assert.Empty(t, layer.Channels)
}

func TestBackgroundLayerPredicate(t *testing.T) {
	bg := func(flags uint8, ids []int16) []byte {
		payloads := make([][]byte, len(ids))
		for i := range payloads {
			payloads[i] = []byte{1, 2, 3, 4}
		}
		var b builder
		b.header(VersionPSD, 3, 4, 4, 8, ColorModeRGB)
		b.u32(0)
		b.u32(0)
		buildLayerSection(&b, int16(1), []simpleLayerSpec{{
			bounds:    Bounds{Bottom: 2, Right: 2},
			flags:     flags,
			extra:     layerExtra("Background", nil),
			channels:  ids,
			chPayload: payloads,
		}}, false)
		return b.bytes()
	}

	doc, err := ParseBytes(bg(0x04, []int16{0, 1, 2}))
	require.NoError(t, err)
	assert.True(t, doc.IsBackground(0, 3))
	assert.False(t, doc.IsBackground(0, 4), "channel count must match base count")
	doc.Close()

	// Background flag missing.
	doc, err = ParseBytes(bg(0x00, []int16{0, 1, 2}))
	require.NoError(t, err)
	assert.False(t, doc.IsBackground(0, 3))
	doc.Close()

	// A transparency channel disqualifies the layer.
	doc, err = ParseBytes(bg(0x04, []int16{0, 1, 2, -1}))
	require.NoError(t, err)
	assert.False(t, doc.IsBackground(0, 3))
	assert.False(t, doc.IsBackground(0, 4))
	doc.Close()
}

func TestMaskChannelDecodesAtEightBits(t *testing.T) {
	// Depth-16 document; the user mask channel (-2) stays 8-bit, so a
	// 2x2 mask is 4 bytes, not 8.
	var b builder
	b.header(VersionPSD, 3, 4, 4, 16, ColorModeRGB)
	b.u32(0)
	b.u32(0)
	buildLayerSection(&b, 1, []simpleLayerSpec{{
		bounds:    Bounds{Bottom: 2, Right: 2},
		extra:     layerExtra("m", nil),
		channels:  []int16{0, -2},
		chPayload: [][]byte{{0, 1, 2, 3, 4, 5, 6, 7}, {9, 9, 9, 9}},
	}}, false)

	doc, err := ParseBytes(b.bytes())
	require.NoError(t, err)
	defer doc.Close()

	id, data, _, err := doc.LayerChannelData(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int16(-2), id)
	assert.Equal(t, []byte{9, 9, 9, 9}, data)
}

// Package psd decodes Adobe Photoshop documents in both the standard
// format (PSD) and the large-document format (PSB). It parses the five
// file sections into an in-memory Document with per-layer records,
// lazily decoded channel data, a derived text-layer index, and the
// composite image. Rendering to RGBA8 lives in the render package.
package psd

import "fmt"

// Parse reads a complete Photoshop document from the stream, which must
// be positioned at the start of the file. The five sections are read in
// order: header, color-mode data, image resources, layer and mask info,
// composite image data. The stream is owned by the caller and may be
// closed after Parse returns.
//
// Text-layer index failures never abort parsing (the index is left
// partial), and composite failures of the end-of-stream, invalid-stream
// and unsupported-compression kinds leave the document intact with no
// composite buffer. Every other failure aborts.
func Parse(s *Stream) (*Document, error) {
	if s == nil {
		return nil, ErrNullPointer
	}

	d := &Document{}

	if err := d.parseHeader(s); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if err := d.parseColorModeData(s); err != nil {
		return nil, fmt.Errorf("color mode data: %w", err)
	}
	if err := d.parseResources(s); err != nil {
		return nil, fmt.Errorf("image resources: %w", err)
	}
	if err := d.parseLayerInfo(s); err != nil {
		return nil, fmt.Errorf("layer info: %w", err)
	}

	if err := d.buildTextLayerIndex(); err != nil {
		debugf("text layer index left partial: %v", err)
	}

	if err := d.parseComposite(s); err != nil {
		if !compositeErrorIsSoft(err) {
			return nil, fmt.Errorf("composite image: %w", err)
		}
		debugf("composite image unavailable: %v", err)
		d.composite.data = nil
	}

	return d, nil
}

// ParseBytes parses a document held entirely in memory.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(NewBufferStream(data))
}

// Close releases every buffer the document owns. The document must not be
// used afterwards; all previously returned slices are invalidated.
func (d *Document) Close() {
	d.colorModeData = nil
	d.resources = nil
	for i := range d.layers {
		layer := &d.layers[i]
		for j := range layer.Channels {
			layer.Channels[j].compressed = nil
			layer.Channels[j].decoded = nil
		}
		layer.Channels = nil
		layer.extra = nil
	}
	d.layers = nil
	d.composite.data = nil
	for i := range d.textLayers {
		d.textLayers[i].raw = nil
		d.textLayers[i].textData = nil
		d.textLayers[i].warpData = nil
	}
	d.textLayers = nil
}

// Dimensions reports the document width and height in pixels.
func (d *Document) Dimensions() (width, height uint32) {
	return d.width, d.height
}

// ColorMode reports the 16-bit color mode stored in the header.
func (d *Document) ColorMode() ColorMode { return d.colorMode }

// Depth reports the bit depth per channel (1, 8, 16 or 32).
func (d *Document) Depth() uint16 { return d.depth }

// Channels reports the document channel count.
func (d *Document) Channels() uint16 { return d.channels }

// IsLarge reports whether the file uses the large-document format.
func (d *Document) IsLarge() bool { return d.isLarge }

// ColorModeData reports the raw color-mode data section bytes. For
// indexed documents this is conventionally a 768-byte RGB palette.
func (d *Document) ColorModeData() []byte { return d.colorModeData }

// ResourceCount reports the number of parsed image resource blocks.
func (d *Document) ResourceCount() int { return len(d.resources) }

// Resource returns the resource block at the given index.
func (d *Document) Resource(index int) (*ResourceBlock, error) {
	if index < 0 || index >= len(d.resources) {
		return nil, fmt.Errorf("resource index %d: %w", index, ErrOutOfRange)
	}
	return &d.resources[index], nil
}

// FindResource returns the index of the first resource with the given id.
func (d *Document) FindResource(id uint16) (int, error) {
	for i := range d.resources {
		if d.resources[i].ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("resource id %d: %w", id, ErrInvalidArgument)
}

// LayerCount reports the number of parsed layers.
func (d *Document) LayerCount() int { return len(d.layers) }

// HasTransparencyLayer reports the transparency-layer flag (a negative
// layer count in the file).
func (d *Document) HasTransparencyLayer() bool { return d.hasTransparencyLayer }

// Layer returns the layer record at the given index.
func (d *Document) Layer(index int) (*Layer, error) {
	if index < 0 || index >= len(d.layers) {
		return nil, fmt.Errorf("layer index %d: %w", index, ErrOutOfRange)
	}
	return &d.layers[index], nil
}

// CompositeImage reports the decoded composite buffer (planar, channel
// major) and its original compression kind. The buffer is nil when the
// file carried no decodable composite.
func (d *Document) CompositeImage() ([]byte, Compression) {
	return d.composite.data, d.composite.compression
}

// LayerChannelData decodes the addressed channel on first access and
// returns its id, decoded bytes and original compression. Empty layers
// return nil data. The call mutates the channel cache and must not run
// concurrently with other accesses to the same document.
func (d *Document) LayerChannelData(layerIndex, channelIndex int) (id int16, data []byte, compression Compression, err error) {
	layer, err := d.Layer(layerIndex)
	if err != nil {
		return 0, nil, 0, err
	}
	if channelIndex < 0 || channelIndex >= len(layer.Channels) {
		return 0, nil, 0, fmt.Errorf("channel index %d: %w", channelIndex, ErrOutOfRange)
	}
	ch := &layer.Channels[channelIndex]

	width := layer.Bounds.Width()
	height := layer.Bounds.Height()
	if width == 0 || height == 0 {
		return ch.ID, nil, ch.Compression, nil
	}

	if err := ch.decode(width, height, d.depth); err != nil {
		return ch.ID, nil, ch.Compression, err
	}
	return ch.ID, ch.decoded, ch.Compression, nil
}

// LayerDescriptor reports the raw descriptor payload retained for the
// layer: the text tagged-block bytes for text layers, empty otherwise.
func (d *Document) LayerDescriptor(layerIndex int) ([]byte, error) {
	if layerIndex < 0 || layerIndex >= len(d.layers) {
		return nil, fmt.Errorf("layer index %d: %w", layerIndex, ErrOutOfRange)
	}
	if tl := d.findTextLayer(layerIndex); tl != nil {
		return tl.raw, nil
	}
	return nil, nil
}

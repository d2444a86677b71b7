package psd

import "fmt"

// The text-layer index is derived after layer parsing: each layer with
// the text feature has its extra data rescanned for 'TySh' / 'tySh'
// blocks and a record is emitted per block, retaining the raw payload.
// Only the rendering-essential fields (transform, bounds, versions) are
// extracted eagerly; the descriptors are parsed on first access.

// buildTextLayerIndex walks all layers and populates the derived text
// table. A 'TySh' payload whose eager fields cannot be read is still
// indexed, with the unread fields left zero.
func (d *Document) buildTextLayerIndex() error {
	d.textLayers = nil
	for i := range d.layers {
		layer := &d.layers[i]
		if !layer.Features.HasText || len(layer.extra) < 12 {
			continue
		}
		d.scanTextBlocks(i, layer)
	}
	return nil
}

// scanTextBlocks skips the mask-data, blending-range and name sub-regions
// of the extra data, then emits a text record for every text tagged block.
func (d *Document) scanTextBlocks(layerIndex int, layer *Layer) {
	data := layer.extra

	// Layer mask data.
	if len(data) >= 4 {
		maskLen := be.Uint32(data)
		data = data[4:]
		if maskLen > 0 && uint64(maskLen) <= uint64(len(data)) {
			data = data[maskLen:]
		}
	}
	// Blending ranges.
	if len(data) >= 4 {
		blendLen := be.Uint32(data)
		data = data[4:]
		if blendLen > 0 && uint64(blendLen) <= uint64(len(data)) {
			data = data[blendLen:]
		}
	}
	// Layer name, padded to a multiple of four with its length byte.
	if len(data) >= 1 {
		nameTotal := 1 + int(data[0])
		if nameTotal%4 != 0 {
			nameTotal += 4 - nameTotal%4
		}
		if nameTotal <= len(data) {
			data = data[nameTotal:]
		}
	}

	hasPixels := len(layer.Channels) > 0 &&
		layer.Bounds.Right > layer.Bounds.Left &&
		layer.Bounds.Bottom > layer.Bounds.Top

	for len(data) >= 12 {
		sig := be.Uint32(data)
		key := be.Uint32(data[4:])
		blockLen := be.Uint32(data[8:])
		if uint64(blockLen) > uint64(len(data)-12) {
			break
		}
		blockTotal := 12 + int(blockLen)
		if blockLen%2 != 0 {
			blockTotal++
		}
		if blockTotal > len(data) {
			break
		}
		if sig != SigBIM && sig != SigB64 {
			data = data[blockTotal:]
			continue
		}
		payload := data[12 : 12+blockLen]

		switch key {
		case keyTySh:
			item := TextLayer{
				LayerIndex:        layerIndex,
				Source:            TextSourceTySh,
				HasRenderedPixels: hasPixels,
				raw:               append([]byte(nil), payload...),
			}
			if err := parseTyShEager(&item, payload); err != nil {
				debugf("text layer %d: eager TySh parse failed: %v", layerIndex, err)
			}
			d.textLayers = append(d.textLayers, item)
		case keytySh:
			d.textLayers = append(d.textLayers, TextLayer{
				LayerIndex:        layerIndex,
				Source:            TextSourceTyShLegacy,
				HasRenderedPixels: hasPixels,
				raw:               append([]byte(nil), payload...),
			})
		}

		data = data[blockTotal:]
	}
}

// parseTyShEager extracts the rendering-essential fields of a 'TySh'
// payload: version, the six-double affine transform, the text versions,
// and the four-double bounds stored in the last 32 bytes.
func parseTyShEager(item *TextLayer, payload []byte) error {
	s := NewBufferStream(payload)

	var err error
	if item.TyShVersion, err = s.ReadUint16(); err != nil {
		return err
	}
	if item.Transform.XX, err = s.ReadFloat64(); err != nil {
		return err
	}
	if item.Transform.XY, err = s.ReadFloat64(); err != nil {
		return err
	}
	if item.Transform.YX, err = s.ReadFloat64(); err != nil {
		return err
	}
	if item.Transform.YY, err = s.ReadFloat64(); err != nil {
		return err
	}
	if item.Transform.TX, err = s.ReadFloat64(); err != nil {
		return err
	}
	if item.Transform.TY, err = s.ReadFloat64(); err != nil {
		return err
	}
	if item.TextVersion, err = s.ReadUint16(); err != nil {
		return err
	}
	if item.TextDescVersion, err = s.ReadUint32(); err != nil {
		return err
	}

	// The text bounds are the last 32 bytes of the payload: four doubles
	// in left, top, right, bottom order.
	if len(payload) >= 70 {
		if err := s.Seek(int64(len(payload)) - 32); err != nil {
			return err
		}
		if item.Bounds.Left, err = s.ReadFloat64(); err != nil {
			return err
		}
		if item.Bounds.Top, err = s.ReadFloat64(); err != nil {
			return err
		}
		if item.Bounds.Right, err = s.ReadFloat64(); err != nil {
			return err
		}
		if item.Bounds.Bottom, err = s.ReadFloat64(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) findTextLayer(layerIndex int) *TextLayer {
	for i := range d.textLayers {
		if d.textLayers[i].LayerIndex == layerIndex {
			return &d.textLayers[i]
		}
	}
	return nil
}

// TextLayerCount reports the number of derived text-layer records.
func (d *Document) TextLayerCount() int { return len(d.textLayers) }

// TextLayerAt returns the derived text record at the given position in
// the index (not the layer index).
func (d *Document) TextLayerAt(index int) (*TextLayer, error) {
	if index < 0 || index >= len(d.textLayers) {
		return nil, fmt.Errorf("text layer index %d: %w", index, ErrOutOfRange)
	}
	return &d.textLayers[index], nil
}

// ensureDescriptorsParsed parses the text (and, when present, warp)
// descriptors from the retained raw payload. It runs at most once per
// record; subsequent calls return the cached result. Missing warp data is
// not an error.
func (d *Document) ensureDescriptorsParsed(item *TextLayer) error {
	if item.textData != nil {
		return nil
	}
	if len(item.raw) == 0 {
		return fmt.Errorf("text layer %d has no retained payload: %w", item.LayerIndex, ErrCorruptData)
	}

	s := NewBufferStream(item.raw)

	v16, err := s.ReadUint16()
	if err != nil {
		return err
	}
	item.TyShVersion = v16

	if err := s.Skip(48); err != nil { // six transform doubles
		return err
	}

	if v16, err = s.ReadUint16(); err != nil {
		return err
	}
	item.TextVersion = v16

	v32, err := s.ReadUint32()
	if err != nil {
		return err
	}
	item.TextDescVersion = v32

	text, err := ParseDescriptor(s)
	if err != nil {
		return err
	}
	item.textData = text

	// Warp data is optional; stop quietly at end of payload.
	if v16, err = s.ReadUint16(); err != nil {
		return nil
	}
	item.WarpVersion = v16
	if v32, err = s.ReadUint32(); err != nil {
		return nil
	}
	item.WarpDescVersion = v32
	if warp, err := ParseDescriptor(s); err == nil {
		item.warpData = warp
	}
	return nil
}

// TextLayerText extracts the text content of the layer at layerIndex: the
// 'Txt ' TEXT property of the text descriptor, parsed on first access and
// cached.
func (d *Document) TextLayerText(layerIndex int) (string, error) {
	item := d.findTextLayer(layerIndex)
	if item == nil {
		return "", fmt.Errorf("layer %d is not a text layer: %w", layerIndex, ErrInvalidArgument)
	}
	if err := d.ensureDescriptorsParsed(item); err != nil {
		return "", err
	}
	text, ok := item.textData.FindString("Txt ")
	if !ok {
		return "", fmt.Errorf("text layer %d has no 'Txt ' property: %w", layerIndex, ErrInvalidStructure)
	}
	return text, nil
}

// TextLayerMatrixBounds reports the eagerly extracted transform and text
// bounds of the layer at layerIndex.
func (d *Document) TextLayerMatrixBounds(layerIndex int) (TextMatrix, TextBounds, error) {
	item := d.findTextLayer(layerIndex)
	if item == nil {
		return TextMatrix{}, TextBounds{}, fmt.Errorf("layer %d is not a text layer: %w", layerIndex, ErrInvalidArgument)
	}
	return item.Transform, item.Bounds, nil
}

// TextLayerDefaultStyle extracts the single-run default style from the
// layer's EngineData: font, size, color, tracking, leading and
// justification. An EngineData blob without a usable font name or size is
// an invalid structure.
func (d *Document) TextLayerDefaultStyle(layerIndex int) (TextStyle, error) {
	style := TextStyle{
		ColorRGBA:     [4]uint8{0, 0, 0, 255},
		Justification: JustifyLeft,
	}

	item := d.findTextLayer(layerIndex)
	if item == nil {
		return style, fmt.Errorf("layer %d is not a text layer: %w", layerIndex, ErrInvalidArgument)
	}
	if err := d.ensureDescriptorsParsed(item); err != nil {
		return style, err
	}

	engine, ok := item.textData.FindRaw("EngineData")
	if !ok || len(engine) == 0 {
		return style, fmt.Errorf("text layer %d has no EngineData: %w", layerIndex, ErrInvalidStructure)
	}
	return parseEngineDataStyle(engine)
}

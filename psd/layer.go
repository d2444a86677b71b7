package psd

import "fmt"

// The layer and mask info section is where real-world writers disagree
// with the published specification the most. Every length field here is
// treated as nominal and confirmed by independent byte accounting before
// it is committed; the fallbacks below mirror what files in the wild
// actually contain.

const boundsSanityLimit = 1000000

// parseLayerInfo reads the complete layer and mask information section:
// layer records, the channel image data that follows them, and the global
// layer mask info. The stream ends positioned at the section end.
func (d *Document) parseLayerInfo(s *Stream) error {
	// Outer section length: 4 bytes standard, 8 bytes large. Some large
	// format writers still emit 4 bytes; probe the computed end with a
	// seek and fall back when it is not plausible.
	sectionLenPos, err := s.Tell()
	if err != nil {
		return err
	}
	sectionLength, err := s.ReadLength(d.isLarge)
	if err != nil {
		return err
	}
	if sectionLength == 0 {
		return nil
	}

	sectionStart, err := s.Tell()
	if err != nil {
		return err
	}
	sectionEnd := sectionStart + int64(sectionLength)
	if d.isLarge {
		if err := s.Seek(sectionEnd); err != nil {
			debugf("layer info: 8-byte section length implausible, rereading as 4 bytes")
			if err := s.Seek(sectionLenPos); err != nil {
				return err
			}
			len32, err := s.ReadUint32()
			if err != nil {
				return err
			}
			sectionLength = uint64(len32)
			if sectionStart, err = s.Tell(); err != nil {
				return err
			}
			sectionEnd = sectionStart + int64(sectionLength)
		} else if err := s.Seek(sectionStart); err != nil {
			return err
		}
	}

	// Layer-info subsection length, with the same 8-to-4 byte fallback
	// when the computed end escapes the outer section.
	layerInfoLenPos, err := s.Tell()
	if err != nil {
		return err
	}
	layerInfoLength, err := s.ReadLength(d.isLarge)
	if err != nil {
		return err
	}
	layerInfoStart, err := s.Tell()
	if err != nil {
		return err
	}
	layerInfoEnd := layerInfoStart + int64(layerInfoLength)
	if layerInfoEnd > sectionEnd && d.isLarge {
		debugf("layer info: 8-byte subsection length overruns section, rereading as 4 bytes")
		if err := s.Seek(layerInfoLenPos); err != nil {
			return err
		}
		len32, err := s.ReadUint32()
		if err != nil {
			return err
		}
		layerInfoLength = uint64(len32)
		if layerInfoStart, err = s.Tell(); err != nil {
			return err
		}
		layerInfoEnd = layerInfoStart + int64(layerInfoLength)
	}
	if layerInfoEnd > sectionEnd {
		return fmt.Errorf("layer info subsection overruns section: %w", ErrCorruptData)
	}

	// A negative layer count flags the transparency layer; the absolute
	// value is the true count.
	rawCount, err := s.ReadUint16()
	if err != nil {
		return err
	}
	layerCount := int(int16(rawCount))
	if layerCount < 0 {
		d.hasTransparencyLayer = true
		layerCount = -layerCount
	}

	layers := make([]Layer, layerCount)
	parsed := layerCount
	for i := 0; i < layerCount; i++ {
		stop, err := d.parseLayerRecord(s, &layers[i], sectionEnd, layerInfoEnd)
		if err != nil {
			return err
		}
		if stop {
			parsed = i + 1
			break
		}

		pos, err := s.Tell()
		if err != nil {
			return err
		}
		if pos > layerInfoEnd {
			return fmt.Errorf("layer %d overruns layer info: %w", i, ErrCorruptData)
		}
	}
	d.layers = layers[:parsed]

	if err := d.parseChannelImageData(s, layerInfoEnd); err != nil {
		return err
	}

	pos, err := s.Tell()
	if err != nil {
		return err
	}
	if pos != layerInfoEnd {
		if err := s.Seek(layerInfoEnd); err != nil {
			return err
		}
	}

	// Global layer mask info: 4-byte length, contents skipped.
	globalMaskLength, err := s.ReadUint32()
	if err != nil {
		return err
	}
	if globalMaskLength > 0 {
		if err := s.Skip(int64(globalMaskLength)); err != nil {
			return err
		}
	}

	// The section may carry additional tagged blocks after the global
	// mask; position at the section end so the composite image section
	// that follows stays aligned.
	if pos, err = s.Tell(); err != nil {
		return err
	}
	if pos < sectionEnd {
		if err := s.Seek(sectionEnd); err != nil {
			return err
		}
	} else if pos > sectionEnd {
		return fmt.Errorf("layer section overrun: %w", ErrCorruptData)
	}
	return nil
}

// parseLayerRecord reads one layer's fixed fields and extra data. It
// returns stop=true when layer parsing must end at this index because a
// skip would escape the section.
func (d *Document) parseLayerRecord(s *Stream, layer *Layer, sectionEnd, layerInfoEnd int64) (stop bool, err error) {
	layer.Opacity = 255

	if layer.Bounds.Top, err = s.ReadInt32(); err != nil {
		return false, err
	}
	if layer.Bounds.Left, err = s.ReadInt32(); err != nil {
		return false, err
	}
	if layer.Bounds.Bottom, err = s.ReadInt32(); err != nil {
		return false, err
	}
	if layer.Bounds.Right, err = s.ReadInt32(); err != nil {
		return false, err
	}

	// Bounds far outside any real canvas, or inverted boxes, mark the
	// layer as suspicious. The stored values are kept for inspection;
	// downstream code tolerates them.
	b := layer.Bounds
	if b.Top > boundsSanityLimit || b.Left > boundsSanityLimit ||
		b.Bottom > boundsSanityLimit || b.Right > boundsSanityLimit ||
		b.Top < -boundsSanityLimit || b.Left < -boundsSanityLimit ||
		b.Bottom < -boundsSanityLimit || b.Right < -boundsSanityLimit ||
		b.Bottom < b.Top || b.Right < b.Left {
		layer.BoundsInvalid = true
	}

	channelCount, err := s.ReadUint16()
	if err != nil {
		return false, err
	}
	if channelCount > MaxChannels {
		// Misalignment indicator; treat the layer as empty.
		debugf("layer: channel count %d exceeds limit, treating layer as empty", channelCount)
		channelCount = 0
	}

	if channelCount > 0 {
		layer.Channels = make([]LayerChannel, channelCount)
		for j := range layer.Channels {
			id, err := s.ReadUint16()
			if err != nil {
				return false, err
			}

			lenPos, err := s.Tell()
			if err != nil {
				return false, err
			}
			length, err := s.ReadLength(d.isLarge)
			if err != nil {
				return false, err
			}
			// Large format: an 8-byte channel length larger than what is
			// left of the subsection means the writer emitted 4 bytes.
			if d.isLarge {
				afterLen, err := s.Tell()
				if err != nil {
					return false, err
				}
				remaining := layerInfoEnd - afterLen
				if remaining > 0 && length > uint64(remaining) {
					debugf("layer channel: 8-byte length %d implausible, rereading as 4 bytes", length)
					if err := s.Seek(lenPos); err != nil {
						return false, err
					}
					len32, err := s.ReadUint32()
					if err != nil {
						return false, err
					}
					length = uint64(len32)
				}
			}
			if !d.isLarge && length > 0xFFFFFFFF {
				return false, fmt.Errorf("channel length %d in standard format: %w", length, ErrCorruptData)
			}

			layer.Channels[j] = LayerChannel{
				ID:            int16(id),
				compressedLen: length,
			}
		}
	}

	if layer.BlendSig, err = s.ReadUint32(); err != nil {
		return false, err
	}
	if layer.BlendKey, err = s.ReadUint32(); err != nil {
		return false, err
	}
	if layer.BlendSig != SigBIM && layer.BlendSig != SigB64 && layer.BoundsInvalid {
		// Bad bounds plus a bad blend signature confirms misalignment;
		// fall back to a normal blend so downstream stays sane.
		layer.BlendSig = SigBIM
		layer.BlendKey = 0x6E6F726D // 'norm'
	}

	var fixed [4]byte
	if err := s.ReadExact(fixed[:]); err != nil {
		return false, err
	}
	layer.Opacity = fixed[0]
	layer.Clipping = fixed[1]
	layer.Flags = fixed[2]
	// fixed[3] is the filler byte; its value is not validated.

	extraLength, err := s.ReadUint32()
	if err != nil {
		return false, err
	}

	if extraLength > maxLayerExtraLength {
		// Almost certainly misalignment into channel image data. Demote
		// the layer to empty and skip the declared bytes; if skipping
		// would escape the section, stop layer parsing here.
		debugf("layer: extra length %d over limit, demoting to empty layer", extraLength)
		layer.Channels = nil
		layer.Bounds = Bounds{}

		pos, err := s.Tell()
		if err != nil {
			return false, err
		}
		if pos+int64(extraLength) > sectionEnd {
			if err := s.Seek(sectionEnd); err != nil {
				return false, err
			}
			return true, nil
		}
		if err := s.Skip(int64(extraLength)); err != nil {
			return false, err
		}
		return false, nil
	}

	if extraLength > 0 {
		layer.extra = make([]byte, extraLength)
		if err := s.ReadExact(layer.extra); err != nil {
			return false, err
		}
		d.scanLayerExtra(layer)
	}
	return false, nil
}

// scanLayerExtra walks a layer's extra-data blob in place: layer mask
// data, blending ranges, the Pascal-padded name, then tagged blocks that
// carry the layer's feature markers.
func (d *Document) scanLayerExtra(layer *Layer) {
	data := layer.extra

	// Layer mask data: 4-byte length + data.
	if len(data) >= 4 {
		maskLen := be.Uint32(data)
		data = data[4:]
		if maskLen > 0 {
			if uint64(maskLen) > uint64(len(data)) {
				return
			}
			data = data[maskLen:]
		}
	}

	// Blending ranges: 4-byte length + data.
	if len(data) >= 4 {
		blendLen := be.Uint32(data)
		data = data[4:]
		if blendLen > 0 {
			if uint64(blendLen) > uint64(len(data)) {
				return
			}
			data = data[blendLen:]
		}
	}

	// Layer name: Pascal string padded so length byte + name is a
	// multiple of four, MacRoman in legacy files.
	if len(data) >= 1 {
		nameLen := int(data[0])
		nameTotal := 1 + nameLen
		if nameTotal%4 != 0 {
			nameTotal += 4 - nameTotal%4
		}
		if nameTotal > len(data) {
			return
		}
		if nameLen > 0 {
			layer.Name = macRomanToUTF8(data[1 : 1+nameLen])
		}
		data = data[nameTotal:]
	}

	// Tagged blocks: signature + key + length + payload padded to even.
	for len(data) >= 12 {
		sig := be.Uint32(data)
		if sig != SigBIM && sig != SigB64 {
			break
		}
		key := be.Uint32(data[4:])
		blockLen := be.Uint32(data[8:])
		if uint64(blockLen) > uint64(len(data)-12) {
			break
		}
		payload := data[12 : 12+blockLen]

		d.applyTaggedBlock(layer, key, payload)

		paddedLen := blockLen
		if blockLen%2 != 0 {
			paddedLen++
		}
		blockTotal := 12 + int(paddedLen)
		if blockTotal > len(data) {
			break
		}
		data = data[blockTotal:]
	}
}

// applyTaggedBlock sets feature flags (and the Unicode name override) for
// one recognized tagged block key. Unknown keys are ignored.
func (d *Document) applyTaggedBlock(layer *Layer, key uint32, payload []byte) {
	switch key {
	case keyTySh, keytySh:
		layer.Features.HasText = true
	case keySoLd, keySoLE:
		layer.Features.IsSmartObject = true
	case keyLfx2:
		layer.Features.HasEffects = true
	case keyVmsk, keyVmns:
		layer.Features.HasVectorMask = true
	case keySoCo, keyGdFl, keyPtFl:
		layer.Features.HasFill = true
	case keyVtrk:
		layer.Features.HasVideo = true
	case keyLsct:
		if len(payload) >= 4 {
			switch be.Uint32(payload) {
			case 1, 2: // open / closed folder
				layer.Features.IsGroupStart = true
			case 3: // bounding section divider
				layer.Features.IsGroupEnd = true
			}
		}
	case keyLuni:
		// Unicode name override: 4-byte character count + UTF-16BE.
		// Replaces the legacy MacRoman name.
		if len(payload) >= 4 {
			charCount := be.Uint32(payload)
			utf16Bytes := uint64(charCount) * 2
			if 4+utf16Bytes <= uint64(len(payload)) {
				layer.Name = utf16beToUTF8(payload[4 : 4+utf16Bytes])
			}
		}
	default:
		if adjustmentKeys[key] || key>>8 == 0x61646A || key>>8 == 0x33644C {
			// 'adj*' and '3dL*' prefixes
			if key>>8 == 0x33644C {
				layer.Features.Has3D = true
			} else {
				layer.Features.IsAdjustment = true
			}
		}
	}
}

// parseChannelImageData reads, for each layer in order, each channel's
// 2-byte compression kind and payload. Whether the per-channel length
// fields include the compression field is disambiguated by byte
// accounting over the whole block before anything is read.
func (d *Document) parseChannelImageData(s *Stream, layerInfoEnd int64) error {
	start, err := s.Tell()
	if err != nil {
		return err
	}
	remaining := layerInfoEnd - start
	if remaining < 0 {
		return fmt.Errorf("channel image data start past subsection: %w", ErrCorruptData)
	}

	var sumLengths, totalChannels uint64
	for i := range d.layers {
		totalChannels += uint64(len(d.layers[i].Channels))
		for j := range d.layers[i].Channels {
			sumLengths += d.layers[i].Channels[j].compressedLen
		}
	}
	// Per the specification the stored length counts the 2-byte
	// compression field; some writers store payload-only lengths.
	lengthsExcludeCompression := sumLengths+2*totalChannels == uint64(remaining)
	if lengthsExcludeCompression {
		debugf("channel data: payload-only channel lengths detected")
	}

	for i := range d.layers {
		layer := &d.layers[i]
		for j := range layer.Channels {
			ch := &layer.Channels[j]

			kind, err := s.ReadUint16()
			if err != nil {
				return err
			}
			if kind > 3 {
				return fmt.Errorf("channel compression %d: %w", kind, ErrCorruptData)
			}
			ch.Compression = Compression(kind)

			payloadLen := ch.compressedLen
			if !lengthsExcludeCompression {
				if ch.compressedLen < 2 {
					return fmt.Errorf("channel length %d below compression field: %w", ch.compressedLen, ErrCorruptData)
				}
				payloadLen = ch.compressedLen - 2
				ch.compressedLen = payloadLen
			}

			ch.compressed = make([]byte, payloadLen)
			if err := s.ReadExact(ch.compressed); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsBackground reports whether the layer at index is a true Photoshop
// background layer. Only meaningful for the bottom-most layer; at most
// one layer of any document satisfies it. baseChannelCount is the color
// mode's base channel count (RGB 3, CMYK 4, grayscale 1).
func (d *Document) IsBackground(index int, baseChannelCount int) bool {
	if index != len(d.layers)-1 || index < 0 {
		return false
	}
	layer := &d.layers[index]

	// Flags bit 2 marks the background layer.
	if layer.Flags&0x04 == 0 {
		return false
	}

	// No transparency channel.
	for i := range layer.Channels {
		if layer.Channels[i].ID == -1 {
			return false
		}
	}

	// No layer mask data and no vector mask in the extra-data blob.
	data := layer.extra
	if len(data) >= 4 {
		if be.Uint32(data) > 0 {
			return false
		}
		data = data[4:]
	}
	if len(data) >= 4 {
		blendLen := be.Uint32(data)
		data = data[4:]
		if blendLen > 0 && uint64(blendLen) <= uint64(len(data)) {
			data = data[blendLen:]
		}
	}
	if len(data) >= 1 {
		nameTotal := 1 + int(data[0])
		if nameTotal%4 != 0 {
			nameTotal += 4 - nameTotal%4
		}
		if nameTotal <= len(data) {
			data = data[nameTotal:]
		}
	}
	for len(data) >= 12 {
		sig := be.Uint32(data)
		if sig != SigBIM && sig != SigB64 {
			break
		}
		key := be.Uint32(data[4:])
		if key == keyVmsk || key == keyVmns {
			return false
		}
		blockLen := be.Uint32(data[8:])
		if uint64(blockLen) > uint64(len(data)-12) {
			break
		}
		paddedLen := blockLen
		if blockLen%2 != 0 {
			paddedLen++
		}
		blockTotal := 12 + int(paddedLen)
		if blockTotal > len(data) {
			break
		}
		data = data[blockTotal:]
	}

	return len(layer.Channels) == baseChannelCount
}

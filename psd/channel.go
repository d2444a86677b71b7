package psd

import "fmt"

// decode lazily produces the channel's decoded buffer for the given layer
// dimensions. The transition happens at most once: a second call returns
// the cached buffer, and a channel whose compression cannot be decoded is
// marked unavailable rather than failing the document.
func (ch *LayerChannel) decode(width, height uint32, depth uint16) error {
	if ch.state == channelDecoded {
		return nil
	}
	if ch.state == channelUnavailable {
		return fmt.Errorf("channel %d: %w", ch.ID, ErrUnsupportedCompression)
	}

	// User and vector masks (ids -2, -3) are stored at 8 bits regardless
	// of the document depth.
	if ch.ID == -2 || ch.ID == -3 {
		depth = 8
	}

	rowBytes := scanlineBytes(width, depth)
	expected := int(rowBytes * uint64(height))

	switch ch.Compression {
	case CompressionRaw:
		// Some writers pad raw payloads; trailing bytes are ignored.
		if len(ch.compressed) < expected {
			return fmt.Errorf("raw channel %d short (%d < %d): %w",
				ch.ID, len(ch.compressed), expected, ErrCorruptData)
		}
		decoded := make([]byte, expected)
		copy(decoded, ch.compressed[:expected])
		ch.decoded = decoded
		ch.state = channelDecoded
		return nil

	case CompressionRLE:
		decoded, err := rleDecodeChannel(ch.compressed, int(height), int(rowBytes))
		if err != nil {
			return err
		}
		ch.decoded = decoded
		ch.state = channelDecoded
		return nil

	case CompressionZIP:
		decoded, err := zipDecompress(ch.compressed, expected)
		if err != nil {
			return err
		}
		ch.decoded = decoded
		ch.state = channelDecoded
		return nil

	case CompressionZIPPred:
		bytesPerPixel := 1
		if depth > 8 {
			bytesPerPixel = int(depth / 8)
		}
		decoded, err := zipDecompressWithPrediction(ch.compressed, expected, int(rowBytes), bytesPerPixel)
		if err != nil {
			return err
		}
		ch.decoded = decoded
		ch.state = channelDecoded
		return nil

	default:
		ch.state = channelUnavailable
		return fmt.Errorf("channel compression %d: %w", ch.Compression, ErrUnsupportedCompression)
	}
}

// Decoded reports the decoded buffer, or nil while the channel is still
// pending or unavailable.
func (ch *LayerChannel) Decoded() []byte { return ch.decoded }

// CompressedData reports the retained compressed payload.
func (ch *LayerChannel) CompressedData() []byte { return ch.compressed }

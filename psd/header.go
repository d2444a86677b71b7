package psd

import "fmt"

// parseHeader reads and validates the fixed 26-byte file header. The
// stream must be positioned at the start of the file.
func (d *Document) parseHeader(s *Stream) error {
	sig, err := s.ReadUint32()
	if err != nil {
		return err
	}
	if sig != Signature {
		return fmt.Errorf("signature %08x: %w", sig, ErrInvalidFileFormat)
	}

	version, err := s.ReadUint16()
	if err != nil {
		return err
	}
	if version != VersionPSD && version != VersionPSB {
		return fmt.Errorf("version %d: %w", version, ErrUnsupportedVersion)
	}
	d.isLarge = version == VersionPSB

	// Six reserved bytes, not validated but required to be present.
	var reserved [6]byte
	if err := s.ReadExact(reserved[:]); err != nil {
		return err
	}

	if d.channels, err = s.ReadUint16(); err != nil {
		return err
	}
	if d.channels < 1 || d.channels > MaxChannels {
		return fmt.Errorf("channel count %d: %w", d.channels, ErrInvalidHeader)
	}

	if d.height, err = s.ReadUint32(); err != nil {
		return err
	}
	if d.width, err = s.ReadUint32(); err != nil {
		return err
	}
	maxDim := MaxDimensionPSD
	if d.isLarge {
		maxDim = MaxDimensionPSB
	}
	if d.width < 1 || d.width > maxDim || d.height < 1 || d.height > maxDim {
		return fmt.Errorf("dimensions %dx%d: %w", d.width, d.height, ErrInvalidHeader)
	}

	if d.depth, err = s.ReadUint16(); err != nil {
		return err
	}
	switch d.depth {
	case 1, 8, 16, 32:
	default:
		return fmt.Errorf("depth %d: %w", d.depth, ErrInvalidHeader)
	}

	// The color mode is stored as-is; newer modes must not be rejected.
	mode, err := s.ReadUint16()
	if err != nil {
		return err
	}
	d.colorMode = ColorMode(mode)

	return nil
}

// parseColorModeData reads the color-mode data section: a 4-byte length
// followed by that many bytes, retained verbatim. Indexed documents
// conventionally carry a 768-byte RGB palette here.
func (d *Document) parseColorModeData(s *Stream) error {
	length, err := s.ReadUint32()
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	buf := make([]byte, length)
	if err := s.ReadExact(buf); err != nil {
		return err
	}
	d.colorModeData = buf
	return nil
}

package psd

// parseResources reads the image resources section: a 4-byte section
// length followed by resource blocks until the section end. Parsing stops
// at the first unknown block signature, but the stream is repositioned to
// the section end so the following sections stay aligned. All successfully
// parsed blocks, known id or not, are retained.
func (d *Document) parseResources(s *Stream) error {
	sectionLength, err := s.ReadUint32()
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

	var blocks []ResourceBlock
	for {
		pos, err := s.Tell()
		if err != nil {
			return err
		}
		if pos >= sectionEnd {
			break
		}

		sig, err := s.ReadUint32()
		if err != nil {
			return err
		}
		if sig != SigBIM && sig != SigB64 {
			// Some writers pad or append non-standard data. Resources are
			// optional metadata; stop here and realign the stream.
			debugf("resources: unknown block signature %08x at %d, skipping to section end", sig, pos)
			if err := s.Seek(sectionEnd); err != nil {
				return err
			}
			break
		}

		id, err := s.ReadUint16()
		if err != nil {
			return err
		}

		var nameLen [1]byte
		if err := s.ReadExact(nameLen[:]); err != nil {
			return err
		}
		var name []byte
		if nameLen[0] > 0 {
			name = make([]byte, nameLen[0])
			if err := s.ReadExact(name); err != nil {
				return err
			}
		}
		// The name is padded so 1 length byte + name bytes total even.
		if (1+int(nameLen[0]))%2 != 0 {
			if err := s.Skip(1); err != nil {
				return err
			}
		}

		// Resource data length is 4 bytes in both formats.
		dataLen, err := s.ReadUint32()
		if err != nil {
			return err
		}
		var data []byte
		if dataLen > 0 {
			data = make([]byte, dataLen)
			if err := s.ReadExact(data); err != nil {
				return err
			}
		}
		if dataLen%2 != 0 {
			if err := s.Skip(1); err != nil {
				return err
			}
		}

		blocks = append(blocks, ResourceBlock{ID: id, Name: name, Data: data})
	}

	d.resources = blocks

	// Realign in case a block over- or under-ran its declared size.
	pos, err := s.Tell()
	if err != nil {
		return err
	}
	if pos != sectionEnd {
		if err := s.Seek(sectionEnd); err != nil {
			return err
		}
	}
	return nil
}

package psd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

var be = binary.BigEndian

// Stream is a random-access big-endian reader over a byte source. The
// decoder never holds more than one position at once and all seeks are
// absolute. Two sources are supported: an in-memory buffer (NewBufferStream)
// and any caller-supplied io.ReadSeeker (NewStream).
type Stream struct {
	r    io.ReadSeeker
	size int64
}

// NewStream wraps a caller-owned io.ReadSeeker. The stream does not take
// ownership; Close only closes the source when it implements io.Closer.
func NewStream(r io.ReadSeeker) (*Stream, error) {
	if r == nil {
		return nil, fmt.Errorf("stream source: %w", ErrNullPointer)
	}
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("stream source: %w", ErrStreamInvalid)
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("stream source: %w", ErrStreamInvalid)
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		return nil, fmt.Errorf("stream source: %w", ErrStreamSeek)
	}
	return &Stream{r: r, size: end}, nil
}

// NewBufferStream wraps a caller-owned byte slice. The slice must stay
// alive and unmodified while the stream is in use.
func NewBufferStream(buf []byte) *Stream {
	return &Stream{r: bytes.NewReader(buf), size: int64(len(buf))}
}

// Size reports the total length of the underlying source in bytes.
func (s *Stream) Size() int64 { return s.size }

// Close closes the underlying source if it is closable.
func (s *Stream) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Read reads up to len(p) bytes, returning the number read. A count short
// of len(p) is not an error here; use ReadExact when all bytes are required.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := io.ReadFull(s.r, p)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("read: %w", ErrStreamRead)
	}
	return n, nil
}

// ReadExact fills p completely or fails with an end-of-stream error.
func (s *Stream) ReadExact(p []byte) error {
	if _, err := io.ReadFull(s.r, p); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrStreamEOF
		}
		return fmt.Errorf("read: %w", ErrStreamRead)
	}
	return nil
}

// ReadUpTo reads at most n bytes, stopping early at end of stream.
func (s *Stream) ReadUpTo(n int64) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidArgument
	}
	buf := make([]byte, n)
	got, err := s.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:got], nil
}

// Seek moves to an absolute position within the source bounds.
func (s *Stream) Seek(pos int64) error {
	if pos < 0 || pos > s.size {
		return ErrStreamSeek
	}
	if _, err := s.r.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seek %d: %w", pos, ErrStreamSeek)
	}
	return nil
}

// Tell reports the current absolute position.
func (s *Stream) Tell() (int64, error) {
	pos, err := s.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("tell: %w", ErrStreamInvalid)
	}
	return pos, nil
}

// Skip consumes n bytes by reading and discarding them.
func (s *Stream) Skip(n int64) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	if n == 0 {
		return nil
	}
	written, err := io.CopyN(io.Discard, s.r, n)
	if written != n {
		return ErrStreamEOF
	}
	if err != nil {
		return fmt.Errorf("skip %d: %w", n, ErrStreamRead)
	}
	return nil
}

func (s *Stream) ReadUint16() (uint16, error) {
	var buf [2]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return be.Uint16(buf[:]), nil
}

func (s *Stream) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return be.Uint32(buf[:]), nil
}

func (s *Stream) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return be.Uint64(buf[:]), nil
}

func (s *Stream) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

// ReadFloat64 reads a big-endian IEEE 754 double.
func (s *Stream) ReadFloat64() (float64, error) {
	bits, err := s.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// ReadLength reads a section or channel length field: 32 bits in the
// standard format, 64 bits in the large-document format. A 64-bit value
// that cannot index host memory is out of range.
func (s *Stream) ReadLength(isLarge bool) (uint64, error) {
	if !isLarge {
		v, err := s.ReadUint32()
		return uint64(v), err
	}
	v, err := s.ReadUint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("length %d: %w", v, ErrOutOfRange)
	}
	return v, nil
}

package psd

import "errors"

// Error kinds returned by the decoder. The set is closed; every fallible
// operation returns one of these, possibly wrapped with context via %w.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfMemory     = errors.New("out of memory")
	ErrNullPointer     = errors.New("required value is nil")
	ErrInvalidFormat   = errors.New("invalid data format")

	ErrStreamRead    = errors.New("stream read failed")
	ErrStreamSeek    = errors.New("stream seek failed")
	ErrStreamInvalid = errors.New("invalid stream state")
	ErrStreamEOF     = errors.New("unexpected end of stream")

	ErrInvalidFileFormat  = errors.New("not a valid PSD file")
	ErrInvalidHeader      = errors.New("invalid PSD header")
	ErrUnsupportedVersion = errors.New("unsupported PSD version")
	ErrCorruptData        = errors.New("corrupt data")
	ErrInvalidStructure   = errors.New("invalid data structure")

	ErrUnsupportedFeature     = errors.New("unsupported feature")
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrUnsupportedColorMode   = errors.New("unsupported color mode")

	ErrBufferTooSmall = errors.New("buffer too small")
	ErrOutOfRange     = errors.New("value out of range")
)

// StatusCode maps an error returned by this package to its stable numeric
// code. nil maps to 0; unrecognized errors map to the generic invalid
// argument code. The mapping is pure and allocation free.
func StatusCode(err error) int32 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidArgument):
		return -1
	case errors.Is(err, ErrOutOfMemory):
		return -2
	case errors.Is(err, ErrNullPointer):
		return -3
	case errors.Is(err, ErrInvalidFormat):
		return -6
	case errors.Is(err, ErrStreamRead):
		return -100
	case errors.Is(err, ErrStreamSeek):
		return -102
	case errors.Is(err, ErrStreamInvalid):
		return -103
	case errors.Is(err, ErrStreamEOF):
		return -104
	case errors.Is(err, ErrInvalidFileFormat):
		return -200
	case errors.Is(err, ErrInvalidHeader):
		return -201
	case errors.Is(err, ErrUnsupportedVersion):
		return -202
	case errors.Is(err, ErrCorruptData):
		return -203
	case errors.Is(err, ErrInvalidStructure):
		return -204
	case errors.Is(err, ErrUnsupportedFeature):
		return -300
	case errors.Is(err, ErrUnsupportedCompression):
		return -301
	case errors.Is(err, ErrUnsupportedColorMode):
		return -302
	case errors.Is(err, ErrBufferTooSmall):
		return -400
	case errors.Is(err, ErrOutOfRange):
		return -401
	default:
		return -1
	}
}

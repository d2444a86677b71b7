package psd

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Legacy layer names and Pascal strings use the MacRoman repertoire; bytes
// below 0x80 are ASCII, the rest map through the Macintosh charmap.
func macRomanToUTF8(in []byte) string {
	if len(in) == 0 {
		return ""
	}
	out, err := charmap.Macintosh.NewDecoder().Bytes(in)
	if err != nil {
		// The Macintosh table is total over all 256 bytes; decoding
		// cannot fail, but keep the raw bytes if it ever does.
		return string(in)
	}
	return string(out)
}

var utf16beDecoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// utf16beToUTF8 decodes UTF-16BE honoring surrogate pairs. Lone or
// mispaired surrogates and trailing odd bytes decode to U+FFFD.
func utf16beToUTF8(in []byte) string {
	if len(in) == 0 {
		return ""
	}
	out, err := utf16beDecoder.NewDecoder().Bytes(in)
	if err != nil {
		return ""
	}
	return string(out)
}

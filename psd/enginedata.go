package psd

import (
	"fmt"
	"strconv"
	"strings"
)

// EngineData is a textual, PostScript-flavored serialization of the text
// engine state: /Key value pairs, << >> dictionaries, [ ] arrays, and
// ( ) strings that may begin with a UTF-16 byte-order mark. The default
// style is extracted by decoding the blob to UTF-8 and scanning for the
// handful of keys a single style run needs.

// engineDataToUTF8 converts an EngineData blob to readable UTF-8.
// Parenthesised substrings beginning with a BE (FE FF) or LE (FF FE)
// byte-order mark are decoded from UTF-16; other inner bytes are copied
// as-is. Backslash escapes protect matching parentheses. An unmatched
// opening parenthesis is an invalid format.
func engineDataToUTF8(data []byte) (string, error) {
	var out strings.Builder
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '(' {
			out.WriteByte(c)
			continue
		}

		// Find the closing parenthesis, honoring backslash escapes.
		j := i + 1
		esc := false
		for j < len(data) {
			cj := data[j]
			if !esc && cj == ')' {
				break
			}
			if !esc && cj == '\\' {
				esc = true
				j++
				continue
			}
			esc = false
			j++
		}
		if j >= len(data) {
			out.WriteByte('(')
			return out.String(), fmt.Errorf("unmatched parenthesis in engine data: %w", ErrInvalidFormat)
		}

		inner := data[i+1 : j]
		out.WriteByte('(')
		switch {
		case len(inner) >= 2 && inner[0] == 0xFE && inner[1] == 0xFF:
			out.WriteString(utf16beToUTF8(inner[2:]))
		case len(inner) >= 2 && inner[0] == 0xFF && inner[1] == 0xFE:
			// Swap to big-endian, then decode.
			swapped := make([]byte, len(inner)-2)
			copy(swapped, inner[2:])
			for k := 0; k+1 < len(swapped); k += 2 {
				swapped[k], swapped[k+1] = swapped[k+1], swapped[k]
			}
			out.WriteString(utf16beToUTF8(swapped))
		default:
			out.Write(inner)
		}
		out.WriteByte(')')
		i = j
	}
	return out.String(), nil
}

// scanNumber parses a leading decimal number from s, returning the value
// and the number of bytes consumed.
func scanNumber(s string) (float64, int, bool) {
	end := 0
	for end < len(s) {
		c := s[end]
		if c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E' || (c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	for end > 0 {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v, end, true
		}
		end--
	}
	return 0, 0, false
}

func skipSpace(s string) string {
	return strings.TrimLeft(s, " \t\r\n")
}

// floatAfter finds the first occurrence of token and parses the number
// that follows it.
func floatAfter(s, token string) (float64, bool) {
	idx := strings.Index(s, token)
	if idx < 0 {
		return 0, false
	}
	rest := skipSpace(s[idx+len(token):])
	v, n, ok := scanNumber(rest)
	if !ok || n == 0 {
		return 0, false
	}
	return v, true
}

func intAfter(s, token string) (int, bool) {
	v, ok := floatAfter(s, token)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// fontSetNames collects the /Name (...) strings of the /FontSet array.
func fontSetNames(s string) []string {
	idx := strings.Index(s, "/FontSet")
	if idx < 0 {
		return nil
	}
	rest := s[idx:]
	open := strings.IndexByte(rest, '[')
	if open < 0 {
		return nil
	}
	rest = rest[open+1:]

	var names []string
	for {
		n := strings.Index(rest, "/Name")
		if n < 0 {
			break
		}
		after := rest[n+len("/Name"):]
		lp := strings.IndexByte(after, '(')
		if lp < 0 {
			rest = after
			continue
		}
		rp := strings.IndexByte(after[lp+1:], ')')
		if rp < 0 {
			rest = after
			continue
		}
		names = append(names, after[lp+1:lp+1+rp])
		rest = after[lp+1+rp+1:]
	}
	return names
}

// fillColor extracts the RGB floats after /FillColor's Values array,
// clamped to [0,1] and scaled to 0-255 with alpha 255.
func fillColor(s string) ([4]uint8, bool) {
	idx := strings.Index(s, "/FillColor")
	if idx < 0 {
		return [4]uint8{}, false
	}
	rest := s[idx:]
	if v := strings.Index(rest, "Values"); v >= 0 {
		rest = rest[v:]
	}
	open := strings.IndexByte(rest, '[')
	if open < 0 {
		return [4]uint8{}, false
	}
	rest = rest[open+1:]

	var comps [3]float64
	for i := 0; i < 3; i++ {
		rest = skipSpace(rest)
		v, n, ok := scanNumber(rest)
		if !ok {
			return [4]uint8{}, false
		}
		comps[i] = v
		rest = rest[n:]
	}

	var rgba [4]uint8
	for i, v := range comps {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		rgba[i] = uint8(v*255 + 0.5)
	}
	rgba[3] = 255
	return rgba, true
}

// parseEngineDataStyle converts the blob to UTF-8 and extracts the
// single-run default style.
func parseEngineDataStyle(engine []byte) (TextStyle, error) {
	style := TextStyle{
		ColorRGBA:     [4]uint8{0, 0, 0, 255},
		Justification: JustifyLeft,
	}

	text, err := engineDataToUTF8(engine)
	if err != nil && text == "" {
		return style, err
	}

	// Font: the style sheet's /Font index selects from the /FontSet
	// name list; fall back to the first /Name occurrence anywhere.
	names := fontSetNames(text)
	if len(names) > 0 {
		pick := 0
		if idx, ok := intAfter(text, "/Font"); ok && idx >= 0 && idx < len(names) {
			pick = idx
		}
		style.FontName = names[pick]
	} else if n := strings.Index(text, "/Name"); n >= 0 {
		after := text[n:]
		if lp := strings.IndexByte(after, '('); lp >= 0 {
			if rp := strings.IndexByte(after[lp+1:], ')'); rp > 0 {
				style.FontName = after[lp+1 : lp+1+rp]
			}
		}
	}

	if v, ok := floatAfter(text, "/FontSize"); ok {
		style.Size = v
	}
	if v, ok := floatAfter(text, "/Tracking"); ok {
		style.Tracking = v
	}
	if v, ok := floatAfter(text, "/Leading"); ok {
		style.Leading = v
	} else if auto, ok := floatAfter(text, "/AutoLeading"); ok && style.Size > 0 && auto > 0 {
		style.Leading = style.Size * auto
	}

	if just, ok := intAfter(text, "/Justification"); ok {
		switch just {
		case 1:
			style.Justification = JustifyRight
		case 2:
			style.Justification = JustifyCenter
		case 3:
			style.Justification = JustifyFull
		default:
			style.Justification = JustifyLeft
		}
	}

	if rgba, ok := fillColor(text); ok {
		style.ColorRGBA = rgba
	}

	if style.FontName == "" || style.Size <= 0 {
		return style, fmt.Errorf("engine data missing font name or size: %w", ErrInvalidStructure)
	}
	return style, nil
}

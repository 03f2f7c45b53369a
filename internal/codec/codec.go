// Package codec bridges the on-wire Shift-JIS text encoding and internal
// UTF-8. Titles flagged as full-width additionally map every printable
// ASCII character into its full-width form before encoding (and back on
// decode) because those clients only render double-byte glyphs.
package codec

import (
	"strings"

	"golang.org/x/text/encoding/japanese"
)

// Decode converts Shift-JIS bytes to a UTF-8 string. For full-width titles
// the full-width forms U+FF01..U+FF5E are narrowed back to ASCII 0x21..0x7E.
// Pure ASCII passes through unchanged; undecodable input falls back to the
// raw bytes.
func Decode(raw []byte, fullWidth bool) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if allASCII(raw) {
		s = string(raw)
	} else {
		decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
		if err != nil {
			s = string(raw)
		} else {
			s = string(decoded)
		}
	}
	if fullWidth {
		s = narrow(s)
	}
	return s
}

// Encode converts a UTF-8 string to Shift-JIS bytes. For full-width titles
// ASCII 0x21..0x7E is widened to U+FF01..U+FF5E first. Unencodable input
// falls back to the raw bytes, which is correct for pure ASCII.
func Encode(s string, fullWidth bool) []byte {
	if s == "" {
		return nil
	}
	if fullWidth {
		s = widen(s)
	}
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return encoded
}

func allASCII(raw []byte) bool {
	for _, b := range raw {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// widen maps ASCII printables 0x21..0x7E into U+FF01..U+FF5E.
func widen(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) * 3)
	for _, r := range s {
		if r >= 0x21 && r <= 0x7E {
			r += 0xFEE0
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// narrow is the inverse of widen.
func narrow(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r >= 0xFF01 && r <= 0xFF5E {
			r -= 0xFEE0
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

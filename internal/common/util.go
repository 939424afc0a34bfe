package common

import "unicode/utf8"

// WipeByteArray zeroes b in place. Used for password buffers read from the
// terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// RuneLen counts user-visible characters, not bytes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

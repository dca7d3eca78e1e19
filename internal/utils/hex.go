package utils

const hexDigits = "0123456789abcdef"

// Hex4 formats a uint16 as a 4-character hexadecimal string (e.g. "fd3d"),
// most significant nibble first.
func Hex4(v uint16) string {
	return string([]byte{
		hexDigits[(v>>12)&0xF],
		hexDigits[(v>>8)&0xF],
		hexDigits[(v>>4)&0xF],
		hexDigits[v&0xF],
	})
}

// BytesToHex converts a byte slice to a lowercase hexadecimal string, the
// form advertisement element values are carried in.
func BytesToHex(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, x := range b {
		out = append(out, hexDigits[x>>4], hexDigits[x&0x0F])
	}
	return string(out)
}

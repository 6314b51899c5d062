package conv

const hexd = "0123456789ABCDEF"

// AppendHexByte appends b as "0xNN" (uppercase, zero-padded).
func AppendHexByte(dst []byte, b byte) []byte {
	return append(dst, '0', 'x', hexd[b>>4], hexd[b&0xF])
}

// AppendHexDump appends each byte of p as "0xNN " (note trailing space).
func AppendHexDump(dst []byte, p []byte) []byte {
	for _, b := range p {
		dst = AppendHexByte(dst, b)
		dst = append(dst, ' ')
	}
	return dst
}

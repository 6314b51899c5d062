package conv

// AppendInt appends the base-10 form of n. No fmt/strconv dependency.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		// Negate in uint64 space so MinInt64 survives.
		return AppendUint(dst, uint64(^n)+1)
	}
	return AppendUint(dst, uint64(n))
}

// AppendUint appends the base-10 form of n.
func AppendUint(dst []byte, n uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(dst, tmp[i:]...)
}

// AppendFixed appends n/10^frac with exactly frac decimals, e.g.
// AppendFixed(b, 904000, 3) -> "904.000".
func AppendFixed(dst []byte, n uint64, frac int) []byte {
	div := uint64(1)
	for i := 0; i < frac; i++ {
		div *= 10
	}
	dst = AppendUint(dst, n/div)
	if frac == 0 {
		return dst
	}
	dst = append(dst, '.')
	rem := n % div
	for div /= 10; div > 0; div /= 10 {
		dst = append(dst, byte('0'+rem/div))
		rem %= div
	}
	return dst
}

// AppendSignedFixed is AppendFixed for negative values too.
func AppendSignedFixed(dst []byte, n int64, frac int) []byte {
	if n < 0 {
		dst = append(dst, '-')
		return AppendFixed(dst, uint64(^n)+1, frac)
	}
	return AppendFixed(dst, uint64(n), frac)
}

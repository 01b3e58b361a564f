package bytefield

// Number reads length bytes starting at start as an unsigned big-endian integer.
// Callers guarantee the range lies within buf; packet lengths are validated before
// any field is read.
func Number(buf []byte, start, length int) int64 {
	var result int64
	for _, b := range buf[start : start+length] {
		result = (result << 8) | int64(b)
	}
	return result
}

// Int is Number narrowed to int, for fields no wider than four bytes.
func Int(buf []byte, start, length int) int {
	return int(Number(buf, start, length))
}

// PutNumber writes the low length bytes of value big-endian at start.
func PutNumber(buf []byte, start, length int, value int64) {
	for i := length - 1; i >= 0; i-- {
		buf[start+i] = byte(value)
		value >>= 8
	}
}

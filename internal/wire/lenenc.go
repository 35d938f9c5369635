package wire

import (
	"encoding/binary"
	"fmt"
)

// PutLengthEncodedInteger appends n to dst in MySQL length-encoded-integer
// form and returns the extended slice.
func PutLengthEncodedInteger(dst []byte, n uint64) []byte {
	switch {
	case n <= 250:
		return append(dst, byte(n))
	case n <= 0xffff:
		b := make([]byte, 3)
		b[0] = 0xfc
		binary.LittleEndian.PutUint16(b[1:], uint16(n))
		return append(dst, b...)
	case n <= 0xffffff:
		b := make([]byte, 4)
		b[0] = 0xfd
		b[1], b[2], b[3] = byte(n), byte(n>>8), byte(n>>16)
		return append(dst, b...)
	default:
		b := make([]byte, 9)
		b[0] = 0xfe
		binary.LittleEndian.PutUint64(b[1:], n)
		return append(dst, b...)
	}
}

// PutLengthEncodedString appends s as a length-encoded string.
func PutLengthEncodedString(dst []byte, s []byte) []byte {
	dst = PutLengthEncodedInteger(dst, uint64(len(s)))
	return append(dst, s...)
}

// ReadLengthEncodedInteger reads a length-encoded integer from the front
// of data, returning its value, whether it was NULL (0xfb), and the
// number of bytes consumed.
func ReadLengthEncodedInteger(data []byte) (num uint64, isNull bool, n int, err error) {
	if len(data) == 0 {
		return 0, false, 0, fmt.Errorf("empty length-encoded integer")
	}
	switch data[0] {
	case 0xfb:
		return 0, true, 1, nil
	case 0xfc:
		if len(data) < 3 {
			return 0, false, 0, fmt.Errorf("truncated length-encoded integer")
		}
		return uint64(binary.LittleEndian.Uint16(data[1:3])), false, 3, nil
	case 0xfd:
		if len(data) < 4 {
			return 0, false, 0, fmt.Errorf("truncated length-encoded integer")
		}
		return uint64(data[1]) | uint64(data[2])<<8 | uint64(data[3])<<16, false, 4, nil
	case 0xfe:
		if len(data) < 9 {
			return 0, false, 0, fmt.Errorf("truncated length-encoded integer")
		}
		return binary.LittleEndian.Uint64(data[1:9]), false, 9, nil
	default:
		return uint64(data[0]), false, 1, nil
	}
}

// ReadLengthEncodedString reads a length-encoded string from the front of
// data and returns the string bytes plus the number of bytes consumed.
func ReadLengthEncodedString(data []byte) ([]byte, int, error) {
	num, isNull, n, err := ReadLengthEncodedInteger(data)
	if err != nil {
		return nil, 0, err
	}
	if isNull {
		return nil, n, nil
	}
	if len(data) < n+int(num) {
		return nil, 0, fmt.Errorf("truncated length-encoded string")
	}
	return data[n : n+int(num)], n + int(num), nil
}

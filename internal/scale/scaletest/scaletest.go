// Package scaletest provides SCALE encoding helpers for building test
// fixtures. The library itself only decodes; these writers exist so tests
// can construct wire bytes without hand-assembling them.
package scaletest

import (
	"fmt"
	"math/big"
)

// AppendCompact appends the compact encoding of value to dst.
func AppendCompact(dst []byte, value *big.Int) ([]byte, error) {
	if value.Sign() < 0 {
		return nil, fmt.Errorf("compact encode: negative value %s", value)
	}

	switch {
	case value.BitLen() <= 6:
		return append(dst, byte(value.Uint64()<<2)), nil
	case value.BitLen() <= 14:
		v := value.Uint64()<<2 | 0b01
		return append(dst, byte(v), byte(v>>8)), nil
	case value.BitLen() <= 30:
		v := value.Uint64()<<2 | 0b10
		return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24)), nil
	default:
		raw := value.Bytes()
		if len(raw) > 67 {
			return nil, fmt.Errorf("compact encode: %d bytes exceeds maximum width", len(raw))
		}
		dst = append(dst, byte(len(raw)-4)<<2|0b11)
		return append(dst, reverse(raw)...), nil
	}
}

// AppendCompactUint appends the compact encoding of a uint64 to dst.
func AppendCompactUint(dst []byte, value uint64) []byte {
	out, _ := AppendCompact(dst, new(big.Int).SetUint64(value))
	return out
}

// AppendText appends a compact-length-prefixed UTF-8 string to dst.
func AppendText(dst []byte, s string) []byte {
	dst = AppendCompactUint(dst, uint64(len(s)))
	return append(dst, s...)
}

// AppendUintLE appends a little-endian unsigned integer of the given byte
// width to dst.
func AppendUintLE(dst []byte, value *big.Int, width int) []byte {
	raw := value.Bytes()
	le := reverse(raw)
	for len(le) < width {
		le = append(le, 0)
	}
	return append(dst, le[:width]...)
}

func reverse(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[len(in)-1-i] = b
	}
	return out
}

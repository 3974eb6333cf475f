package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Reader walks a SCALE-encoded byte buffer with an explicit offset cursor.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps a byte slice for sequential decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, fmt.Errorf("read byte at offset %d: buffer exhausted", r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("read %d bytes: negative length", n)
	}
	if r.off+n > len(r.buf) {
		return nil, fmt.Errorf("read %d bytes at offset %d: buffer exhausted", n, r.off)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	raw, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	raw, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	raw, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// U128 reads a little-endian unsigned 128-bit integer.
func (r *Reader) U128() (*big.Int, error) {
	return r.UintLE(16)
}

// UintLE reads a little-endian unsigned integer of the given byte width.
func (r *Reader) UintLE(width int) (*big.Int, error) {
	raw, err := r.Bytes(width)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(reverse(raw)), nil
}

// Compact reads a compact-encoded unsigned integer in any of its four modes.
func (r *Reader) Compact() (*big.Int, error) {
	first, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("compact: %w", err)
	}

	switch first & 0b11 {
	case 0b00:
		return big.NewInt(int64(first >> 2)), nil
	case 0b01:
		second, err := r.Byte()
		if err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
		value := (uint64(first) | uint64(second)<<8) >> 2
		return new(big.Int).SetUint64(value), nil
	case 0b10:
		rest, err := r.Bytes(3)
		if err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
		value := (uint64(first) | uint64(rest[0])<<8 | uint64(rest[1])<<16 | uint64(rest[2])<<24) >> 2
		return new(big.Int).SetUint64(value), nil
	default:
		width := int(first>>2) + 4
		if width > 67 {
			return nil, fmt.Errorf("compact: invalid big-integer width %d at offset %d", width, r.off-1)
		}
		raw, err := r.Bytes(width)
		if err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
		return new(big.Int).SetBytes(reverse(raw)), nil
	}
}

// CompactUint reads a compact integer that must fit in a uint64.
func (r *Reader) CompactUint() (uint64, error) {
	value, err := r.Compact()
	if err != nil {
		return 0, err
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("compact: value %s exceeds uint64", value)
	}
	return value.Uint64(), nil
}

// CompactLen reads a compact integer used as a collection length and bounds
// it by the remaining buffer, so a corrupt length cannot drive huge
// allocations.
func (r *Reader) CompactLen() (int, error) {
	value, err := r.CompactUint()
	if err != nil {
		return 0, err
	}
	if value > uint64(r.Remaining()) {
		return 0, fmt.Errorf("length %d exceeds %d remaining bytes at offset %d", value, r.Remaining(), r.off)
	}
	return int(value), nil
}

// Text reads a compact-length-prefixed UTF-8 string.
func (r *Reader) Text() (string, error) {
	length, err := r.CompactLen()
	if err != nil {
		return "", fmt.Errorf("text: %w", err)
	}
	raw, err := r.Bytes(length)
	if err != nil {
		return "", fmt.Errorf("text: %w", err)
	}
	return string(raw), nil
}

func reverse(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[len(in)-1-i] = b
	}
	return out
}

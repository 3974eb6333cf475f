package ss58

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// DefaultPrefix is the generic substrate network prefix used when the target
// chain's prefix is unknown.
const DefaultPrefix uint16 = 42

const (
	publicKeyLen = 32
	checksumLen  = 2
	maxPrefix    = 16383
)

var checksumPreamble = []byte("SS58PRE")

// Encode renders a 32-byte public key as an SS58 address under the given
// network prefix.
func Encode(pub []byte, prefix uint16) (string, error) {
	if len(pub) != publicKeyLen {
		return "", fmt.Errorf("encode address: public key is %d bytes, want %d", len(pub), publicKeyLen)
	}
	if prefix > maxPrefix {
		return "", fmt.Errorf("encode address: prefix %d out of range", prefix)
	}

	payload := appendPrefix(nil, prefix)
	payload = append(payload, pub...)
	payload = append(payload, checksum(payload)...)

	return base58.Encode(payload), nil
}

// EncodeHex renders a 0x-prefixed 32-byte public key hex string as an SS58
// address.
func EncodeHex(pubHex string, prefix uint16) (string, error) {
	pub, err := hexutil.Decode(pubHex)
	if err != nil {
		return "", fmt.Errorf("encode address: %w", err)
	}
	return Encode(pub, prefix)
}

// Decode parses an SS58 address and returns the 0x-prefixed public key hex
// and the network prefix it was encoded under. A checksum mismatch is a
// decode error, never silently ignored.
func Decode(address string) (string, uint16, error) {
	raw := base58.Decode(address)
	if len(raw) == 0 {
		return "", 0, fmt.Errorf("decode address: not valid base58")
	}

	prefix, prefixLen, err := parsePrefix(raw)
	if err != nil {
		return "", 0, err
	}
	if len(raw) != prefixLen+publicKeyLen+checksumLen {
		return "", 0, fmt.Errorf("decode address: unexpected payload length %d", len(raw))
	}

	body := raw[:len(raw)-checksumLen]
	if !bytes.Equal(checksum(body), raw[len(raw)-checksumLen:]) {
		return "", 0, fmt.Errorf("decode address: checksum mismatch")
	}

	pub := raw[prefixLen : prefixLen+publicKeyLen]
	return hexutil.Encode(pub), prefix, nil
}

// appendPrefix writes the one- or two-byte prefix encoding: network ids below
// 64 fit in a single byte, larger ids are bit-packed across two bytes.
func appendPrefix(dst []byte, prefix uint16) []byte {
	if prefix < 64 {
		return append(dst, byte(prefix))
	}
	first := byte((prefix&0b0000_0000_1111_1100)>>2) | 0b0100_0000
	second := byte(prefix>>8) | byte(prefix&0b11)<<6
	return append(dst, first, second)
}

func parsePrefix(raw []byte) (uint16, int, error) {
	switch {
	case raw[0] < 64:
		return uint16(raw[0]), 1, nil
	case raw[0] < 128:
		if len(raw) < 2 {
			return 0, 0, fmt.Errorf("decode address: truncated two-byte prefix")
		}
		lower := raw[0]<<2 | raw[1]>>6
		upper := raw[1] & 0b0011_1111
		return uint16(lower) | uint16(upper)<<8, 2, nil
	default:
		return 0, 0, fmt.Errorf("decode address: reserved prefix byte %#x", raw[0])
	}
}

func checksum(body []byte) []byte {
	hasher, _ := blake2b.New512(nil)
	hasher.Write(checksumPreamble)
	hasher.Write(body)
	return hasher.Sum(nil)[:checksumLen]
}

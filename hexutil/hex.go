// Package hexutil provides hex/byte conversions and the keccak-256
// wrapper used throughout the abi and rpcconn packages.
package hexutil

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Decode converts a hex string to bytes, accepting an optional "0x" prefix.
func Decode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hexutil: decode %q: %w", s, err)
	}
	return b, nil
}

// Encode renders b as a "0x"-prefixed hex string.
func Encode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// DecodeAddress validates and decodes a 42-character "0x"-prefixed
// address string into 20 bytes, per the ABI encoding rule for `address`.
func DecodeAddress(s string) ([20]byte, error) {
	var out [20]byte
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return out, fmt.Errorf("hexutil: bad length for address: %s", s)
	}
	b, err := Decode(s)
	if err != nil {
		return out, fmt.Errorf("hexutil: bad address: %w", err)
	}
	if len(b) != 20 {
		return out, fmt.Errorf("hexutil: bad length for address: %s", s)
	}
	copy(out[:], b)
	return out, nil
}

// Keccak256 hashes the concatenation of data with the legacy Keccak-256
// variant used by Ethereum (distinct from NIST SHA3-256).
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

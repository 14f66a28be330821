// Package address renders Hash160 script hashes as base58check address
// strings, used by JSON encoding of signers, witnesses and block
// next-consensus fields (see pkg/core/block/header.go usage of
// address.Uint160ToString).
package address

import (
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
	"github.com/neogo-core/node/pkg/util"
)

// Prefix is the Neo N3 mainnet address version byte.
const Prefix = 0x35

func checksum(b []byte) []byte {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return h2[:4]
}

// Uint160ToString renders u as a base58check address string.
func Uint160ToString(u util.Uint160) string {
	b := make([]byte, 0, 1+util.Uint160Size+4)
	b = append(b, Prefix)
	b = append(b, u.Bytes()...)
	b = append(b, checksum(b)...)
	return base58.Encode(b)
}

// StringToUint160 parses a base58check address string back into a
// Uint160, verifying the version byte and checksum.
func StringToUint160(s string) (u util.Uint160, err error) {
	b, err := base58.Decode(s)
	if err != nil {
		return u, err
	}
	if len(b) != 1+util.Uint160Size+4 {
		return u, errors.New("invalid address length")
	}
	if b[0] != Prefix {
		return u, errors.New("invalid address version")
	}
	payload, sum := b[:1+util.Uint160Size], b[1+util.Uint160Size:]
	want := checksum(payload)
	for i := range want {
		if sum[i] != want[i] {
			return u, errors.New("invalid address checksum")
		}
	}
	return util.Uint160DecodeBytes(b[1 : 1+util.Uint160Size])
}

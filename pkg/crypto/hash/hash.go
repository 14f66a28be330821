// Package hash implements the hash-composition glue required by the
// core data model (spec.md §3). The underlying primitives (SHA-256,
// RIPEMD-160) are treated as pure-function external collaborators per
// spec.md §1; only their composition into Neo's hash conventions is
// in scope here.
package hash

import (
	"crypto/sha256"

	"github.com/neogo-core/node/pkg/util"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for Hash160 composition
)

// Sha256 returns the single SHA-256 digest of b.
func Sha256(b []byte) util.Uint256 {
	h := sha256.Sum256(b)
	return h
}

// DoubleSha256 returns SHA256(SHA256(b)), used for transaction and
// block hashes (spec.md §3).
func DoubleSha256(b []byte) util.Uint256 {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return h2
}

// RipeMD160 returns the RIPEMD-160 digest of b.
func RipeMD160(b []byte) []byte {
	h := ripemd160.New()
	_, _ = h.Write(b)
	return h.Sum(nil)
}

// Hash160 computes RIPEMD160(SHA256(script)), the script-hash
// convention used for signer accounts and contract addresses
// (spec.md §3).
func Hash160(script []byte) util.Uint160 {
	sum := sha256.Sum256(script)
	r := RipeMD160(sum[:])
	var u util.Uint160
	copy(u[:], r)
	return u
}

// CalcMerkleRoot computes the Merkle tree root over a list of
// transaction hashes (spec.md §3, "merkle_root = Merkle(transaction_hashes)").
// An empty list yields the zero hash; a single-element list is its own
// root (no self-duplication needed).
func CalcMerkleRoot(hashes []util.Uint256) util.Uint256 {
	if len(hashes) == 0 {
		return util.Uint256{}
	}
	level := make([]util.Uint256, len(hashes))
	copy(level, hashes)
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]util.Uint256, len(level)/2)
		for i := 0; i < len(next); i++ {
			buf := make([]byte, 0, 64)
			buf = append(buf, level[2*i][:]...)
			buf = append(buf, level[2*i+1][:]...)
			next[i] = DoubleSha256(buf)
		}
		level = next
	}
	return level[0]
}

package consensus

import (
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// prepareRequest is the dBFT PrepareRequest message body, primary-only
// and unique per view (spec.md §4.5 "PrepareRequest{timestamp_ms,
// nonce, transaction_hashes, merkle_root}").
type prepareRequest struct {
	Timestamp         uint64
	Nonce             uint64
	TransactionHashes []util.Uint256
	MerkleRoot        util.Uint256
}

// EncodeBinary implements io.Serializable.
func (p *prepareRequest) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(p.Timestamp)
	w.WriteU64LE(p.Nonce)
	w.WriteBytes(p.MerkleRoot[:])
	w.WriteVarUint(uint64(len(p.TransactionHashes)))
	for i := range p.TransactionHashes {
		w.WriteBytes(p.TransactionHashes[i][:])
	}
}

// DecodeBinary implements io.Serializable.
func (p *prepareRequest) DecodeBinary(r *io.BinReader) {
	p.Timestamp = r.ReadU64LE()
	p.Nonce = r.ReadU64LE()
	r.ReadBytes(p.MerkleRoot[:])
	n := r.ReadVarUint()
	if r.Err != nil {
		return
	}
	p.TransactionHashes = make([]util.Uint256, n)
	for i := range p.TransactionHashes {
		r.ReadBytes(p.TransactionHashes[i][:])
	}
}

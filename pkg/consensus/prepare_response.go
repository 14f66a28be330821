package consensus

import (
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// prepareResponse is the dBFT PrepareResponse message body: a backup's
// echo of the primary's proposal hash (spec.md §4.5 "PrepareResponse{
// preparation_hash}").
type prepareResponse struct {
	PreparationHash util.Uint256
}

// EncodeBinary implements io.Serializable.
func (p *prepareResponse) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(p.PreparationHash[:])
}

// DecodeBinary implements io.Serializable.
func (p *prepareResponse) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(p.PreparationHash[:])
}

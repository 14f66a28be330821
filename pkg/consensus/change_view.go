package consensus

import "github.com/neogo-core/node/pkg/io"

// ChangeViewReason enumerates why a validator is requesting a view
// change (spec.md §4.5 "ChangeView{new_view, reason}").
type ChangeViewReason byte

const (
	CVTimeout               ChangeViewReason = 0
	CVTxNotFound            ChangeViewReason = 1
	CVTxRejectedByPolicy    ChangeViewReason = 2
	CVBlockRejectedByPolicy ChangeViewReason = 3
	CVChangeAgreement       ChangeViewReason = 4
)

// changeView is the dBFT ChangeView message body.
type changeView struct {
	NewViewNumber byte
	Timestamp     uint64
	Reason        ChangeViewReason
}

// EncodeBinary implements io.Serializable.
func (c *changeView) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(c.Timestamp)
	w.WriteB(byte(c.Reason))
}

// DecodeBinary implements io.Serializable.
func (c *changeView) DecodeBinary(r *io.BinReader) {
	c.Timestamp = r.ReadU64LE()
	c.Reason = ChangeViewReason(r.ReadB())
}

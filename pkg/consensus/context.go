package consensus

import (
	"time"

	"github.com/neogo-core/node/pkg/crypto/keys"
)

// Phase is a validator-local dBFT state (spec.md §4.5 "Phases").
type Phase byte

const (
	PhaseInitial Phase = iota
	PhasePrimary
	PhaseBackup
	PhaseRequestSent
	PhaseRequestReceived
	PhaseResponseSent
	PhaseCommitSent
	PhaseViewChanging
	PhaseBlockSent
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "Initial"
	case PhasePrimary:
		return "Primary"
	case PhaseBackup:
		return "Backup"
	case PhaseRequestSent:
		return "RequestSent"
	case PhaseRequestReceived:
		return "RequestReceived"
	case PhaseResponseSent:
		return "ResponseSent"
	case PhaseCommitSent:
		return "CommitSent"
	case PhaseViewChanging:
		return "ViewChanging"
	case PhaseBlockSent:
		return "BlockSent"
	default:
		return "Unknown"
	}
}

// BlockTime is the target interval between blocks (spec.md §4.5
// "Parameters").
const BlockTime = 15 * time.Second

// ViewTimeout returns T(view) = block_time * min(2^view, 16).
func ViewTimeout(view byte) time.Duration {
	mult := uint64(1) << view
	if mult > 16 || view >= 4 {
		mult = 16
	}
	return BlockTime * time.Duration(mult)
}

// PrimaryIndex computes primary(block_index, view) = (block_index +
// view) mod N.
func PrimaryIndex(blockIndex uint32, view byte, n int) int {
	return int((uint64(blockIndex) + uint64(view)) % uint64(n))
}

// Quorum computes M = N - f where f = (N-1)/3 (spec.md §4.5
// "Parameters").
func Quorum(n int) int {
	f := (n - 1) / 3
	return n - f
}

// roundState is the per-(validator_index, view, kind) dedup and
// collection state for one block height's consensus round (spec.md
// §4.5 "Per-round state", "Validity rules").
type roundState struct {
	BlockIndex uint32
	View       byte
	Phase      Phase

	Validators keys.PublicKeys
	MyIndex    int

	PrepareRequest  *Payload
	PrepareResponse map[uint16]*Payload
	Commits         map[uint16]*Payload
	ChangeViews     map[uint16]*Payload

	Started time.Time
}

// newRoundState starts a fresh round for blockIndex (spec.md §4.5
// "Per-round state": "A fresh ConsensusContext per block_index; view
// starts at 0").
func newRoundState(blockIndex uint32, validators keys.PublicKeys, myIndex int) *roundState {
	return &roundState{
		BlockIndex:      blockIndex,
		View:            0,
		Phase:           PhaseInitial,
		Validators:      validators,
		MyIndex:         myIndex,
		PrepareResponse: make(map[uint16]*Payload),
		Commits:         make(map[uint16]*Payload),
		ChangeViews:     make(map[uint16]*Payload),
		Started:         time.Now(),
	}
}

// IsPrimary reports whether this node is the primary for the round's
// current view.
func (r *roundState) IsPrimary() bool {
	return PrimaryIndex(r.BlockIndex, r.View, len(r.Validators)) == r.MyIndex
}

// Quorum is M for this round's validator count.
func (r *roundState) Quorum() int { return Quorum(len(r.Validators)) }

// resetView clears per-view collections on a view change, preserving
// change_views for recovery (spec.md §4.5 "View change": "reset
// per-view state ..., keep change_views for recovery").
func (r *roundState) resetView(newView byte) {
	r.View = newView
	r.PrepareRequest = nil
	r.PrepareResponse = make(map[uint16]*Payload)
	r.Commits = make(map[uint16]*Payload)
	r.Started = time.Now()
}

// AddChangeView records a ChangeView vote and reports whether a
// quorum of votes for the same new_view has now been reached (spec.md
// §4.5 "Upon receiving M ChangeView messages whose new_view equals the
// same value v > current, adopt current_view = v").
func (r *roundState) AddChangeView(p *Payload) (newView byte, quorum bool) {
	r.ChangeViews[p.ValidatorIndex()] = p
	cv := p.GetChangeView()

	count := 0
	for _, other := range r.ChangeViews {
		if other.GetChangeView().NewViewNumber == cv.NewViewNumber {
			count++
		}
	}
	return cv.NewViewNumber, cv.NewViewNumber > r.View && count >= r.Quorum()
}

// AddPrepareResponse records a PrepareResponse and reports whether,
// counting the primary's implicit vote from its own PrepareRequest, a
// quorum has now been reached (spec.md §4.5 "Quorum handling").
func (r *roundState) AddPrepareResponse(p *Payload) (quorum bool) {
	r.PrepareResponse[p.ValidatorIndex()] = p
	count := len(r.PrepareResponse)
	if r.PrepareRequest != nil {
		count++ // primary's proposal counts as its own implicit vote.
	}
	return count >= r.Quorum()
}

// AddCommit records a Commit and reports whether a quorum of commits
// has now been reached (spec.md §4.5 "When commits ≥ M: aggregate
// signatures ... hand the block to the ledger").
func (r *roundState) AddCommit(p *Payload) (quorum bool) {
	r.Commits[p.ValidatorIndex()] = p
	return len(r.Commits) >= r.Quorum()
}

// CommitSignatures returns the collected commit signatures keyed by
// validator index, used to build the produced block's multi-sig
// witness.
func (r *roundState) CommitSignatures() map[uint16][]byte {
	out := make(map[uint16][]byte, len(r.Commits))
	for idx, p := range r.Commits {
		out[idx] = p.GetCommit().Signature[:]
	}
	return out
}

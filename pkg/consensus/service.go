package consensus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Ledger is the subset of the ledger engine consensus needs: the
// current chain height and the hook to hand off a finished block
// (spec.md §4.4 / §4.5 "hand the block to the ledger").
type Ledger interface {
	BlockHeight() uint32
	AddBlock(blockIndex uint32, validatorIndex uint16, txHashes []util.Uint256) error
}

// Service drives one node's dBFT round, dispatching incoming Payloads
// to the validator-local phase transitions described in spec.md §4.5.
// It does not itself implement block assembly or the network
// transport; Broadcast is the caller's hook for wiring those.
type Service struct {
	log    *zap.Logger
	ledger Ledger

	priv       *privateKey
	myIndex    int
	validators keys.PublicKeys

	mtx      sync.Mutex
	round    *roundState
	sessions map[uint32]uuid.UUID

	height atomic.Uint32

	Broadcast func(p *Payload)
}

// NewService creates a consensus Service for the given validator
// identity and initial validator set.
func NewService(log *zap.Logger, ledger Ledger, priv *keys.PrivateKey, validators keys.PublicKeys, myIndex int) *Service {
	s := &Service{
		log:        log,
		ledger:     ledger,
		priv:       &privateKey{priv},
		myIndex:    myIndex,
		validators: validators,
		sessions:   make(map[uint32]uuid.UUID),
		Broadcast:  func(*Payload) {},
	}
	s.height.Store(ledger.BlockHeight())
	return s
}

// StartRound begins a fresh round for blockIndex, entering Primary or
// Backup per spec.md §4.5's Initial-state transition.
func (s *Service) StartRound(blockIndex uint32) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.round = newRoundState(blockIndex, s.validators, s.myIndex)
	sessionID := uuid.New()
	s.sessions[blockIndex] = sessionID

	if s.round.IsPrimary() {
		s.round.Phase = PhasePrimary
		s.log.Info("starting round as primary",
			zap.Uint32("index", blockIndex), zap.String("session", sessionID.String()))
	} else {
		s.round.Phase = PhaseBackup
		s.log.Info("starting round as backup",
			zap.Uint32("index", blockIndex), zap.String("session", sessionID.String()))
	}
}

// ProposeBlock builds and broadcasts this node's PrepareRequest,
// transitioning Primary -> RequestSent (spec.md §4.5 transition 1).
func (s *Service) ProposeBlock(nonce uint64, txHashes []util.Uint256, merkleRoot util.Uint256) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.round == nil || s.round.Phase != PhasePrimary {
		return
	}

	req := &prepareRequest{
		Timestamp:         uint64(time.Now().UnixMilli()),
		Nonce:             nonce,
		TransactionHashes: txHashes,
		MerkleRoot:        merkleRoot,
	}
	p := s.wrap(prepareRequestType, req)
	s.round.PrepareRequest = p
	s.round.Phase = PhaseRequestSent
	s.Broadcast(p)
}

// OnPayload routes an incoming payload to the matching handler,
// applying the discard rules from spec.md §4.5 "Validity rules for
// incoming messages".
func (s *Service) OnPayload(p *Payload) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.round == nil || p.BlockIndex() != s.round.BlockIndex {
		return // different height: discard (spec.md §4.5 "Discard if block_index != current_block_index").
	}
	if p.ViewNumber() < s.round.View && p.message.Type != commitType && p.message.Type != changeViewType {
		return // stale view, except Commit/ChangeView which may still matter (spec.md §4.5).
	}

	switch p.message.Type {
	case prepareRequestType:
		s.onPrepareRequest(p)
	case prepareResponseType:
		s.onPrepareResponse(p)
	case commitType:
		s.onCommit(p)
	case changeViewType:
		s.onChangeView(p)
	}
}

// onPrepareRequest implements spec.md §4.5 transition 2 (backup
// timeline): a valid proposal draws a PrepareResponse.
func (s *Service) onPrepareRequest(p *Payload) {
	if s.round.Phase != PhaseBackup || s.round.PrepareRequest != nil {
		return // duplicate prepare-request for this (validator, view) is ignored.
	}
	s.round.PrepareRequest = p
	resp := &prepareResponse{PreparationHash: p.Hash()}
	rp := s.wrap(prepareResponseType, resp)
	s.round.Phase = PhaseRequestReceived
	s.round.Phase = PhaseResponseSent
	s.Broadcast(rp)
}

// onPrepareResponse implements spec.md §4.5 transition 3: once
// prepare-votes reach quorum, broadcast this node's Commit.
func (s *Service) onPrepareResponse(p *Payload) {
	if s.round.Phase == PhaseCommitSent || s.round.Phase == PhaseBlockSent {
		return
	}
	if !s.round.AddPrepareResponse(p) {
		return
	}
	s.sendCommit()
}

// sendCommit signs the proposed block header digest and broadcasts a
// Commit, transitioning to CommitSent (spec.md §4.5 transition 3).
func (s *Service) sendCommit() {
	if s.round.PrepareRequest == nil {
		return
	}
	sig := s.priv.PrivateKey.Sign(s.round.PrepareRequest.Hash().BytesBE())
	var fixed [signatureSize]byte
	copy(fixed[:], sig)
	c := &commit{Signature: fixed}
	cp := s.wrap(commitType, c)
	s.round.Phase = PhaseCommitSent
	s.Broadcast(cp)
	s.round.AddCommit(cp)
}

// onCommit implements spec.md §4.5 transition 4 and the rule that a
// Commit may be accepted even after moving to a higher view, to
// finalize an older view's quorum.
func (s *Service) onCommit(p *Payload) {
	if s.round.Phase == PhaseBlockSent {
		return
	}
	if !s.round.AddCommit(p) {
		return
	}
	s.round.Phase = PhaseBlockSent
	primary := s.round.PrepareRequest.ValidatorIndex()
	if err := s.ledger.AddBlock(s.round.BlockIndex, primary, s.round.PrepareRequest.GetPrepareRequest().TransactionHashes); err != nil {
		s.log.Error("failed to hand off produced block", zap.Error(err))
		return
	}
	s.height.Store(s.round.BlockIndex + 1)
}

// onChangeView implements spec.md §4.5 "View change": collects votes
// for a new view and adopts it once a quorum agrees.
func (s *Service) onChangeView(p *Payload) {
	if s.round.Phase == PhaseCommitSent || s.round.Phase == PhaseBlockSent {
		return // "A node in CommitSent never changes view voluntarily."
	}
	newView, quorum := s.round.AddChangeView(p)
	if !quorum {
		return
	}
	s.round.resetView(newView)
	if s.round.IsPrimary() {
		s.round.Phase = PhasePrimary
	} else {
		s.round.Phase = PhaseBackup
	}
}

// RequestViewChange broadcasts a ChangeView for this node, used on
// local view timeout (spec.md §4.5 "View change").
func (s *Service) RequestViewChange(reason ChangeViewReason) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.round == nil || s.round.Phase == PhaseCommitSent || s.round.Phase == PhaseBlockSent {
		return
	}
	cv := &changeView{
		NewViewNumber: s.round.View + 1,
		Timestamp:     uint64(time.Now().UnixMilli()),
		Reason:        reason,
	}
	p := s.wrap(changeViewType, cv)
	s.round.Phase = PhaseViewChanging
	s.Broadcast(p)
}

// BlockHeight returns the last height this service observed committed.
func (s *Service) BlockHeight() uint32 { return s.height.Load() }

// wrap signs and frames body as a Payload for the current round.
func (s *Service) wrap(t messageType, body io.Serializable) *Payload {
	p := &Payload{
		message: message{Type: t, ViewNumber: s.round.View, payload: body},
	}
	p.SetBlockIndex(s.round.BlockIndex)
	p.SetValidatorIndex(uint16(s.myIndex))
	p.Sign(s.priv)
	return p
}

// Package ledger implements the block-acceptance engine: header/body
// validation, the OnPersist/transaction/PostPersist execution cycle,
// state-root maintenance over the trie, and bounded-depth reorg
// (spec.md §4.4 "Ledger Engine").
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/neogo-core/node/pkg/config"
	"github.com/neogo-core/node/pkg/core/block"
	"github.com/neogo-core/node/pkg/core/dao"
	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/mempool"
	"github.com/neogo-core/node/pkg/core/mpt"
	"github.com/neogo-core/node/pkg/core/native"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/core/storage"
	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/trigger"
	"go.uber.org/zap"
)

// ErrAlreadyExists is returned by AddBlock for a hash already indexed.
var ErrAlreadyExists = errors.New("ledger: block already known")

// historyDepth bounds the number of blocks AddBlock keeps an undo
// record for. A node asked to roll back further than this has no path
// back to the prior chain; real deployments trade this off against
// memory, and this node fixes it at a modest constant rather than
// making it configurable (spec.md §4.4 "Reorganization" scopes
// indefinite rollback out, see DESIGN.md).
const historyDepth = 100

// blockReward is the flat per-block GAS issuance credited to the
// primary in PostPersist. The real protocol decays this over time
// (the teacher's own genAmount schedule: 8, 7, 6, ... GAS per block,
// halving roughly every two years); this node mints a flat amount
// instead, a named simplification (see DESIGN.md).
var blockReward = util.NewFixed8(5)

type headerEntry struct {
	header  *block.Header
	cumWork uint64
}

// Blockchain is the node's single ledger instance: the canonical
// chain of blocks rooted at genesis, the state trie their storage
// writes are folded into, and the mempool/native contracts/subscriber
// plumbing the rest of the node drives through it (spec.md §4.4).
type Blockchain struct {
	cfg   config.ProtocolConfiguration
	store storage.Store
	log   *zap.Logger

	dao       *dao.Simple
	contracts *native.Contracts
	mempool   *mempool.Pool

	trieStore *storage.MemCachedStore
	trie      *mpt.Trie

	mtx         sync.RWMutex
	headers     map[util.Uint256]*headerEntry
	heightIndex map[uint32]util.Uint256
	genesisHash util.Uint256
	bestHash    util.Uint256
	bestHeight  uint32

	history []blockDiff

	blockSubs  []chan<- *block.Block
	execSubs   []chan<- *state.AppExecResult
	notifySubs []chan<- *state.NotificationEvent
	txSubs     []chan<- *transaction.Transaction
}

// New creates a Blockchain over store, initializing it with (or
// loading, if already present) the genesis block. cfg must already
// have passed Validate.
func New(cfg config.ProtocolConfiguration, store storage.Store, log *zap.Logger) (*Blockchain, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := dao.NewSimple(store, cfg.StateRootInHeader, false)
	contracts := native.NewContracts(cfg)

	trieStore := storage.NewMemCachedStore(store)
	trie := mpt.NewTrie(nil, false, trieStore)

	bc := &Blockchain{
		cfg:         cfg,
		store:       store,
		log:         log,
		dao:         d,
		contracts:   contracts,
		mempool:     mempool.New(cfg.MemPoolSize, 0, false),
		trieStore:   trieStore,
		trie:        trie,
		headers:     make(map[util.Uint256]*headerEntry),
		heightIndex: make(map[uint32]util.Uint256),
	}

	if v, err := d.GetVersion(); err == nil && v.Prefix != 0 {
		return nil, fmt.Errorf("ledger: unsupported schema version %d", v.Prefix)
	}

	genesis, err := bc.loadOrCreateGenesis()
	if err != nil {
		return nil, err
	}
	bc.genesisHash = genesis.Hash()
	bc.bestHash = bc.genesisHash
	bc.bestHeight = 0
	bc.headers[bc.genesisHash] = &headerEntry{header: &genesis.Header, cumWork: 0}
	bc.heightIndex[0] = bc.genesisHash

	bc.log.Info("ledger initialized", zap.String("genesis", bc.genesisHash.StringLE()))
	return bc, nil
}

// blockContext builds an interop.Context suitable for read-only native
// calls made outside of a block's own persist cycle (mempool/RPC-style
// queries): its Block is the current best header so hardfork gating
// and committee lookups resolve against live chain state.
func (bc *Blockchain) blockContext() *interop.Context {
	bc.mtx.RLock()
	best := bc.headers[bc.bestHash].header
	bc.mtx.RUnlock()
	return &interop.Context{
		DAO:       bc.dao,
		Block:     &block.Block{Header: *best},
		Hardforks: bc.cfg.Hardforks,
		Log:       bc.log,
	}
}

// BlockHeight returns the height of the current best block.
func (bc *Blockchain) BlockHeight() uint32 {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.bestHeight
}

// HeaderHeight returns the height of the tallest known header, which
// for this node (headers and blocks always arrive together) equals
// BlockHeight.
func (bc *Blockchain) HeaderHeight() uint32 { return bc.BlockHeight() }

// CurrentBlockHash returns the hash of the current best block.
func (bc *Blockchain) CurrentBlockHash() util.Uint256 {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.bestHash
}

// CurrentHeaderHash is CurrentBlockHash for this node.
func (bc *Blockchain) CurrentHeaderHash() util.Uint256 { return bc.CurrentBlockHash() }

// GetConfig returns the protocol configuration this Blockchain was
// constructed with.
func (bc *Blockchain) GetConfig() config.ProtocolConfiguration { return bc.cfg }

// GetHeaderHash resolves height to its canonical header hash on the
// current best chain.
func (bc *Blockchain) GetHeaderHash(height uint32) (util.Uint256, bool) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	h, ok := bc.heightIndex[height]
	return h, ok
}

// GetHeader resolves hash to its header, from either chain.
func (bc *Blockchain) GetHeader(hash util.Uint256) (*block.Header, bool) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	he, ok := bc.headers[hash]
	if !ok {
		return nil, false
	}
	return he.header, true
}

// HasBlock reports whether hash names a known, stored block.
func (bc *Blockchain) HasBlock(hash util.Uint256) bool {
	if _, ok := bc.GetHeader(hash); !ok {
		return false
	}
	_, err := bc.dao.GetBlock(hash)
	return err == nil
}

// GetBlock fetches the full block stored under hash.
func (bc *Blockchain) GetBlock(hash util.Uint256) (*block.Block, error) {
	return bc.dao.GetBlock(hash)
}

// HasTransaction reports whether hash names a pooled or persisted
// transaction.
func (bc *Blockchain) HasTransaction(hash util.Uint256) bool {
	if _, ok := bc.mempool.TryGetValue(hash); ok {
		return true
	}
	_, err := bc.GetAppExecResult(hash)
	return err == nil
}

// GetTransaction fetches tx by hash from the pool while it is still
// pending admission into a block. Persisted transactions are not looked
// up; for them it returns dao.ErrNotFound.
func (bc *Blockchain) GetTransaction(hash util.Uint256) (*transaction.Transaction, error) {
	if tx, ok := bc.mempool.TryGetValue(hash); ok {
		return tx, nil
	}
	return nil, dao.ErrNotFound
}

// GetAppExecResult fetches tx's application execution log.
func (bc *Blockchain) GetAppExecResult(hash util.Uint256) (*state.AppExecResult, error) {
	results, err := bc.dao.GetAppExecResults(hash, trigger.Application)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, dao.ErrNotFound
	}
	return &results[0], nil
}

// GetContractState resolves hash to its deployed (native or
// user-deployed) contract record.
func (bc *Blockchain) GetContractState(hash util.Uint160) (*state.Contract, error) {
	return native.GetContractState(bc.dao, hash)
}

// GetStorageItem fetches the raw storage value stored under (id, key).
func (bc *Blockchain) GetStorageItem(id int32, key []byte) state.StorageItem {
	return bc.dao.GetStorageItem(id, key)
}

// GetMemPool returns this ledger's transaction pool.
func (bc *Blockchain) GetMemPool() *mempool.Pool { return bc.mempool }

// PoolTx verifies and admits tx into the mempool.
func (bc *Blockchain) PoolTx(tx *transaction.Transaction) error {
	if err := bc.VerifyTx(tx); err != nil {
		return err
	}
	return bc.mempool.Add(tx, bc)
}

// Close releases the backing store.
func (bc *Blockchain) Close() error {
	return bc.store.Close()
}

// GetBaseExecFee implements mempool.Feer.
func (bc *Blockchain) GetBaseExecFee() int64 {
	return bc.contracts.Policy.GetBaseExecFee(bc.blockContext())
}

// FeePerByte implements mempool.Feer.
func (bc *Blockchain) FeePerByte() int64 {
	return bc.contracts.Policy.FeePerByte(bc.blockContext())
}

// GetUtilityTokenBalance implements mempool.Feer.
func (bc *Blockchain) GetUtilityTokenBalance(acc util.Uint160) *big.Int {
	return bc.contracts.GAS.BalanceOf(bc.blockContext(), acc)
}

// P2PSigExtensionsEnabled implements mempool.Feer. This node does not
// carry the Notary/P2P-signature-collection extension, so it is
// always disabled (see DESIGN.md).
func (bc *Blockchain) P2PSigExtensionsEnabled() bool {
	return false
}

// SubscribeForBlocks registers ch to receive every block this ledger
// persists.
func (bc *Blockchain) SubscribeForBlocks(ch chan<- *block.Block) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	bc.blockSubs = append(bc.blockSubs, ch)
}

// UnsubscribeFromBlocks removes ch from the block subscriber list.
func (bc *Blockchain) UnsubscribeFromBlocks(ch chan<- *block.Block) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	for i, c := range bc.blockSubs {
		if c == ch {
			bc.blockSubs = append(bc.blockSubs[:i], bc.blockSubs[i+1:]...)
			return
		}
	}
}

// SubscribeForExecutions registers ch to receive every AppExecResult
// this ledger produces (block OnPersist/PostPersist and transactions
// alike).
func (bc *Blockchain) SubscribeForExecutions(ch chan<- *state.AppExecResult) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	bc.execSubs = append(bc.execSubs, ch)
}

// UnsubscribeFromExecutions removes ch from the execution subscriber
// list.
func (bc *Blockchain) UnsubscribeFromExecutions(ch chan<- *state.AppExecResult) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	for i, c := range bc.execSubs {
		if c == ch {
			bc.execSubs = append(bc.execSubs[:i], bc.execSubs[i+1:]...)
			return
		}
	}
}

// SubscribeForNotifications registers ch to receive every
// System.Runtime.Notify event raised while persisting a block.
func (bc *Blockchain) SubscribeForNotifications(ch chan<- *state.NotificationEvent) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	bc.notifySubs = append(bc.notifySubs, ch)
}

// UnsubscribeFromNotifications removes ch from the notification
// subscriber list.
func (bc *Blockchain) UnsubscribeFromNotifications(ch chan<- *state.NotificationEvent) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	for i, c := range bc.notifySubs {
		if c == ch {
			bc.notifySubs = append(bc.notifySubs[:i], bc.notifySubs[i+1:]...)
			return
		}
	}
}

// SubscribeForTransactions registers ch to receive every transaction
// as it is persisted.
func (bc *Blockchain) SubscribeForTransactions(ch chan<- *transaction.Transaction) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	bc.txSubs = append(bc.txSubs, ch)
}

// UnsubscribeFromTransactions removes ch from the transaction
// subscriber list.
func (bc *Blockchain) UnsubscribeFromTransactions(ch chan<- *transaction.Transaction) {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	for i, c := range bc.txSubs {
		if c == ch {
			bc.txSubs = append(bc.txSubs[:i], bc.txSubs[i+1:]...)
			return
		}
	}
}

func (bc *Blockchain) publishBlock(b *block.Block) {
	for _, ch := range bc.blockSubs {
		ch <- b
	}
}

func (bc *Blockchain) publishExecution(aer *state.AppExecResult) {
	for _, ch := range bc.execSubs {
		ch <- aer
	}
	for i := range aer.Events {
		ev := aer.Events[i]
		for _, ch := range bc.notifySubs {
			ch <- &ev
		}
	}
}

func (bc *Blockchain) publishTransaction(tx *transaction.Transaction) {
	for _, ch := range bc.txSubs {
		ch <- tx
	}
}

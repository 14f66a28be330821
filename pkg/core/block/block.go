package block

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/neogo-core/node/pkg/core/transaction"
	"github.com/neogo-core/node/pkg/crypto/hash"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
)

// MaxTransactionsPerBlock bounds the number of transactions a block may
// carry (spec.md §4.4 persist procedure's block-building limits).
const MaxTransactionsPerBlock = math.MaxUint16

// ErrMaxContentsPerBlock is returned when a block's transaction count
// exceeds MaxTransactionsPerBlock.
var ErrMaxContentsPerBlock = errors.New("block: number of transactions exceeds the maximum per block")

var expectedHeaderSizeWithEmptyWitness int

func init() {
	expectedHeaderSizeWithEmptyWitness = io.GetVarSize(new(Header))
}

// Block is one block in the chain: a Header plus its transaction list
// (spec.md §3 "Block").
type Block struct {
	Header

	Transactions []*transaction.Transaction

	// Trimmed reports whether this Block was reconstructed from trimmed
	// storage data, in which case Transactions holds hash-only stubs
	// (see transaction.NewTrimmedTX).
	Trimmed bool
}

type auxBlockOut struct {
	Transactions []*transaction.Transaction `json:"tx"`
}

type auxBlockIn struct {
	Transactions []json.RawMessage `json:"tx"`
}

// ComputeMerkleRoot computes the Merkle root over the block's current
// transaction hashes.
func (b *Block) ComputeMerkleRoot() util.Uint256 {
	hashes := make([]util.Uint256, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash()
	}
	return hash.CalcMerkleRoot(hashes)
}

// RebuildMerkleRoot recomputes and stores the block's Merkle root.
func (b *Block) RebuildMerkleRoot() {
	b.MerkleRoot = b.ComputeMerkleRoot()
}

// New creates a blank block, optionally carrying a state root field.
func New(stateRootEnabled bool) *Block {
	return &Block{
		Header: Header{StateRootEnabled: stateRootEnabled},
	}
}

// NewBlockFromTrimmedBytes reconstructs a Block from its trimmed storage
// encoding (see Block.Trim); its Transactions slice holds hash-only stubs
// and Trimmed is set to true.
func NewBlockFromTrimmedBytes(stateRootEnabled bool, b []byte) (*Block, error) {
	block := &Block{
		Header:  Header{StateRootEnabled: stateRootEnabled},
		Trimmed: true,
	}

	br := io.NewBinReaderFromBuf(b)
	block.Header.DecodeBinary(br)
	lenHashes := br.ReadVarUint()
	if lenHashes > MaxTransactionsPerBlock {
		return nil, ErrMaxContentsPerBlock
	}
	if lenHashes > 0 {
		block.Transactions = make([]*transaction.Transaction, lenHashes)
		for i := 0; i < int(lenHashes); i++ {
			var h util.Uint256
			h.DecodeBinary(br)
			block.Transactions[i] = transaction.NewTrimmedTX(h)
		}
	}
	return block, br.Err
}

// Trim returns the storage-trimmed encoding of the block: the header
// plus only its transactions' hashes, not their full bodies.
func (b *Block) Trim() ([]byte, error) {
	buf := io.NewBufBinWriter()
	b.Header.EncodeBinary(buf.BinWriter)

	buf.WriteVarUint(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		h := tx.Hash()
		h.EncodeBinary(buf.BinWriter)
	}
	if buf.Err != nil {
		return nil, buf.Err
	}
	return buf.Bytes(), nil
}

// DecodeBinary implements io.Serializable.
func (b *Block) DecodeBinary(br *io.BinReader) {
	b.Header.DecodeBinary(br)
	contentsCount := br.ReadVarUint()
	if contentsCount > MaxTransactionsPerBlock {
		br.Err = ErrMaxContentsPerBlock
		return
	}
	txes := make([]*transaction.Transaction, contentsCount)
	for i := 0; i < int(contentsCount); i++ {
		tx := &transaction.Transaction{}
		tx.DecodeBinary(br)
		txes[i] = tx
	}
	b.Transactions = txes
}

// EncodeBinary implements io.Serializable.
func (b *Block) EncodeBinary(bw *io.BinWriter) {
	b.Header.EncodeBinary(bw)
	bw.WriteVarUint(uint64(len(b.Transactions)))
	for i := 0; i < len(b.Transactions); i++ {
		b.Transactions[i].EncodeBinary(bw)
	}
}

// MarshalJSON implements json.Marshaler.
func (b Block) MarshalJSON() ([]byte, error) {
	auxb, err := json.Marshal(auxBlockOut{Transactions: b.Transactions})
	if err != nil {
		return nil, err
	}
	baseBytes, err := json.Marshal(b.Header)
	if err != nil {
		return nil, err
	}
	if baseBytes[len(baseBytes)-1] != '}' || auxb[0] != '{' {
		return nil, errors.New("block: can't merge internal jsons")
	}
	baseBytes[len(baseBytes)-1] = ','
	baseBytes = append(baseBytes, auxb[1:]...)
	return baseBytes, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Block) UnmarshalJSON(data []byte) error {
	auxb := new(auxBlockIn)
	if err := json.Unmarshal(data, auxb); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &b.Header); err != nil {
		return err
	}
	if len(auxb.Transactions) != 0 {
		b.Transactions = make([]*transaction.Transaction, 0, len(auxb.Transactions))
		for _, txBytes := range auxb.Transactions {
			tx := &transaction.Transaction{}
			if err := json.Unmarshal(txBytes, tx); err != nil {
				return err
			}
			b.Transactions = append(b.Transactions, tx)
		}
	}
	return nil
}

// GetExpectedBlockSize returns the block's expected encoded size.
func (b *Block) GetExpectedBlockSize() int {
	var transactionsSize int
	for _, tx := range b.Transactions {
		transactionsSize += tx.Size()
	}
	return b.GetExpectedBlockSizeWithoutTransactions(len(b.Transactions)) + transactionsSize
}

// GetExpectedBlockSizeWithoutTransactions returns the expected encoded
// size of the block excluding its transaction bodies.
func (b *Block) GetExpectedBlockSizeWithoutTransactions(txCount int) int {
	size := expectedHeaderSizeWithEmptyWitness - 1 - 1 +
		io.GetVarSize(&b.Script) +
		io.GetVarUintSize(txCount)
	if b.StateRootEnabled {
		size += util.Uint256Size
	}
	return size
}

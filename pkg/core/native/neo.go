package native

import (
	"encoding/hex"
	"errors"
	"sort"

	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/callflag"
	"github.com/neogo-core/node/pkg/vm/stackitem"
)

var keyCommitteeAddress = []byte{1}

// NEO is the native NEO contract: it holds the standby committee/
// validator set this chain was configured with and derives the
// committee multi-sig account consensus and policy changes are gated
// behind (spec.md §4.5 "validator set selected by the NEO native
// contract").
type NEO struct {
	*Contract

	standbyCommittee keys.PublicKeys
	validatorsCount  int
}

func newNEO(standby []string, validatorsCount uint32) *NEO {
	var pubs keys.PublicKeys
	for _, s := range standby {
		b, err := hex.DecodeString(s)
		if err != nil {
			continue
		}
		pub := &keys.PublicKey{}
		if pub.DecodeBytes(b) != nil {
			continue
		}
		pubs = append(pubs, pub)
	}

	n := &NEO{
		Contract: &Contract{
			Hash: nativeHash("NeoToken"),
			ID:   NeoID,
			Name: "NeoToken",
		},
		standbyCommittee: pubs,
		validatorsCount:  int(validatorsCount),
	}
	n.Methods = []interop.Function{
		{ID: methodID(n.Name, "getCommittee"), Name: "getCommittee", Func: n.getCommittee, Price: 1 << 16, RequiredFlags: callflag.ReadStates},
		{ID: methodID(n.Name, "getNextBlockValidators"), Name: "getNextBlockValidators", Func: n.getNextBlockValidators, Price: 1 << 16, RequiredFlags: callflag.ReadStates},
		{ID: methodID(n.Name, "getCommitteeAddress"), Name: "getCommitteeAddress", Func: n.getCommitteeAddress, Price: 1 << 15, RequiredFlags: callflag.ReadStates},
	}
	n.OnPersist = n.onPersist
	return n
}

// Committee returns the configured committee public keys, sorted per
// the keys.PublicKeys ordering multi-sig scripts require.
func (n *NEO) Committee() keys.PublicKeys {
	sorted := make(keys.PublicKeys, len(n.standbyCommittee))
	copy(sorted, n.standbyCommittee)
	sort.Sort(sorted)
	return sorted
}

// Validators returns the first ValidatorsCount entries of the
// committee, the block-producing set consensus selects its primary
// from (spec.md §4.5 "validator set").
func (n *NEO) Validators() keys.PublicKeys {
	c := n.Committee()
	if n.validatorsCount > len(c) {
		return c
	}
	return c[:n.validatorsCount]
}

// CommitteeAccount derives the committee's m-of-n multi-sig account
// hash, used to gate Policy's committee-only setters and the
// consensus witness on committee-authored transactions.
func (n *NEO) CommitteeAccount() (util.Uint160, error) {
	c := n.Committee()
	m := len(c) - (len(c)-1)/2
	return c.GetScriptHash(m)
}

// onPersist seeds the committee-address/validator-count storage on
// the first block so Policy's committee check and future GetCommittee
// calls resolve without recomputing the multi-sig script every time.
func (n *NEO) onPersist(ic *interop.Context) error {
	if ic.DAO.GetStorageItem(NeoID, keyCommitteeAddress) != nil {
		return nil
	}
	acc, err := n.CommitteeAccount()
	if err != nil {
		return err
	}
	return ic.DAO.PutStorageItem(NeoID, keyCommitteeAddress, state.StorageItem(acc.BytesBE()))
}

func (n *NEO) getCommittee(ic *interop.Context) error {
	return pushPublicKeys(ic, n.Committee())
}

func (n *NEO) getNextBlockValidators(ic *interop.Context) error {
	return pushPublicKeys(ic, n.Validators())
}

func (n *NEO) getCommitteeAddress(ic *interop.Context) error {
	si := ic.DAO.GetStorageItem(NeoID, keyCommitteeAddress)
	if si == nil {
		return errors.New("native/neo: committee address not yet persisted")
	}
	bs, err := stackitem.NewByteString(si)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(bs)
	return nil
}

func pushPublicKeys(ic *interop.Context, pubs keys.PublicKeys) error {
	items := make([]stackitem.Item, len(pubs))
	for i, p := range pubs {
		bs, err := stackitem.NewByteString(p.Bytes())
		if err != nil {
			return err
		}
		items[i] = bs
	}
	arr, err := stackitem.NewArray(items)
	if err != nil {
		return err
	}
	ic.VM.Estack().Push(arr)
	return nil
}

package native

import (
	"fmt"

	"github.com/neogo-core/node/pkg/config"
	"github.com/neogo-core/node/pkg/core/interop"
	"github.com/neogo-core/node/pkg/core/interop/interopnames"
	"github.com/neogo-core/node/pkg/util"
)

// Fixed native contract ids, following the public Neo N3 protocol's
// own numbering so a reader matching hashes against the live network
// sees the same small negative ids (spec.md §4.2 "stable numeric id").
const (
	ManagementID int32 = -1
	NeoID        int32 = -5
	GasID        int32 = -6
	PolicyID     int32 = -7
)

// Contract is one native contract: its fixed hash/id, the method table
// it contributes to the interop dispatcher, and the block-boundary
// hooks the ledger's persist procedure invokes (spec.md §4.2 "Native
// contract registration", "OnPersist / PostPersist").
type Contract struct {
	Hash util.Uint160
	ID   int32
	Name string

	Methods []interop.Function

	// OnPersist and PostPersist run once per block, with CallFlags::All,
	// before and after the transaction batch respectively (spec.md
	// §4.4 "persist procedure"). Either may be nil.
	OnPersist   func(ic *interop.Context) error
	PostPersist func(ic *interop.Context) error
}

func methodID(contractName, method string) uint32 {
	return interopnames.ToID([]byte(contractName + "." + method))
}

// Call invokes method directly against this contract, bypassing VM
// script loading (spec.md §4.2 "native contracts may call one another
// directly"); used by other native contracts and by the ledger.
func (c *Contract) Call(ic *interop.Context, method string) error {
	for i := range c.Methods {
		if c.Methods[i].Name != method {
			continue
		}
		if !ic.IsHardforkEnabled(c.Methods[i].ActiveFrom) {
			break
		}
		return c.Methods[i].Func(ic)
	}
	return fmt.Errorf("native: %s has no active method %q", c.Name, method)
}

// Contracts is the fixed set of native contracts a node registers,
// keyed for both by-hash dispatch (System.Contract.Call) and
// persist-cycle iteration.
type Contracts struct {
	Management *Management
	Policy     *Policy
	NEO        *NEO
	GAS        *GAS

	all    []*Contract
	byHash map[util.Uint160]*Contract
}

// NewContracts builds the fixed native contract set for cfg's initial
// committee/validators (spec.md §4.2, §4.5 "validator set selected by
// the NEO native contract").
func NewContracts(cfg config.ProtocolConfiguration) *Contracts {
	mgmt := newManagement()
	pol := newPolicy()
	neo := newNEO(cfg.StandbyCommittee, cfg.ValidatorsCount)
	gas := newGAS()

	cs := &Contracts{
		Management: mgmt,
		Policy:     pol,
		NEO:        neo,
		GAS:        gas,
		all:        []*Contract{mgmt.Contract, pol.Contract, neo.Contract, gas.Contract},
		byHash:     make(map[util.Uint160]*Contract, 4),
	}
	for _, c := range cs.all {
		cs.byHash[c.Hash] = c
	}
	return cs
}

// All returns every native contract, in persist-cycle order
// (Management, Policy, NEO, GAS — matching the order their storage
// dependencies require: Policy's fee defaults are read while
// processing transactions that NEO/GAS's OnPersist may itself need).
func (cs *Contracts) All() []*Contract { return cs.all }

// ByHash resolves hash to its native contract, or nil if hash does not
// name one.
func (cs *Contracts) ByHash(hash util.Uint160) *Contract {
	return cs.byHash[hash]
}

// Functions returns the combined method table every native contract
// contributes to the interop dispatcher, for wiring into
// interop.Context.Functions alongside the SYSCALL services from
// interop.DefaultFunctions.
func (cs *Contracts) Functions() []interop.Function {
	var fs []interop.Function
	for _, c := range cs.all {
		fs = append(fs, c.Methods...)
	}
	return fs
}

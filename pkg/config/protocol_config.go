package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/neogo-core/node/pkg/config/netmode"
	"github.com/neogo-core/node/pkg/util"
)

// ProtocolConfiguration holds every network-wide consensus-relevant
// parameter: the values every honest node on the same network must
// agree on bit-for-bit (spec.md §2 "protocol settings").
type ProtocolConfiguration struct {
	Magic       netmode.Magic `yaml:"Magic"`
	MemPoolSize int           `yaml:"MemPoolSize"`

	// Hardforks maps a hardfork name to the height it activates at;
	// absent names are treated as not yet scheduled (spec.md §4.2).
	Hardforks map[string]uint32 `yaml:"Hardforks"`

	InitialGASSupply util.Fixed8 `yaml:"InitialGASSupply"`

	MaxBlockSize                uint32        `yaml:"MaxBlockSize"`
	MaxBlockSystemFee           int64         `yaml:"MaxBlockSystemFee"`
	MaxTraceableBlocks          uint32        `yaml:"MaxTraceableBlocks"`
	MaxTransactionsPerBlock     uint16        `yaml:"MaxTransactionsPerBlock"`
	MaxValidUntilBlockIncrement uint32        `yaml:"MaxValidUntilBlockIncrement"`
	TimePerBlock                time.Duration `yaml:"TimePerBlock"`

	SeedList         []string `yaml:"SeedList"`
	StandbyCommittee []string `yaml:"StandbyCommittee"`
	ValidatorsCount  uint32   `yaml:"ValidatorsCount"`

	// CommitteeHistory and ValidatorsHistory record height-keyed
	// overrides of committee/validator count; empty means the flat
	// ValidatorsCount/len(StandbyCommittee) applies at every height.
	CommitteeHistory  map[uint32]uint32 `yaml:"CommitteeHistory"`
	ValidatorsHistory map[uint32]uint32 `yaml:"ValidatorsHistory"`

	// StateRootInHeader enables storing the state root in the block
	// header itself rather than only the separate state-root message
	// (spec.md §6 "State-root message").
	StateRootInHeader bool `yaml:"StateRootInHeader"`

	VerifyTransactions bool `yaml:"VerifyTransactions"`
}

// Validate checks a ProtocolConfiguration for internal consistency.
// Every other package may assume a Validate'd configuration is safe to
// use without further defensive checks.
func (p *ProtocolConfiguration) Validate() error {
	if p.TimePerBlock%time.Millisecond != 0 {
		return errors.New("TimePerBlock must be an integer number of milliseconds")
	}
	for name := range p.Hardforks {
		if !IsHardforkValid(name) {
			return fmt.Errorf("Hardforks configuration contains unknown hardfork: %s", name)
		}
	}
	var prev uint32
	var shouldBeDisabled bool
	for _, hf := range Hardforks {
		h, ok := p.Hardforks[hf.String()]
		if ok && shouldBeDisabled {
			return fmt.Errorf("missing previous hardfork configuration before %s", hf)
		}
		if ok && h < prev {
			return fmt.Errorf("hardfork %s activation height is lower than its predecessor's", hf)
		}
		if ok {
			prev = h
		} else {
			shouldBeDisabled = true
		}
	}
	if (p.ValidatorsCount != 0) == (len(p.ValidatorsHistory) != 0) {
		return errors.New("configuration must set exactly one of ValidatorsCount or ValidatorsHistory")
	}
	if len(p.StandbyCommittee) == 0 {
		return errors.New("configuration must include StandbyCommittee")
	}
	if len(p.StandbyCommittee) < int(p.ValidatorsCount) {
		return errors.New("validators count can't exceed the size of StandbyCommittee")
	}
	return nil
}

// GetCommitteeSize returns the committee size in effect at height.
func (p *ProtocolConfiguration) GetCommitteeSize(height uint32) int {
	if len(p.CommitteeHistory) == 0 {
		return len(p.StandbyCommittee)
	}
	return int(bestAtHeight(p.CommitteeHistory, height))
}

// GetNumOfCNs returns the number of consensus nodes in effect at
// height.
func (p *ProtocolConfiguration) GetNumOfCNs(height uint32) int {
	if len(p.ValidatorsHistory) == 0 {
		return int(p.ValidatorsCount)
	}
	return int(bestAtHeight(p.ValidatorsHistory, height))
}

// ShouldUpdateCommitteeAt reports whether the committee rotates at
// height, which happens every GetCommitteeSize(height) blocks.
func (p *ProtocolConfiguration) ShouldUpdateCommitteeAt(height uint32) bool {
	return height%uint32(p.GetCommitteeSize(height)) == 0
}

func bestAtHeight(dict map[uint32]uint32, height uint32) uint32 {
	var res, bestH uint32
	for h, n := range dict {
		if h >= bestH && h <= height {
			res, bestH = n, h
		}
	}
	return res
}

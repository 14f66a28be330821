package dao

import (
	"github.com/neogo-core/node/pkg/core/state"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
	"github.com/neogo-core/node/pkg/vm/stackitem"
	"github.com/neogo-core/node/pkg/vm/trigger"
	"github.com/neogo-core/node/pkg/vm/vmstate"
)

// encodeAppExecResult is a small ad hoc codec for state.AppExecResult;
// it is stored only via DAO, so it needs no public Serializable
// implementation of its own on the state type.
func encodeAppExecResult(bw *io.BinWriter, aer *state.AppExecResult) {
	aer.Container.EncodeBinary(bw)
	bw.WriteB(byte(aer.Trigger))
	bw.WriteB(byte(aer.VMState))
	bw.WriteI64LE(aer.GasConsumed)
	bw.WriteVarString(aer.FaultException)
	bw.WriteVarUint(uint64(len(aer.Stack)))
	for _, item := range aer.Stack {
		data, err := stackitem.Serialize(item)
		if err != nil {
			bw.Err = err
			return
		}
		bw.WriteVarBytes(data)
	}
	bw.WriteVarUint(uint64(len(aer.Events)))
	for _, ev := range aer.Events {
		ev.ScriptHash.EncodeBinary(bw)
		bw.WriteVarString(ev.Name)
		data, err := stackitem.Serialize(ev.Item)
		if err != nil {
			bw.Err = err
			return
		}
		bw.WriteVarBytes(data)
	}
}

func decodeAppExecResult(data []byte) (*state.AppExecResult, error) {
	br := io.NewBinReaderFromBuf(data)
	aer := &state.AppExecResult{}
	aer.Container.DecodeBinary(br)
	aer.Trigger = trigger.Type(br.ReadB())
	aer.VMState = vmstate.State(br.ReadB())
	aer.GasConsumed = br.ReadI64LE()
	aer.FaultException = br.ReadVarString()

	n := br.ReadVarUint()
	if br.Err != nil {
		return nil, br.Err
	}
	aer.Stack = make([]stackitem.Item, n)
	for i := range aer.Stack {
		raw := br.ReadVarBytes()
		if br.Err != nil {
			return nil, br.Err
		}
		item, err := stackitem.Deserialize(raw)
		if err != nil {
			return nil, err
		}
		aer.Stack[i] = item
	}

	m := br.ReadVarUint()
	if br.Err != nil {
		return nil, br.Err
	}
	aer.Events = make([]state.NotificationEvent, m)
	for i := range aer.Events {
		var h util.Uint160
		h.DecodeBinary(br)
		name := br.ReadVarString()
		raw := br.ReadVarBytes()
		if br.Err != nil {
			return nil, br.Err
		}
		item, err := stackitem.Deserialize(raw)
		if err != nil {
			return nil, err
		}
		arr, ok := item.(stackitem.Array)
		if !ok {
			arr, _ = stackitem.NewArray(nil)
		}
		aer.Events[i] = state.NotificationEvent{ScriptHash: h, Name: name, Item: arr}
	}
	if br.Err != nil {
		return nil, br.Err
	}
	return aer, nil
}

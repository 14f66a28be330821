// Package interopnames holds the registered SYSCALL names and their
// 4-byte dispatch hashes (spec.md §4.1 "Interop dispatcher").
package interopnames

import (
	"encoding/binary"
	"errors"

	"github.com/neogo-core/node/pkg/crypto/hash"
)

// Name constants for every interop service this node registers.
const (
	SystemStorageGetContext         = "System.Storage.GetContext"
	SystemStorageGetReadOnlyContext = "System.Storage.GetReadOnlyContext"
	SystemStorageAsReadOnly         = "System.Storage.AsReadOnly"
	SystemStorageGet                = "System.Storage.Get"
	SystemStoragePut                = "System.Storage.Put"
	SystemStorageDelete             = "System.Storage.Delete"
	SystemStorageFind               = "System.Storage.Find"

	SystemRuntimePlatform            = "System.Runtime.Platform"
	SystemRuntimeGetTrigger          = "System.Runtime.GetTrigger"
	SystemRuntimeGetTime             = "System.Runtime.GetTime"
	SystemRuntimeGetScriptContainer  = "System.Runtime.GetScriptContainer"
	SystemRuntimeGetExecutingScriptHash = "System.Runtime.GetExecutingScriptHash"
	SystemRuntimeGetCallingScriptHash   = "System.Runtime.GetCallingScriptHash"
	SystemRuntimeGetEntryScriptHash     = "System.Runtime.GetEntryScriptHash"
	SystemRuntimeCheckWitness        = "System.Runtime.CheckWitness"
	SystemRuntimeNotify              = "System.Runtime.Notify"
	SystemRuntimeLog                 = "System.Runtime.Log"
	SystemRuntimeGetInvocationCounter = "System.Runtime.GetInvocationCounter"

	SystemContractCall = "System.Contract.Call"

	SystemIteratorNext  = "System.Iterator.Next"
	SystemIteratorValue = "System.Iterator.Value"
)

var names = []string{
	SystemStorageGetContext, SystemStorageGetReadOnlyContext, SystemStorageAsReadOnly,
	SystemStorageGet, SystemStoragePut, SystemStorageDelete, SystemStorageFind,
	SystemRuntimePlatform, SystemRuntimeGetTrigger, SystemRuntimeGetTime,
	SystemRuntimeGetScriptContainer, SystemRuntimeGetExecutingScriptHash,
	SystemRuntimeGetCallingScriptHash, SystemRuntimeGetEntryScriptHash,
	SystemRuntimeCheckWitness, SystemRuntimeNotify, SystemRuntimeLog,
	SystemRuntimeGetInvocationCounter,
	SystemContractCall, SystemIteratorNext, SystemIteratorValue,
}

var byID = make(map[uint32]string, len(names))

func init() {
	for _, n := range names {
		byID[ToID([]byte(n))] = n
	}
}

// ToID hashes a service name to its 4-byte dispatch id: the first four
// bytes, little-endian, of SHA256(name) (spec.md §4.1 "a 4-byte hash
// identifying a registered service").
func ToID(name []byte) uint32 {
	h := hash.Sha256(name)
	return binary.LittleEndian.Uint32(h[:4])
}

var errNotFound = errors.New("interop: id not registered")

// FromID reverse-looks-up a registered name by id, for diagnostics and
// tests; unregistered ids report errNotFound.
func FromID(id uint32) (string, error) {
	n, ok := byID[id]
	if !ok {
		return "", errNotFound
	}
	return n, nil
}

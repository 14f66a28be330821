package stateroot

import (
	"testing"

	"github.com/neogo-core/node/pkg/crypto/keys"
	"github.com/neogo-core/node/pkg/io"
	"github.com/neogo-core/node/pkg/util"
	"github.com/stretchr/testify/require"
)

func newValidators(t *testing.T, n int) ([]*keys.PrivateKey, keys.PublicKeys) {
	privs := make([]*keys.PrivateKey, n)
	pubs := make(keys.PublicKeys, n)
	for i := range privs {
		priv, err := keys.NewPrivateKey()
		require.NoError(t, err)
		privs[i] = priv
		pubs[i] = priv.PublicKey()
	}
	sortKeys(pubs)
	return privs, pubs
}

func sortKeys(pubs keys.PublicKeys) {
	for i := 1; i < len(pubs); i++ {
		for j := i; j > 0 && pubs.Less(j, j-1); j-- {
			pubs.Swap(j, j-1)
		}
	}
}

func TestStateRoot_HashStableAcrossEncoding(t *testing.T) {
	sr := &StateRoot{Version: Version, Index: 42, Root: util.Uint256{1, 2, 3}}
	h1 := sr.Hash()
	sr.Witness.InvocationScript = []byte{1, 2, 3}
	require.Equal(t, h1, sr.Hash())
}

func TestStateRoot_SignAndVerifyWitness(t *testing.T) {
	privs, pubs := newValidators(t, 4)
	sr := &StateRoot{Version: Version, Index: 100, Root: util.Uint256{9, 9}}
	require.NoError(t, sr.SetValidators(3, pubs))

	for _, priv := range privs[:3] {
		sr.Sign(priv)
	}
	require.True(t, sr.VerifyWitness(3, pubs))
}

func TestStateRoot_VerifyWitness_InsufficientSignatures(t *testing.T) {
	privs, pubs := newValidators(t, 4)
	sr := &StateRoot{Version: Version, Index: 100, Root: util.Uint256{9, 9}}
	require.NoError(t, sr.SetValidators(3, pubs))

	sr.Sign(privs[0])
	sr.Sign(privs[1])
	require.False(t, sr.VerifyWitness(3, pubs))
}

func TestStateRoot_EncodeDecodeBinary(t *testing.T) {
	privs, pubs := newValidators(t, 1)
	sr := &StateRoot{Version: Version, Index: 7, Root: util.Uint256{1}}
	require.NoError(t, sr.SetValidators(1, pubs))
	sr.Sign(privs[0])

	buf := io.NewBufBinWriter()
	sr.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.BinWriter.Err)

	var decoded StateRoot
	r := io.NewBinReaderFromBuf(buf.Bytes())
	decoded.DecodeBinary(r)
	require.NoError(t, r.Err)
	require.Equal(t, sr.Index, decoded.Index)
	require.True(t, sr.Root.Equals(decoded.Root))
	require.Equal(t, sr.Witness.InvocationScript, decoded.Witness.InvocationScript)
	require.Equal(t, sr.Witness.VerificationScript, decoded.Witness.VerificationScript)
}

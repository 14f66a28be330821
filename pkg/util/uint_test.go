package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint160DecodeString(t *testing.T) {
	hexStr := "2d3b96ae1bcc5a585e075e3b81920210dec16302"[:40]
	val, err := Uint160DecodeString(hexStr)
	require.NoError(t, err)
	assert.Equal(t, hexStr, val.String())
}

func TestUint160UnmarshalJSON(t *testing.T) {
	str := "2d3b96ae1bcc5a585e075e3b81920210dec16302"
	expected, err := Uint160DecodeString(str)
	require.NoError(t, err)

	var u1 Uint160
	s, _ := json.Marshal(str)
	require.NoError(t, json.Unmarshal(s, &u1))
	assert.True(t, expected.Equals(u1))

	var u2 Uint160
	s, _ = json.Marshal("0x" + str)
	require.NoError(t, json.Unmarshal(s, &u2))
	assert.True(t, expected.Equals(u2))
}

func TestUint256RoundTrip(t *testing.T) {
	hexStr := "f782c7fbc2939b0b82a7b64f52f5a11c33c20e5e9d8db6c5f5f8d90a76b323f0"[:64]
	val, err := Uint256DecodeString(hexStr)
	require.NoError(t, err)
	assert.Equal(t, hexStr, val.String())

	data, err := json.Marshal(val)
	require.NoError(t, err)
	var val2 Uint256
	require.NoError(t, json.Unmarshal(data, &val2))
	assert.True(t, val.Equals(val2))
}

func TestUint160Less(t *testing.T) {
	a, _ := Uint160DecodeBytes(make([]byte, 20))
	b := a
	b[0] = 1
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestFixed8String(t *testing.T) {
	f := NewFixed8(1) + 5000000
	assert.Equal(t, "1.05000000", f.String())
}

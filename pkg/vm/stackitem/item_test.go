package stackitem

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 127, -128, 255, 1 << 40, -(1 << 40)} {
		i := NewIntegerFromInt64(v)
		got, err := i.BigInt()
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(v).String(), got.String())
	}
}

func TestIntegerOverflowFaults(t *testing.T) {
	max := new(big.Int).Lsh(big.NewInt(1), 255)
	_, err := NewInteger(max)
	assert.ErrorIs(t, err, ErrIntegerTooBig)

	almostMax := new(big.Int).Sub(max, big.NewInt(1))
	_, err = NewInteger(almostMax)
	assert.NoError(t, err)
}

func TestBoolCoercion(t *testing.T) {
	assert.True(t, Bool(true).Bool())
	assert.False(t, NewIntegerFromInt64(0).Bool())
	assert.True(t, NewIntegerFromInt64(5).Bool())

	bs, _ := NewByteString([]byte{0, 0})
	assert.False(t, bs.Bool())
	bs2, _ := NewByteString([]byte{0, 1})
	assert.True(t, bs2.Bool())
}

func TestStructValueEquality(t *testing.T) {
	a, _ := NewStruct([]Item{NewIntegerFromInt64(1), Bool(true)})
	b, _ := NewStruct([]Item{NewIntegerFromInt64(1), Bool(true)})
	assert.True(t, a.Equals(b))

	arrA, _ := NewArray([]Item{NewIntegerFromInt64(1)})
	arrB, _ := NewArray([]Item{NewIntegerFromInt64(1)})
	assert.False(t, arrA.Equals(arrB), "arrays compare by reference, not value")
	assert.True(t, arrA.Equals(arrA.Dup()))
}

func TestRefCounterTracksCompounds(t *testing.T) {
	rc := NewRefCounter(10)
	arr, _ := NewArray([]Item{NewIntegerFromInt64(1)})
	require.NoError(t, rc.Add(arr))
	require.NoError(t, rc.Add(arr))
	assert.Equal(t, 2, rc.Count(arr))
	assert.Equal(t, 1, rc.Size())

	rc.Remove(arr)
	assert.Equal(t, 1, rc.Count(arr))
	rc.Remove(arr)
	assert.Equal(t, 0, rc.Count(arr))
	assert.Equal(t, 0, rc.Size())
}

func TestRefCounterLimit(t *testing.T) {
	rc := NewRefCounter(1)
	a1, _ := NewArray(nil)
	a2, _ := NewArray(nil)
	require.NoError(t, rc.Add(a1))
	assert.ErrorIs(t, rc.Add(a2), ErrTooBig)
}

func TestMapOrderingAndDelete(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Set(NewIntegerFromInt64(1), Bool(true)))
	require.NoError(t, m.Set(NewIntegerFromInt64(2), Bool(false)))
	assert.Equal(t, 2, m.Len())

	m.Delete(NewIntegerFromInt64(1))
	assert.Equal(t, 1, m.Len())
	v, ok := m.Get(NewIntegerFromInt64(2))
	assert.True(t, ok)
	assert.Equal(t, Bool(false), v)
}

package crypt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Small parameters keep the derivation fast under -race.
func testHasher() *ScryptHasher {
	return &ScryptHasher{N: 1 << 4, R: 8, P: 1, KeyLen: 32}
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher()

	salt, err := NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)

	stored, err := h.Hash("letmein", salt)
	require.NoError(t, err)
	require.Len(t, stored, h.KeyLen)

	require.True(t, h.Verify("letmein", salt, stored))
	require.False(t, h.Verify("LETMEIN", salt, stored))
	require.False(t, h.Verify("", salt, stored))
}

func TestVerifyWrongSalt(t *testing.T) {
	h := testHasher()

	salt, err := NewSalt()
	require.NoError(t, err)
	otherSalt, err := NewSalt()
	require.NoError(t, err)

	stored, err := h.Hash("hunter2", salt)
	require.NoError(t, err)

	require.False(t, h.Verify("hunter2", otherSalt, stored))
}

func TestSaltsAreUnique(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

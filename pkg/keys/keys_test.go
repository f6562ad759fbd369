package keys

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeypairDeterministic(t *testing.T) {
	t.Run("same spending key yields identical derived keys", func(t *testing.T) {
		sk := big.NewInt(1)
		k1, err := NewKeypair(sk)
		require.NoError(t, err)
		k2, err := NewKeypair(sk)
		require.NoError(t, err)

		assert.Equal(t, 0, k1.NullifyingKey.Cmp(k2.NullifyingKey))
		assert.Equal(t, 0, k1.MasterPublicKey.Cmp(k2.MasterPublicKey))
		assert.Equal(t, k1.ViewingPriv, k2.ViewingPriv)
		assert.Equal(t, k1.ViewingPub, k2.ViewingPub)
	})

	t.Run("different spending keys yield different master public keys", func(t *testing.T) {
		k1, err := NewKeypair(big.NewInt(1))
		require.NoError(t, err)
		k2, err := NewKeypair(big.NewInt(2))
		require.NoError(t, err)
		assert.NotEqual(t, 0, k1.MasterPublicKey.Cmp(k2.MasterPublicKey))
	})
}

func TestCreateNoteAndOwnership(t *testing.T) {
	kp, err := NewKeypair(big.NewInt(1))
	require.NoError(t, err)
	token := big.NewInt(42)

	t.Run("owner verifies ownership", func(t *testing.T) {
		n, err := CreateNote(kp.MasterPublicKey, token, 1000, nil)
		require.NoError(t, err)
		assert.True(t, n.VerifyOwnership(kp.MasterPublicKey))
	})

	t.Run("non-owner fails ownership", func(t *testing.T) {
		n, err := CreateNote(kp.MasterPublicKey, token, 1000, nil)
		require.NoError(t, err)
		other, err := NewKeypair(big.NewInt(2))
		require.NoError(t, err)
		assert.False(t, n.VerifyOwnership(other.MasterPublicKey))
	})

	t.Run("zero value note is a dummy", func(t *testing.T) {
		n, err := CreateNote(kp.MasterPublicKey, token, 0, nil)
		require.NoError(t, err)
		assert.True(t, n.IsDummy())
	})

	t.Run("nonzero value note is not a dummy", func(t *testing.T) {
		n, err := CreateNote(kp.MasterPublicKey, token, 1, nil)
		require.NoError(t, err)
		assert.False(t, n.IsDummy())
	})

	t.Run("explicit random is honored", func(t *testing.T) {
		random := big.NewInt(999)
		n, err := CreateNote(kp.MasterPublicKey, token, 5, random)
		require.NoError(t, err)
		assert.Equal(t, 0, n.Random.Cmp(random))
	})
}

func TestComputeNullifier(t *testing.T) {
	kp, err := NewKeypair(big.NewInt(1))
	require.NoError(t, err)

	t.Run("deterministic given key and index", func(t *testing.T) {
		n1 := ComputeNullifier(kp.NullifyingKey, 5)
		n2 := ComputeNullifier(kp.NullifyingKey, 5)
		assert.Equal(t, 0, n1.Cmp(n2))
	})

	t.Run("different indices yield different nullifiers", func(t *testing.T) {
		n1 := ComputeNullifier(kp.NullifyingKey, 5)
		n2 := ComputeNullifier(kp.NullifyingKey, 6)
		assert.NotEqual(t, 0, n1.Cmp(n2))
	})
}

func TestDeriveTokenID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		addr := []byte("package-address-bytes")
		assert.Equal(t, 0, DeriveTokenID(addr).Cmp(DeriveTokenID(addr)))
	})

	t.Run("different addresses yield different ids", func(t *testing.T) {
		a := DeriveTokenID([]byte("address-a"))
		b := DeriveTokenID([]byte("address-b"))
		assert.NotEqual(t, 0, a.Cmp(b))
	})
}

package noteenc

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccoin/shield/pkg/keys"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Run("owner decrypts successfully (universal invariant 1)", func(t *testing.T) {
		kp, err := keys.NewKeypair(big.NewInt(1))
		require.NoError(t, err)

		n, err := keys.CreateNote(kp.MasterPublicKey, big.NewInt(7), 1_000_000, nil)
		require.NoError(t, err)

		env, err := Encrypt(n, kp.ViewingPub)
		require.NoError(t, err)
		assert.Len(t, env, EnvelopeSize)

		got, ok, err := Decrypt(env[:], kp)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 0, got.NSK.Cmp(n.NSK))
		assert.Equal(t, 0, got.Token.Cmp(n.Token))
		assert.Equal(t, n.Value, got.Value)
		assert.Equal(t, 0, got.Commitment.Cmp(n.Commitment))
	})
}

func TestDecryptWrongRecipient(t *testing.T) {
	t.Run("scenario F: wrong recipient never recovers ownership", func(t *testing.T) {
		kpA, err := keys.NewKeypair(big.NewInt(1))
		require.NoError(t, err)
		kpB, err := keys.NewKeypair(big.NewInt(2))
		require.NoError(t, err)

		n, err := keys.CreateNote(kpA.MasterPublicKey, big.NewInt(7), 500, nil)
		require.NoError(t, err)

		env, err := Encrypt(n, kpA.ViewingPub)
		require.NoError(t, err)

		_, ok, err := Decrypt(env[:], kpB)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDecryptMalformedLength(t *testing.T) {
	t.Run("wrong-length envelope is an error, not a false ownership result", func(t *testing.T) {
		kp, err := keys.NewKeypair(big.NewInt(1))
		require.NoError(t, err)
		_, _, err = Decrypt(make([]byte, 10), kp)
		assert.Error(t, err)
	})
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	t.Run("tampered ciphertext fails AEAD, reported as not-my-note", func(t *testing.T) {
		kp, err := keys.NewKeypair(big.NewInt(1))
		require.NoError(t, err)
		n, err := keys.CreateNote(kp.MasterPublicKey, big.NewInt(3), 10, nil)
		require.NoError(t, err)

		env, err := Encrypt(n, kp.ViewingPub)
		require.NoError(t, err)
		env[100] ^= 0xFF

		_, ok, err := Decrypt(env[:], kp)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

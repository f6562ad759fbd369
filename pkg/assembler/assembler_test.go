package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleShield(t *testing.T) {
	t.Run("valid inputs assemble", func(t *testing.T) {
		var commitment [32]byte
		call, err := AssembleShield(PoolRef("pool"), CoinRef("coin"), commitment, make([]byte, 188))
		require.NoError(t, err)
		assert.Equal(t, 188, len(call.EncryptedNote))
	})

	t.Run("wrong-length encrypted note rejected", func(t *testing.T) {
		var commitment [32]byte
		_, err := AssembleShield(PoolRef("pool"), CoinRef("coin"), commitment, make([]byte, 100))
		assert.Error(t, err)
	})
}

func TestAssembleUnshield(t *testing.T) {
	t.Run("empty change note is accepted", func(t *testing.T) {
		_, err := AssembleUnshield(PoolRef("pool"), make([]byte, 128), make([]byte, 128), []byte("recipient"), nil)
		require.NoError(t, err)
	})

	t.Run("full change note is accepted", func(t *testing.T) {
		_, err := AssembleUnshield(PoolRef("pool"), make([]byte, 128), make([]byte, 128), []byte("recipient"), make([]byte, 188))
		require.NoError(t, err)
	})

	t.Run("mid-sized change note rejected", func(t *testing.T) {
		_, err := AssembleUnshield(PoolRef("pool"), make([]byte, 128), make([]byte, 128), []byte("recipient"), make([]byte, 50))
		assert.Error(t, err)
	})

	t.Run("wrong proof length rejected", func(t *testing.T) {
		_, err := AssembleUnshield(PoolRef("pool"), make([]byte, 127), make([]byte, 128), []byte("recipient"), nil)
		assert.Error(t, err)
	})
}

func TestAssembleTransfer(t *testing.T) {
	t.Run("two valid notes assemble", func(t *testing.T) {
		notes := [2][]byte{make([]byte, 188), make([]byte, 188)}
		call, err := AssembleTransfer(PoolRef("pool"), make([]byte, 128), make([]byte, 192), notes)
		require.NoError(t, err)
		assert.Len(t, call.EncryptedNotes, 2)
	})

	t.Run("wrong public-inputs length rejected", func(t *testing.T) {
		notes := [2][]byte{make([]byte, 188), make([]byte, 188)}
		_, err := AssembleTransfer(PoolRef("pool"), make([]byte, 128), make([]byte, 100), notes)
		assert.Error(t, err)
	})
}

func TestAssembleSwap(t *testing.T) {
	t.Run("valid swap with zero-length change assembles", func(t *testing.T) {
		_, err := AssembleSwap(
			PoolRef("in"), PoolRef("out"), PoolRef("dex"),
			make([]byte, 128), make([]byte, 256),
			1000, 10, make([]byte, 188), nil,
		)
		require.NoError(t, err)
	})

	t.Run("wrong output-note length rejected", func(t *testing.T) {
		_, err := AssembleSwap(
			PoolRef("in"), PoolRef("out"), PoolRef("dex"),
			make([]byte, 128), make([]byte, 256),
			1000, 10, make([]byte, 10), nil,
		)
		assert.Error(t, err)
	})
}

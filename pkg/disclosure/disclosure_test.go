package disclosure

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccoin/shield/pkg/keys"
)

func TestCreateRangeDisclosure(t *testing.T) {
	t.Run("value within range produces a verifiable disclosure", func(t *testing.T) {
		n, err := keys.CreateNote(big.NewInt(1), big.NewInt(9), 500, nil)
		require.NoError(t, err)

		d, err := CreateRangeDisclosure(n, 100, 1000)
		require.NoError(t, err)
		assert.NoError(t, d.Verify())
	})

	t.Run("value outside the claimed range is rejected up front", func(t *testing.T) {
		n, err := keys.CreateNote(big.NewInt(1), big.NewInt(9), 50, nil)
		require.NoError(t, err)

		_, err = CreateRangeDisclosure(n, 100, 1000)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestRangeDisclosureVerify(t *testing.T) {
	t.Run("tampered value fails the commitment check", func(t *testing.T) {
		n, err := keys.CreateNote(big.NewInt(1), big.NewInt(9), 500, nil)
		require.NoError(t, err)

		d, err := CreateRangeDisclosure(n, 100, 1000)
		require.NoError(t, err)

		d.Value = 999
		assert.ErrorIs(t, d.Verify(), ErrInvalidDisclosure)
	})

	t.Run("tampered range bounds fail the range check without touching the opening", func(t *testing.T) {
		n, err := keys.CreateNote(big.NewInt(1), big.NewInt(9), 500, nil)
		require.NoError(t, err)

		d, err := CreateRangeDisclosure(n, 100, 1000)
		require.NoError(t, err)

		d.MaxValue = 400
		assert.ErrorIs(t, d.Verify(), ErrOutOfRange)
	})
}

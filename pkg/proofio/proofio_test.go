package proofio

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProof() ProofPoints {
	_, _, g1, g2 := bn254.Generators()
	return ProofPoints{A: &g1, B: &g2, C: &g1}
}

func TestProofRoundTrip(t *testing.T) {
	t.Run("serialize then deserialize preserves points", func(t *testing.T) {
		p := sampleProof()
		b, err := SerializeProof(p)
		require.NoError(t, err)
		assert.Len(t, b, ProofBytesSize)

		got, err := DeserializeProof(b)
		require.NoError(t, err)
		assert.True(t, got.A.Equal(p.A))
		assert.True(t, got.B.Equal(p.B))
		assert.True(t, got.C.Equal(p.C))
	})

	t.Run("wrong length is rejected", func(t *testing.T) {
		_, err := DeserializeProof(make([]byte, 100))
		assert.Error(t, err)
	})
}

func TestPublicInputsRoundTrip(t *testing.T) {
	t.Run("decimal strings round trip through bytes", func(t *testing.T) {
		signals := []string{"1", "123456789012345678901234", "0"}
		b, err := SerializePublicInputs(signals)
		require.NoError(t, err)
		assert.Len(t, b, 32*len(signals))

		got, err := DeserializePublicInputs(b, len(signals))
		require.NoError(t, err)
		for i, s := range signals {
			want, _ := new(big.Int).SetString(s, 10)
			assert.Equal(t, 0, want.Cmp(got[i]))
		}
	})

	t.Run("non-decimal signal errors", func(t *testing.T) {
		_, err := SerializePublicInputs([]string{"not-a-number"})
		assert.Error(t, err)
	})
}

func TestVerifyingKeyRoundTrip(t *testing.T) {
	t.Run("serialize then deserialize preserves every point", func(t *testing.T) {
		_, _, g1, g2 := bn254.Generators()
		vk := VerifyingKeyPoints{
			Alpha: &g1, Beta: &g2, Gamma: &g2, Delta: &g2,
			IC: []*bn254.G1Affine{&g1, &g1, &g1},
		}
		b, err := SerializeVerifyingKey(vk)
		require.NoError(t, err)

		got, err := DeserializeVerifyingKey(b)
		require.NoError(t, err)
		assert.True(t, got.Alpha.Equal(vk.Alpha))
		assert.True(t, got.Beta.Equal(vk.Beta))
		assert.True(t, got.Gamma.Equal(vk.Gamma))
		assert.True(t, got.Delta.Equal(vk.Delta))
		require.Len(t, got.IC, len(vk.IC))
		for i := range vk.IC {
			assert.True(t, got.IC[i].Equal(vk.IC[i]))
		}
	})
}

package merkletree

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRoot(t *testing.T) {
	t.Run("matches a freshly constructed tree's root", func(t *testing.T) {
		tr := New()
		assert.Equal(t, 0, EmptyRoot().Cmp(tr.Root()))
	})
}

func TestInsertAdvancesRootAndIndex(t *testing.T) {
	t.Run("sequential inserts get sequential indices", func(t *testing.T) {
		tr := New()
		i0, err := tr.Insert(big.NewInt(111))
		require.NoError(t, err)
		i1, err := tr.Insert(big.NewInt(222))
		require.NoError(t, err)
		assert.Equal(t, uint64(0), i0)
		assert.Equal(t, uint64(1), i1)
		assert.Equal(t, uint64(2), tr.NextIndex())
	})

	t.Run("root changes after every insertion", func(t *testing.T) {
		tr := New()
		r0 := tr.Root()
		_, err := tr.Insert(big.NewInt(5))
		require.NoError(t, err)
		r1 := tr.Root()
		assert.NotEqual(t, 0, r0.Cmp(r1))
	})
}

func TestUniversalInvariant3_IncrementalMatchesFullRebuild(t *testing.T) {
	t.Run("incremental insertion agrees with from-scratch rebuild", func(t *testing.T) {
		tr := New()
		leaves := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(5)}
		for _, l := range leaves {
			_, err := tr.Insert(l)
			require.NoError(t, err)
		}
		rebuilt := RebuildFullTree(leaves)
		assert.Equal(t, 0, tr.Root().Cmp(rebuilt))
	})
}

func TestUniversalInvariant4_PathReconstructsRoot(t *testing.T) {
	t.Run("path at each index reconstructs the root as of its own insertion", func(t *testing.T) {
		tr := New()
		leaves := []*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30)}
		var rootsAfter []*big.Int
		for _, l := range leaves {
			_, err := tr.Insert(l)
			require.NoError(t, err)
			rootsAfter = append(rootsAfter, tr.Root())
		}

		for i, l := range leaves {
			path, err := tr.PathAt(uint64(i))
			require.NoError(t, err)
			got := RootFromPath(l, path)
			assert.Equal(t, 0, got.Cmp(rootsAfter[i]), "leaf %d", i)
		}
	})
}

func TestPathAtUnknownIndex(t *testing.T) {
	t.Run("errors for an index never inserted", func(t *testing.T) {
		tr := New()
		_, err := tr.PathAt(0)
		assert.ErrorIs(t, err, ErrLeafNotFound)
	})
}

func TestInHistory(t *testing.T) {
	t.Run("current root is in history", func(t *testing.T) {
		tr := New()
		_, err := tr.Insert(big.NewInt(1))
		require.NoError(t, err)
		assert.True(t, tr.InHistory(tr.Root()))
	})

	t.Run("an arbitrary root is not in history", func(t *testing.T) {
		tr := New()
		assert.False(t, tr.InHistory(big.NewInt(123456789)))
	})
}

func TestReconstructDeterminism(t *testing.T) {
	t.Run("universal invariant 7: identical event prefixes give identical trees", func(t *testing.T) {
		leaves := []*big.Int{big.NewInt(7), big.NewInt(8), big.NewInt(9)}
		t1, err := Reconstruct(leaves)
		require.NoError(t, err)
		t2, err := Reconstruct(leaves)
		require.NoError(t, err)
		assert.Equal(t, 0, t1.Root().Cmp(t2.Root()))
	})
}

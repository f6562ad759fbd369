package witness

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccoin/shield/pkg/keys"
	"github.com/ccoin/shield/pkg/merkletree"
)

func mustKeypair(t *testing.T, sk int64) *keys.Keypair {
	t.Helper()
	kp, err := keys.NewKeypair(big.NewInt(sk))
	require.NoError(t, err)
	return kp
}

func insertAndSpendable(t *testing.T, tr *merkletree.Tree, kp *keys.Keypair, n *keys.Note) SpendableInput {
	t.Helper()
	idx, err := tr.Insert(n.Commitment)
	require.NoError(t, err)
	path, err := tr.PathAt(idx)
	require.NoError(t, err)
	return SpendableInput{Note: n, LeafPath: path, Keypair: kp}
}

func TestBuildUnshieldWitness(t *testing.T) {
	kp := mustKeypair(t, 1)
	token := big.NewInt(9)
	tr := merkletree.New()

	t.Run("scenario A: shield 1e9, unshield 4e8 leaves 6e8 change", func(t *testing.T) {
		n, err := keys.CreateNote(kp.MasterPublicKey, token, 1_000_000_000, nil)
		require.NoError(t, err)
		in := insertAndSpendable(t, tr, kp, n)

		w, err := BuildUnshieldWitness(in, 400_000_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(600_000_000), w.ChangeValue)
		assert.Len(t, w.PublicInputs, 4)
		assert.Equal(t, 0, w.PublicInputs[0].Cmp(tr.Root()))
	})

	t.Run("full-value unshield produces zero change commitment", func(t *testing.T) {
		n, err := keys.CreateNote(kp.MasterPublicKey, token, 100, nil)
		require.NoError(t, err)
		in := insertAndSpendable(t, tr, kp, n)

		w, err := BuildUnshieldWitness(in, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), w.ChangeValue)
		assert.Equal(t, 0, w.PublicInputs[3].Cmp(big.NewInt(0)))
	})

	t.Run("over-spending is rejected", func(t *testing.T) {
		n, err := keys.CreateNote(kp.MasterPublicKey, token, 10, nil)
		require.NoError(t, err)
		in := insertAndSpendable(t, tr, kp, n)

		_, err = BuildUnshieldWitness(in, 11)
		assert.ErrorIs(t, err, ErrBalanceViolation)
	})

	t.Run("non-owner cannot build a witness", func(t *testing.T) {
		other := mustKeypair(t, 2)
		n, err := keys.CreateNote(kp.MasterPublicKey, token, 10, nil)
		require.NoError(t, err)
		idx, err := tr.Insert(n.Commitment)
		require.NoError(t, err)
		path, err := tr.PathAt(idx)
		require.NoError(t, err)
		in := SpendableInput{Note: n, LeafPath: path, Keypair: other}

		_, err = BuildUnshieldWitness(in, 5)
		assert.ErrorIs(t, err, ErrOwnershipCheckFailed)
	})
}

func TestBuildTransferWitness(t *testing.T) {
	sender := mustKeypair(t, 1)
	recipient := mustKeypair(t, 2)
	token := big.NewInt(5)

	t.Run("scenario B: single input transfer with padded dummy", func(t *testing.T) {
		tr := merkletree.New()
		n, err := keys.CreateNote(sender.MasterPublicKey, token, 100, nil)
		require.NoError(t, err)
		in := insertAndSpendable(t, tr, sender, n)

		w, err := BuildTransferWitness(in, nil, recipient.MasterPublicKey, 60)
		require.NoError(t, err)
		assert.Equal(t, uint64(60), w.TransferValue)
		assert.Equal(t, uint64(40), w.ChangeValue)
		assert.NotEqual(t, 0, w.Nullifiers[0].Cmp(w.Nullifiers[1]))
	})

	t.Run("scenario C: exact amount transfer yields zero change commitment", func(t *testing.T) {
		tr := merkletree.New()
		n, err := keys.CreateNote(sender.MasterPublicKey, token, 100, nil)
		require.NoError(t, err)
		in := insertAndSpendable(t, tr, sender, n)

		w, err := BuildTransferWitness(in, nil, recipient.MasterPublicKey, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), w.ChangeValue)
		assert.Equal(t, 0, w.PublicInputs[3].Cmp(big.NewInt(0))) // change_commitment
	})

	t.Run("insufficient funds rejected", func(t *testing.T) {
		tr := merkletree.New()
		n, err := keys.CreateNote(sender.MasterPublicKey, token, 10, nil)
		require.NoError(t, err)
		in := insertAndSpendable(t, tr, sender, n)

		_, err = BuildTransferWitness(in, nil, recipient.MasterPublicKey, 11)
		assert.ErrorIs(t, err, ErrBalanceViolation)
	})

	t.Run("mismatched token between two real inputs rejected", func(t *testing.T) {
		tr := merkletree.New()
		n1, err := keys.CreateNote(sender.MasterPublicKey, big.NewInt(1), 10, nil)
		require.NoError(t, err)
		n2, err := keys.CreateNote(sender.MasterPublicKey, big.NewInt(2), 10, nil)
		require.NoError(t, err)
		in1 := insertAndSpendable(t, tr, sender, n1)
		in2 := insertAndSpendable(t, tr, sender, n2)

		_, err = BuildTransferWitness(in1, &in2, recipient.MasterPublicKey, 5)
		assert.ErrorIs(t, err, ErrTokenMismatch)
	})
}

func TestBuildSwapWitness(t *testing.T) {
	sender := mustKeypair(t, 1)
	recipient := mustKeypair(t, 2)
	tokenIn := big.NewInt(1)
	tokenOut := big.NewInt(2)
	dexPool := big.NewInt(3)

	t.Run("two same-token inputs swap into output plus change", func(t *testing.T) {
		tr := merkletree.New()
		n1, err := keys.CreateNote(sender.MasterPublicKey, tokenIn, 70, nil)
		require.NoError(t, err)
		n2, err := keys.CreateNote(sender.MasterPublicKey, tokenIn, 50, nil)
		require.NoError(t, err)

		i1, err := tr.Insert(n1.Commitment)
		require.NoError(t, err)
		i2, err := tr.Insert(n2.Commitment)
		require.NoError(t, err)
		p1, err := tr.CurrentPath(i1)
		require.NoError(t, err)
		p2, err := tr.CurrentPath(i2)
		require.NoError(t, err)

		in1 := SpendableInput{Note: n1, LeafPath: p1, Keypair: sender}
		in2 := SpendableInput{Note: n2, LeafPath: p2, Keypair: sender}

		w, err := BuildSwapWitness(in1, in2, tokenOut, 100, 10, dexPool, 95, recipient.MasterPublicKey)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), w.ChangeValue)
		assert.Len(t, w.PublicInputs, 8)
	})

	t.Run("mismatched token between inputs rejected", func(t *testing.T) {
		tr := merkletree.New()
		n1, err := keys.CreateNote(sender.MasterPublicKey, tokenIn, 70, nil)
		require.NoError(t, err)
		n2, err := keys.CreateNote(sender.MasterPublicKey, tokenOut, 50, nil)
		require.NoError(t, err)
		in1 := insertAndSpendable(t, tr, sender, n1)
		in2 := insertAndSpendable(t, tr, sender, n2)

		_, err = BuildSwapWitness(in1, in2, tokenOut, 50, 1, dexPool, 40, recipient.MasterPublicKey)
		assert.ErrorIs(t, err, ErrTokenMismatch)
	})
}

func TestNewDummyInput(t *testing.T) {
	t.Run("dummy leaf index never equals the real index", func(t *testing.T) {
		kp := mustKeypair(t, 1)
		for _, real := range []uint64{0, 1, 7} {
			d, err := NewDummyInput(kp, big.NewInt(1), real)
			require.NoError(t, err)
			assert.NotEqual(t, real, d.LeafPath.Index)
			assert.True(t, d.Note.IsDummy())
		}
	})
}

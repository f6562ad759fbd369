// Package witness builds the private/public input shapes for the
// unshield, transfer, and swap circuits, enforcing every conservation
// and ownership invariant client-side before the expensive proving step
// runs. The public inputs are laid out in the exact order the on-chain
// verifier consumes them (§6.1); reordering them silently invalidates
// the proof.
package witness

import (
	"errors"
	"math/big"

	"github.com/ccoin/shield/pkg/field"
	"github.com/ccoin/shield/pkg/keys"
	"github.com/ccoin/shield/pkg/merkletree"
)

// ProofKind tags which of the three circuits a witness belongs to,
// selecting witness shape and public-input layout at the call site
// instead of relying on dynamic dispatch.
type ProofKind uint8

const (
	KindUnshield ProofKind = iota
	KindTransfer
	KindSwap
)

var (
	// ErrBalanceViolation indicates a conservation-law check failed
	// during witness construction; this is a programmer error, not a
	// recoverable runtime condition.
	ErrBalanceViolation = errors.New("witness: conservation law violated")
	// ErrMerkleRootMismatch indicates two inputs' Merkle paths do not
	// reconstruct the same root; the caller must rescan and retry.
	ErrMerkleRootMismatch = errors.New("witness: inputs reconstruct different Merkle roots")
	// ErrOwnershipCheckFailed indicates a note's stored nsk/commitment do
	// not match what its (mpk, random)/(nsk, token, value) recompute to.
	ErrOwnershipCheckFailed = errors.New("witness: note ownership check failed")
	// ErrTokenMismatch indicates inputs/outputs disagree on token type
	// where the invariant requires them to match.
	ErrTokenMismatch = errors.New("witness: token type mismatch")
)

// SpendableInput bundles everything the witness builder needs about one
// input note: the note itself, its position and inclusion path in the
// tree, and the spending keypair.
type SpendableInput struct {
	Note     *keys.Note
	LeafPath merkletree.Path
	Keypair  *keys.Keypair
}

func verifyInputOwnership(in SpendableInput) error {
	if !in.Note.VerifyOwnership(in.Keypair.MasterPublicKey) {
		return ErrOwnershipCheckFailed
	}
	return nil
}

// Unshield is the witness for spending one note and revealing part (or
// all) of its value to a public recipient, with the remainder returned
// as a change note.
type Unshield struct {
	PublicInputs []*big.Int // [merkle_root, nullifier, unshield_amount, change_commitment]

	Input          SpendableInput
	UnshieldAmount uint64
	ChangeValue    uint64
	ChangeRandom   *big.Int
	Nullifier      *big.Int
}

// BuildUnshieldWitness constructs and validates an unshield witness.
func BuildUnshieldWitness(in SpendableInput, unshieldAmount uint64) (*Unshield, error) {
	if err := verifyInputOwnership(in); err != nil {
		return nil, err
	}
	if unshieldAmount == 0 || unshieldAmount > in.Note.Value {
		return nil, ErrBalanceViolation
	}

	root := merkletree.RootFromPath(in.Note.Commitment, in.LeafPath)

	changeValue := in.Note.Value - unshieldAmount
	var changeCommitment *big.Int
	var changeRandom *big.Int
	if changeValue == 0 {
		// The ledger skips insertion for zero commitments.
		changeCommitment = big.NewInt(0)
	} else {
		random, err := field.RandomField()
		if err != nil {
			return nil, err
		}
		changeRandom = random
		changeNSK := field.Poseidon(in.Keypair.MasterPublicKey, changeRandom)
		changeCommitment = field.Poseidon(changeNSK, in.Note.Token, new(big.Int).SetUint64(changeValue))
	}

	nullifier := keys.ComputeNullifier(in.Keypair.NullifyingKey, in.LeafPath.Index)

	return &Unshield{
		PublicInputs: []*big.Int{
			root,
			nullifier,
			new(big.Int).SetUint64(unshieldAmount),
			changeCommitment,
		},
		Input:          in,
		UnshieldAmount: unshieldAmount,
		ChangeValue:    changeValue,
		ChangeRandom:   changeRandom,
		Nullifier:      nullifier,
	}, nil
}

// dummyLeafIndex picks a leaf index distinct from realIndex for a
// padding input, so the dummy's nullifier never collides with the real
// input's (nullifiers are a pure function of (nullifying_key,
// leaf_index), so two inputs at the same index would publish the same
// nullifier).
func dummyLeafIndex(realIndex uint64) uint64 {
	if realIndex != 0 {
		return 0
	}
	return 1
}

// NewDummyInput builds a zero-value padding input owned by kp, with an
// all-zero Merkle path and a leaf index guaranteed not to collide with
// realIndex.
func NewDummyInput(kp *keys.Keypair, token *big.Int, realIndex uint64) (SpendableInput, error) {
	dummy, err := keys.CreateNote(kp.MasterPublicKey, token, 0, nil)
	if err != nil {
		return SpendableInput{}, err
	}
	var path merkletree.Path
	path.Index = dummyLeafIndex(realIndex)
	for i := range path.Siblings {
		path.Siblings[i] = big.NewInt(0)
	}
	return SpendableInput{Note: dummy, LeafPath: path, Keypair: kp}, nil
}

// Transfer is the witness for a 1-2-input, 2-output shielded transfer:
// a recipient output and a change output, both in the same token.
type Transfer struct {
	PublicInputs []*big.Int // [nullifier_1, nullifier_2, transfer_commitment, change_commitment, token, merkle_root]

	Inputs         [2]SpendableInput
	TransferValue  uint64
	TransferOutput *keys.Note
	ChangeValue    uint64
	ChangeOutput   *keys.Note // nil if change is zero
	Nullifiers     [2]*big.Int
}

// BuildTransferWitness constructs and validates a transfer witness.
// If input2 is nil, a zero-value dummy input is synthesized
// automatically.
func BuildTransferWitness(
	input1 SpendableInput,
	input2 *SpendableInput,
	recipientMPK *big.Int,
	transferValue uint64,
) (*Transfer, error) {
	if err := verifyInputOwnership(input1); err != nil {
		return nil, err
	}

	in2 := input2
	if in2 == nil {
		dummy, err := NewDummyInput(input1.Keypair, input1.Note.Token, input1.LeafPath.Index)
		if err != nil {
			return nil, err
		}
		in2 = &dummy
	} else if err := verifyInputOwnership(*in2); err != nil {
		return nil, err
	}

	if !in2.Note.IsDummy() && in2.Note.Token.Cmp(input1.Note.Token) != 0 {
		return nil, ErrTokenMismatch
	}

	inputSum := input1.Note.Value + in2.Note.Value
	if inputSum < transferValue {
		return nil, ErrBalanceViolation
	}
	changeValue := inputSum - transferValue

	// Each non-dummy input's Merkle path must reconstruct the same root;
	// the circuit bypasses the check entirely for a zero-value input.
	var root *big.Int
	for _, in := range []SpendableInput{input1, *in2} {
		if in.Note.IsDummy() {
			continue
		}
		r := merkletree.RootFromPath(in.Note.Commitment, in.LeafPath)
		if root == nil {
			root = r
		} else if root.Cmp(r) != 0 {
			return nil, ErrMerkleRootMismatch
		}
	}
	if root == nil {
		// Both inputs dummy is nonsensical for a real transfer, but fall
		// back to the empty-tree root rather than leaving it nil.
		root = merkletree.EmptyRoot()
	}

	transferOut, err := keys.CreateNote(recipientMPK, input1.Note.Token, transferValue, nil)
	if err != nil {
		return nil, err
	}
	transferCommitment := transferOut.Commitment
	if transferValue == 0 {
		transferCommitment = big.NewInt(0)
	}

	var changeOut *keys.Note
	changeCommitment := big.NewInt(0)
	if changeValue > 0 {
		changeOut, err = keys.CreateNote(input1.Keypair.MasterPublicKey, input1.Note.Token, changeValue, nil)
		if err != nil {
			return nil, err
		}
		changeCommitment = changeOut.Commitment
	}

	n1 := keys.ComputeNullifier(input1.Keypair.NullifyingKey, input1.LeafPath.Index)
	n2 := keys.ComputeNullifier(in2.Keypair.NullifyingKey, in2.LeafPath.Index)

	return &Transfer{
		PublicInputs: []*big.Int{
			n1, n2, transferCommitment, changeCommitment, input1.Note.Token, root,
		},
		Inputs:         [2]SpendableInput{input1, *in2},
		TransferValue:  transferValue,
		TransferOutput: transferOut,
		ChangeValue:    changeValue,
		ChangeOutput:   changeOut,
		Nullifiers:     [2]*big.Int{n1, n2},
	}, nil
}

// Swap is the witness for a 2-input, 2-output atomic swap through an
// external DEX: token_in is consumed, token_out (plus change in
// token_in) is produced. The circuit binds only the swap intent via
// swap_data_hash; the DEX's actual fill is an external observation.
type Swap struct {
	PublicInputs []*big.Int // [token_in, token_out, merkle_root, nullifier_1, nullifier_2, swap_data_hash, output_commitment, change_commitment]

	Inputs         [2]SpendableInput
	AmountIn       uint64
	MinAmountOut   uint64
	DexPoolID      *big.Int
	ExpectedOut    uint64
	ChangeValue    uint64
	Output         *keys.Note
	Change         *keys.Note // nil if change is zero
	Nullifiers     [2]*big.Int
	SwapDataHash   *big.Int
}

// BuildSwapWitness constructs and validates a swap witness.
func BuildSwapWitness(
	input1, input2 SpendableInput,
	tokenOut *big.Int,
	amountIn uint64,
	minAmountOut uint64,
	dexPoolID *big.Int,
	expectedOut uint64,
	recipientMPK *big.Int,
) (*Swap, error) {
	if err := verifyInputOwnership(input1); err != nil {
		return nil, err
	}
	if err := verifyInputOwnership(input2); err != nil {
		return nil, err
	}
	if input1.Note.Token.Cmp(input2.Note.Token) != 0 {
		return nil, ErrTokenMismatch
	}
	tokenIn := input1.Note.Token

	inputSum := input1.Note.Value + input2.Note.Value
	if inputSum < amountIn {
		return nil, ErrBalanceViolation
	}
	changeValue := inputSum - amountIn

	root1 := merkletree.RootFromPath(input1.Note.Commitment, input1.LeafPath)
	root2 := merkletree.RootFromPath(input2.Note.Commitment, input2.LeafPath)
	if root1.Cmp(root2) != 0 {
		return nil, ErrMerkleRootMismatch
	}

	n1 := keys.ComputeNullifier(input1.Keypair.NullifyingKey, input1.LeafPath.Index)
	n2 := keys.ComputeNullifier(input2.Keypair.NullifyingKey, input2.LeafPath.Index)

	swapDataHash := field.Poseidon(
		tokenIn, tokenOut,
		new(big.Int).SetUint64(amountIn),
		new(big.Int).SetUint64(minAmountOut),
		dexPoolID,
	)

	output, err := keys.CreateNote(recipientMPK, tokenOut, expectedOut, nil)
	if err != nil {
		return nil, err
	}
	outputCommitment := output.Commitment
	if expectedOut == 0 {
		outputCommitment = big.NewInt(0)
	}

	var change *keys.Note
	changeCommitment := big.NewInt(0)
	if changeValue > 0 {
		change, err = keys.CreateNote(input1.Keypair.MasterPublicKey, tokenIn, changeValue, nil)
		if err != nil {
			return nil, err
		}
		changeCommitment = change.Commitment
	}

	return &Swap{
		PublicInputs: []*big.Int{
			tokenIn, tokenOut, root1, n1, n2, swapDataHash, outputCommitment, changeCommitment,
		},
		Inputs:       [2]SpendableInput{input1, input2},
		AmountIn:     amountIn,
		MinAmountOut: minAmountOut,
		DexPoolID:    dexPoolID,
		ExpectedOut:  expectedOut,
		ChangeValue:  changeValue,
		Output:       output,
		Change:       change,
		Nullifiers:   [2]*big.Int{n1, n2},
		SwapDataHash: swapDataHash,
	}, nil
}

// Package assembler turns a serialized proof, its public-inputs blob,
// and plaintext call parameters into the fixed-argument-order payload
// each of the four ledger operations expects. These are pure functions:
// no I/O, no randomness: a mismatched length here is a programmer
// error, never a runtime condition to recover from.
package assembler

import (
	"fmt"

	"github.com/ccoin/shield/pkg/codec"
)

// PoolRef and CoinRef are opaque, chain-specific object references the
// caller supplies; the assembler never interprets their contents.
type PoolRef []byte
type CoinRef []byte

// ShieldCall is the argument list for the shield operation.
type ShieldCall struct {
	Pool           PoolRef
	Coin           CoinRef
	CommitmentLE32 [32]byte
	EncryptedNote  [188]byte
}

// AssembleShield validates lengths and assembles a ShieldCall.
func AssembleShield(pool PoolRef, coin CoinRef, commitmentLE32 [32]byte, encryptedNote []byte) (ShieldCall, error) {
	if err := codec.ValidateLength(encryptedNote[:], 188); err != nil {
		return ShieldCall{}, fmt.Errorf("assembler: shield: %w", err)
	}
	var note [188]byte
	copy(note[:], encryptedNote)
	return ShieldCall{Pool: pool, Coin: coin, CommitmentLE32: commitmentLE32, EncryptedNote: note}, nil
}

// UnshieldCall is the argument list for the unshield operation.
// EncryptedChangeNote is 188 bytes, or empty when the change is zero
// (the circuit produced a zero change commitment and no note was
// encrypted for it).
type UnshieldCall struct {
	Pool                PoolRef
	ProofBytes          [128]byte
	PublicInputsBytes   [128]byte // 4 x 32 BE: merkle_root, nullifier, unshield_amount, change_commitment
	RecipientAddress    []byte
	EncryptedChangeNote []byte // len 0 or 188
}

// AssembleUnshield validates lengths and assembles an UnshieldCall.
func AssembleUnshield(
	pool PoolRef,
	proofBytes []byte,
	publicInputsBytes []byte,
	recipientAddress []byte,
	encryptedChangeNote []byte,
) (UnshieldCall, error) {
	if err := codec.ValidateLength(proofBytes, 128); err != nil {
		return UnshieldCall{}, fmt.Errorf("assembler: unshield: %w", err)
	}
	if err := codec.ValidateLength(publicInputsBytes, 128); err != nil {
		return UnshieldCall{}, fmt.Errorf("assembler: unshield: %w", err)
	}
	if len(encryptedChangeNote) != 0 && len(encryptedChangeNote) != 188 {
		return UnshieldCall{}, fmt.Errorf("assembler: unshield: encrypted_change_note must be 0 or 188 bytes, got %d", len(encryptedChangeNote))
	}
	var proof [128]byte
	copy(proof[:], proofBytes)
	var pub [128]byte
	copy(pub[:], publicInputsBytes)
	return UnshieldCall{
		Pool:                pool,
		ProofBytes:          proof,
		PublicInputsBytes:   pub,
		RecipientAddress:    recipientAddress,
		EncryptedChangeNote: encryptedChangeNote,
	}, nil
}

// TransferCall is the argument list for the transfer operation.
type TransferCall struct {
	Pool              PoolRef
	ProofBytes        [128]byte
	PublicInputsBytes [192]byte // 6 x 32 BE
	EncryptedNotes    [2][188]byte
}

// AssembleTransfer validates lengths and assembles a TransferCall. The
// two encrypted notes are always present, in [transfer, change] order;
// a zero-value output still carries a note (encrypting a dummy,
// value-0 note) so the recipient-facing vector stays fixed-length.
func AssembleTransfer(pool PoolRef, proofBytes []byte, publicInputsBytes []byte, encryptedNotes [2][]byte) (TransferCall, error) {
	if err := codec.ValidateLength(proofBytes, 128); err != nil {
		return TransferCall{}, fmt.Errorf("assembler: transfer: %w", err)
	}
	if err := codec.ValidateLength(publicInputsBytes, 192); err != nil {
		return TransferCall{}, fmt.Errorf("assembler: transfer: %w", err)
	}
	var proof [128]byte
	copy(proof[:], proofBytes)
	var pub [192]byte
	copy(pub[:], publicInputsBytes)
	var notes [2][188]byte
	for i, n := range encryptedNotes {
		if err := codec.ValidateLength(n, 188); err != nil {
			return TransferCall{}, fmt.Errorf("assembler: transfer: encrypted_note[%d]: %w", i, err)
		}
		copy(notes[i][:], n)
	}
	return TransferCall{Pool: pool, ProofBytes: proof, PublicInputsBytes: pub, EncryptedNotes: notes}, nil
}

// SwapCall is the argument list for the swap operation.
type SwapCall struct {
	PoolIn              PoolRef
	PoolOut             PoolRef
	DexPool             PoolRef
	ProofBytes          [128]byte
	PublicInputsBytes   [256]byte // 8 x 32 BE
	AmountIn            uint64
	MinAmountOut        uint64
	EncryptedOutputNote [188]byte
	EncryptedChangeNote []byte // len 0 or 188
}

// AssembleSwap validates lengths and assembles a SwapCall.
func AssembleSwap(
	poolIn, poolOut, dexPool PoolRef,
	proofBytes []byte,
	publicInputsBytes []byte,
	amountIn, minAmountOut uint64,
	encryptedOutputNote []byte,
	encryptedChangeNote []byte,
) (SwapCall, error) {
	if err := codec.ValidateLength(proofBytes, 128); err != nil {
		return SwapCall{}, fmt.Errorf("assembler: swap: %w", err)
	}
	if err := codec.ValidateLength(publicInputsBytes, 256); err != nil {
		return SwapCall{}, fmt.Errorf("assembler: swap: %w", err)
	}
	if err := codec.ValidateLength(encryptedOutputNote, 188); err != nil {
		return SwapCall{}, fmt.Errorf("assembler: swap: encrypted_output_note: %w", err)
	}
	if len(encryptedChangeNote) != 0 && len(encryptedChangeNote) != 188 {
		return SwapCall{}, fmt.Errorf("assembler: swap: encrypted_change_note must be 0 or 188 bytes, got %d", len(encryptedChangeNote))
	}
	var proof [128]byte
	copy(proof[:], proofBytes)
	var pub [256]byte
	copy(pub[:], publicInputsBytes)
	var out [188]byte
	copy(out[:], encryptedOutputNote)
	return SwapCall{
		PoolIn:              poolIn,
		PoolOut:             poolOut,
		DexPool:             dexPool,
		ProofBytes:          proof,
		PublicInputsBytes:   pub,
		AmountIn:            amountIn,
		MinAmountOut:        minAmountOut,
		EncryptedOutputNote: out,
		EncryptedChangeNote: encryptedChangeNote,
	}, nil
}

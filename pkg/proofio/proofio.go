// Package proofio serializes Groth16 proofs and verification keys to the
// Arkworks-compatible compressed BN254 byte layout the on-chain verifier
// consumes. It never calls into the prover itself (the prover is an
// external collaborator, §6.4) — it only re-encodes the curve points
// gnark already produced.
package proofio

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/ccoin/shield/pkg/codec"
)

// ProofPoints is the decomposed Groth16 proof: pi_a in G1, pi_b in G2,
// pi_c in G1. A caller holding a *gnark* groth16.Proof for the BN254
// curve supplies these by reading the proof's exported A/B/C point
// fields (named Ar/Bs/Krs in the gnark backend package) directly —
// gnark's own MarshalBinary/UnmarshalBinary round trip is intentionally
// not used here because it targets gnark's own wire format, not the
// Arkworks layout the chain expects.
type ProofPoints struct {
	A *bn254.G1Affine
	B *bn254.G2Affine
	C *bn254.G1Affine
}

// ProofBytesSize is the fixed size of a serialized proof: 32 + 64 + 32.
const ProofBytesSize = 32 + 64 + 32

// SerializeProof encodes a proof as the 128-byte Arkworks layout:
// pi_a (32) || pi_b (64) || pi_c (32).
func SerializeProof(p ProofPoints) ([]byte, error) {
	if p.A == nil || p.B == nil || p.C == nil {
		return nil, fmt.Errorf("proofio: incomplete proof")
	}
	out := make([]byte, 0, ProofBytesSize)
	a := codec.CompressG1(p.A)
	b := codec.CompressG2(p.B)
	c := codec.CompressG1(p.C)
	out = append(out, a[:]...)
	out = append(out, b[:]...)
	out = append(out, c[:]...)
	return out, nil
}

// DeserializeProof inverts SerializeProof.
func DeserializeProof(b []byte) (ProofPoints, error) {
	if err := codec.ValidateLength(b, ProofBytesSize); err != nil {
		return ProofPoints{}, err
	}
	var aArr [32]byte
	copy(aArr[:], b[0:32])
	var bArr [64]byte
	copy(bArr[:], b[32:96])
	var cArr [32]byte
	copy(cArr[:], b[96:128])

	a, err := codec.DecompressG1(aArr)
	if err != nil {
		return ProofPoints{}, fmt.Errorf("proofio: pi_a: %w", err)
	}
	bPoint, err := codec.DecompressG2(bArr)
	if err != nil {
		return ProofPoints{}, fmt.Errorf("proofio: pi_b: %w", err)
	}
	c, err := codec.DecompressG1(cArr)
	if err != nil {
		return ProofPoints{}, fmt.Errorf("proofio: pi_c: %w", err)
	}
	return ProofPoints{A: a, B: bPoint, C: c}, nil
}

// SerializePublicInputs encodes a vector of decimal-string public
// signals (as produced by the prover) as 32-byte big-endian words,
// concatenated in the exact order the on-chain verifier consumes them.
func SerializePublicInputs(signals []string) ([]byte, error) {
	out := make([]byte, 0, 32*len(signals))
	for i, s := range signals {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("proofio: public signal %d is not a decimal integer: %q", i, s)
		}
		be := codec.BE32(v)
		out = append(out, be[:]...)
	}
	return out, nil
}

// DeserializePublicInputs inverts SerializePublicInputs given the
// expected signal count.
func DeserializePublicInputs(b []byte, count int) ([]*big.Int, error) {
	if err := codec.ValidateLength(b, 32*count); err != nil {
		return nil, err
	}
	out := make([]*big.Int, count)
	for i := 0; i < count; i++ {
		v, err := codec.FromBE32(b[i*32 : i*32+32])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// VerifyingKeyPoints is the decomposed Groth16 verifying key.
type VerifyingKeyPoints struct {
	Alpha *bn254.G1Affine
	Beta  *bn254.G2Affine
	Gamma *bn254.G2Affine
	Delta *bn254.G2Affine
	IC    []*bn254.G1Affine // length = num_public_inputs + 1
}

// SerializeVerifyingKey encodes a verifying key for one-time on-chain
// deployment:
// alpha_G1(32) || beta_G2(64) || gamma_G2(64) || delta_G2(64) ||
// ic_len_u64_LE(8) || IC_G1 x ic_len (32 each).
func SerializeVerifyingKey(vk VerifyingKeyPoints) ([]byte, error) {
	if vk.Alpha == nil || vk.Beta == nil || vk.Gamma == nil || vk.Delta == nil {
		return nil, fmt.Errorf("proofio: incomplete verifying key")
	}
	out := make([]byte, 0, 32+64+64+64+8+32*len(vk.IC))

	alpha := codec.CompressG1(vk.Alpha)
	beta := codec.CompressG2(vk.Beta)
	gamma := codec.CompressG2(vk.Gamma)
	delta := codec.CompressG2(vk.Delta)
	out = append(out, alpha[:]...)
	out = append(out, beta[:]...)
	out = append(out, gamma[:]...)
	out = append(out, delta[:]...)

	var icLen [8]byte
	binary.LittleEndian.PutUint64(icLen[:], uint64(len(vk.IC)))
	out = append(out, icLen[:]...)

	for i, ic := range vk.IC {
		if ic == nil {
			return nil, fmt.Errorf("proofio: nil IC point at index %d", i)
		}
		b := codec.CompressG1(ic)
		out = append(out, b[:]...)
	}
	return out, nil
}

// DeserializeVerifyingKey inverts SerializeVerifyingKey.
func DeserializeVerifyingKey(b []byte) (VerifyingKeyPoints, error) {
	const head = 32 + 64 + 64 + 64 + 8
	if len(b) < head {
		return VerifyingKeyPoints{}, &codec.ErrInvalidLength{Want: head, Got: len(b)}
	}

	var alphaArr [32]byte
	copy(alphaArr[:], b[0:32])
	alpha, err := codec.DecompressG1(alphaArr)
	if err != nil {
		return VerifyingKeyPoints{}, fmt.Errorf("proofio: alpha_g1: %w", err)
	}

	var betaArr, gammaArr, deltaArr [64]byte
	copy(betaArr[:], b[32:96])
	copy(gammaArr[:], b[96:160])
	copy(deltaArr[:], b[160:224])

	beta, err := codec.DecompressG2(betaArr)
	if err != nil {
		return VerifyingKeyPoints{}, fmt.Errorf("proofio: beta_g2: %w", err)
	}
	gamma, err := codec.DecompressG2(gammaArr)
	if err != nil {
		return VerifyingKeyPoints{}, fmt.Errorf("proofio: gamma_g2: %w", err)
	}
	delta, err := codec.DecompressG2(deltaArr)
	if err != nil {
		return VerifyingKeyPoints{}, fmt.Errorf("proofio: delta_g2: %w", err)
	}

	icLen := binary.LittleEndian.Uint64(b[224:232])
	want := head + int(icLen)*32
	if len(b) != want {
		return VerifyingKeyPoints{}, &codec.ErrInvalidLength{Want: want, Got: len(b)}
	}

	ic := make([]*bn254.G1Affine, icLen)
	for i := range ic {
		var arr [32]byte
		off := head + i*32
		copy(arr[:], b[off:off+32])
		p, err := codec.DecompressG1(arr)
		if err != nil {
			return VerifyingKeyPoints{}, fmt.Errorf("proofio: IC[%d]: %w", i, err)
		}
		ic[i] = p
	}

	return VerifyingKeyPoints{Alpha: alpha, Beta: beta, Gamma: gamma, Delta: delta, IC: ic}, nil
}

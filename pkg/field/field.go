// Package field implements BN254 scalar-field arithmetic and the Poseidon
// hash used throughout the shielded pool: commitments, nullifiers, the
// Merkle tree's internal nodes, and key derivation all reduce to calls
// into this package.
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Modulus is the BN254 scalar field prime r.
var Modulus = mustModulus()

func mustModulus() *big.Int {
	m, ok := new(big.Int).SetString(
		"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	if !ok {
		panic("field: could not parse BN254 scalar modulus")
	}
	return m
}

// poseidonReady gates the one-shot initialization of Poseidon's round
// constants and MDS matrices. All concurrent callers await the same
// completion rather than racing independent initializations.
var poseidonReady sync.Once

func ensurePoseidonInit() {
	poseidonReady.Do(func() {
		// poseidon.Hash lazily builds its constant tables on first call;
		// touching it here with a two-input hash forces that
		// work to happen exactly once, under this Once, before any
		// concurrent caller can observe a partially built table.
		_, _ = poseidon.Hash([]*big.Int{big.NewInt(0), big.NewInt(0)})
	})
}

// InRange reports whether x is a valid field element: 0 <= x < r.
func InRange(x *big.Int) bool {
	if x == nil || x.Sign() < 0 {
		return false
	}
	return x.Cmp(Modulus) < 0
}

// MustInRange panics if x is not a valid field element. Per the core's
// error-handling design, a caller presenting a value >= r at a boundary
// is a programming error, not a recoverable condition — a hash must
// never silently fold out-of-range input modulo r.
func MustInRange(x *big.Int, what string) {
	if !InRange(x) {
		panic(fmt.Sprintf("field: %s is not a valid field element (>= r or negative)", what))
	}
}

// Poseidon hashes 1 to 16 field elements (the core uses arities 1, 2, 3,
// and 5) using the BN254-native Poseidon permutation. It panics if any input
// is out of range, per the component's failure semantics.
func Poseidon(inputs ...*big.Int) *big.Int {
	ensurePoseidonInit()
	for i, in := range inputs {
		MustInRange(in, fmt.Sprintf("poseidon input[%d]", i))
	}
	out, err := poseidon.Hash(inputs)
	if err != nil {
		// Only reachable for arities outside iden3's supported range
		// (1-16), which is itself a programming error in this codebase.
		panic(fmt.Sprintf("field: poseidon hash failed: %v", err))
	}
	return out
}

// RandomField returns a uniformly random element of [0, r) using
// rejection sampling over the BN254 scalar field, mirroring the
// generator pattern used for Pedersen blinders elsewhere in the
// ecosystem (gnark-crypto's fr.Element.SetRandom already performs the
// rejection sampling; we simply surface it as a big.Int).
func RandomField() (*big.Int, error) {
	var e bn254fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, fmt.Errorf("field: random element: %w", err)
	}
	return e.BigInt(new(big.Int)), nil
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("field: random bytes: %w", err)
	}
	return b, nil
}

// Reduce returns x mod r. Unlike Poseidon/MustInRange, this is an
// explicit, caller-requested reduction (e.g. when hashing external
// opaque byte strings into a field element, such as a token package
// address) rather than a silent one at a cryptographic boundary.
func Reduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, Modulus)
}

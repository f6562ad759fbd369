// Package keys implements key derivation, note construction, and
// nullifier computation — pure functions over pkg/field and pkg/codec.
package keys

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"golang.org/x/crypto/curve25519"

	"github.com/ccoin/shield/pkg/codec"
	"github.com/ccoin/shield/pkg/field"
)

// Keypair holds the spending key and everything derived from it.
//
// The viewing keypair is a pure function of the spending key: given the
// same spending key, NewKeypair always reproduces the same viewing
// private/public pair. A short-lived "derive the viewing key straight
// from the master public key" shortcut has been proposed elsewhere and
// is insecure; this package deliberately exposes no such path — viewing
// public keys must be shared explicitly.
type Keypair struct {
	SpendingKey     *big.Int
	NullifyingKey   *big.Int
	MasterPublicKey *big.Int
	ViewingPriv     [32]byte
	ViewingPub      [32]byte
}

// NewKeypair derives a full Keypair from a spending key.
func NewKeypair(spendingKey *big.Int) (*Keypair, error) {
	field.MustInRange(spendingKey, "spending_key")

	nk := field.Poseidon(spendingKey, big.NewInt(1))
	mpk := field.Poseidon(spendingKey, nk)

	skBE := codec.BE32(spendingKey)
	digest := sha256.Sum256(skBE[:])
	priv := digest
	clamp(&priv)

	var pub [32]byte
	pubBytes, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("keys: deriving viewing public key: %w", err)
	}
	copy(pub[:], pubBytes)

	return &Keypair{
		SpendingKey:     spendingKey,
		NullifyingKey:   nk,
		MasterPublicKey: mpk,
		ViewingPriv:     priv,
		ViewingPub:      pub,
	}, nil
}

// clamp applies the standard Curve25519 clamping to a scalar in place.
func clamp(b *[32]byte) {
	b[0] &= 0xF8
	b[31] &= 0x7F
	b[31] |= 0x40
}

// Note is a single shielded UTXO: {nsk, token, value, random,
// commitment}. The commitment is determined by the other four fields;
// once created the tuple is immutable.
type Note struct {
	NSK        *big.Int
	Token      *big.Int
	Value      uint64
	Random     *big.Int
	Commitment *big.Int
}

// IsDummy reports whether this note is a zero-value padding note. Dummy
// notes exist only inside a witness and never appear in the tree.
func (n *Note) IsDummy() bool { return n.Value == 0 }

// CreateNote builds a Note owned by mpk. If random is nil, a
// cryptographically random field element is generated.
func CreateNote(mpk, token *big.Int, value uint64, random *big.Int) (*Note, error) {
	field.MustInRange(mpk, "master_public_key")
	field.MustInRange(token, "token")

	var err error
	if random == nil {
		random, err = field.RandomField()
		if err != nil {
			return nil, fmt.Errorf("keys: creating note: %w", err)
		}
	} else {
		field.MustInRange(random, "random")
	}

	nsk := field.Poseidon(mpk, random)
	commitment := field.Poseidon(nsk, token, new(big.Int).SetUint64(value))

	return &Note{
		NSK:        nsk,
		Token:      token,
		Value:      value,
		Random:     random,
		Commitment: commitment,
	}, nil
}

// VerifyOwnership recomputes nsk from mpk and random and checks it
// matches the note's stored nsk, and recomputes the commitment from
// (nsk, token, value) and checks it matches the note's stored
// commitment. Both must hold for the note to be considered
// well-formed and owned by mpk.
func (n *Note) VerifyOwnership(mpk *big.Int) bool {
	wantNSK := field.Poseidon(mpk, n.Random)
	if wantNSK.Cmp(n.NSK) != 0 {
		return false
	}
	wantCommitment := field.Poseidon(n.NSK, n.Token, new(big.Int).SetUint64(n.Value))
	return wantCommitment.Cmp(n.Commitment) == 0
}

// ComputeNullifier derives the nullifier for a note at the given leaf
// index under the owning keypair's nullifying key:
// nullifier = Poseidon(nullifying_key, leaf_index).
func ComputeNullifier(nullifyingKey *big.Int, leafIndex uint64) *big.Int {
	field.MustInRange(nullifyingKey, "nullifying_key")
	return field.Poseidon(nullifyingKey, new(big.Int).SetUint64(leafIndex))
}

// DeriveTokenID derives a 254-bit token-type identifier from an
// arbitrary package-address byte string: token = Poseidon(address mod r).
func DeriveTokenID(packageAddress []byte) *big.Int {
	asField := field.Reduce(new(big.Int).SetBytes(packageAddress))
	return field.Poseidon(asField)
}

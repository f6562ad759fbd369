// Package disclosure implements optional selective disclosure of a
// note's value range to a third party (an auditor or compliance
// authority) without revealing the note's other fields. It is not part
// of the four core ledger operations; a wallet calls it only when a
// counterparty demands proof of funds.
package disclosure

import (
	"errors"
	"math/big"

	"github.com/ccoin/shield/pkg/field"
	"github.com/ccoin/shield/pkg/keys"
)

// ErrOutOfRange is returned when the note's value does not actually
// fall within the claimed [min, max] range.
var ErrOutOfRange = errors.New("disclosure: note value outside claimed range")

// ErrInvalidDisclosure is returned when a RangeDisclosure's embedded
// opening does not recompute the note's commitment.
var ErrInvalidDisclosure = errors.New("disclosure: opening does not match commitment")

// RangeDisclosure reveals a note's nsk, token, and value to a verifier
// who already knows the commitment, letting them recompute it and
// check the claimed range — an opening proof, not a zero-knowledge
// range proof: the verifier learns the exact value.
type RangeDisclosure struct {
	Commitment *big.Int
	MinValue   uint64
	MaxValue   uint64
	NSK        *big.Int
	Token      *big.Int
	Value      uint64
}

// CreateRangeDisclosure builds a disclosure for n, asserting its value
// lies in [min, max]. It fails fast if the assertion is false: a
// disclosure the discloser knows to be untrue must never be produced.
func CreateRangeDisclosure(n *keys.Note, min, max uint64) (*RangeDisclosure, error) {
	if n.Value < min || n.Value > max {
		return nil, ErrOutOfRange
	}
	return &RangeDisclosure{
		Commitment: n.Commitment,
		MinValue:   min,
		MaxValue:   max,
		NSK:        n.NSK,
		Token:      n.Token,
		Value:      n.Value,
	}, nil
}

// Verify recomputes the commitment from the disclosed opening and
// checks it matches, and that the disclosed value actually falls
// within the claimed range.
func (d *RangeDisclosure) Verify() error {
	got := field.Poseidon(d.NSK, d.Token, new(big.Int).SetUint64(d.Value))
	if got.Cmp(d.Commitment) != 0 {
		return ErrInvalidDisclosure
	}
	if d.Value < d.MinValue || d.Value > d.MaxValue {
		return ErrOutOfRange
	}
	return nil
}

// Package codec implements the three wire encodings that field elements
// and curve points cross at the boundary between the client core and the
// chain: little-endian 32-byte, big-endian 32-byte, and hex, plus the
// Arkworks-compatible compressed G1/G2 point layout consumed by the
// on-chain Groth16 verifier. Mixing LE and BE at a single boundary is the
// single most common way to produce an unverifiable proof, so every
// conversion here is named after the encoding it produces, never just
// "Bytes".
package codec

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// ErrInvalidLength is returned when a fixed-size buffer (32/64/128/188/
// 192/256 bytes, per the on-chain call payload shapes) has the wrong
// length.
type ErrInvalidLength struct {
	Want, Got int
}

func (e *ErrInvalidLength) Error() string {
	return fmt.Sprintf("codec: invalid length: want %d bytes, got %d", e.Want, e.Got)
}

// LE32 encodes a field element as 32 little-endian bytes.
func LE32(x *big.Int) [32]byte {
	var out [32]byte
	be := x.FillBytes(make([]byte, 32)) // big-endian, left-padded
	for i := 0; i < 32; i++ {
		out[i] = be[31-i]
	}
	return out
}

// FromLE32 decodes 32 little-endian bytes back into a field element.
func FromLE32(b []byte) (*big.Int, error) {
	if len(b) != 32 {
		return nil, &ErrInvalidLength{Want: 32, Got: len(b)}
	}
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = b[31-i]
	}
	return new(big.Int).SetBytes(be), nil
}

// BE32 encodes a field element as 32 big-endian bytes — the layout the
// on-chain Groth16 verifier expects for public inputs.
func BE32(x *big.Int) [32]byte {
	var out [32]byte
	x.FillBytes(out[:])
	return out
}

// FromBE32 decodes 32 big-endian bytes back into a field element.
func FromBE32(b []byte) (*big.Int, error) {
	if len(b) != 32 {
		return nil, &ErrInvalidLength{Want: 32, Got: len(b)}
	}
	return new(big.Int).SetBytes(b), nil
}

// ToHex renders bytes as a "0x"-prefixed hex string, for human-visible
// keys.
func ToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// FromHex parses a "0x"-prefixed (or bare) hex string into bytes.
func FromHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid hex: %w", err)
	}
	return b, nil
}

var halfP = new(big.Int).Rsh(fpModulus(), 1) // (p-1)/2, integer division

func fpModulus() *big.Int {
	var m fp.Element
	return m.Modulus()
}

// CompressG1 encodes a BN254 G1 point in the 32-byte Arkworks-compatible
// compressed form: x in LE32, with the top bit of the final byte set
// when y > (p-1)/2.
func CompressG1(p *bn254.G1Affine) [32]byte {
	x := new(big.Int)
	p.X.BigInt(x)
	y := new(big.Int)
	p.Y.BigInt(y)

	out := LE32(x)
	if y.Cmp(halfP) > 0 {
		out[31] |= 0x80
	}
	return out
}

// DecompressG1 inverts CompressG1: recovers a BN254 G1 point from its
// 32-byte compressed form, choosing the square root for y whose side of
// (p-1)/2 matches the sign flag, so compressing the result again
// reproduces the same 32 bytes.
func DecompressG1(b [32]byte) (*bn254.G1Affine, error) {
	signSet := b[31]&0x80 != 0
	clean := b
	clean[31] &^= 0x80

	x, err := FromLE32(clean[:])
	if err != nil {
		return nil, err
	}

	var xEl fp.Element
	xEl.SetBigInt(x)

	var p bn254.G1Affine
	p.X = xEl
	// y^2 = x^3 + b (BN254's curve equation, b = 3)
	var rhs, ySq fp.Element
	ySq.Square(&xEl).Mul(&ySq, &xEl)
	rhs.SetUint64(3)
	ySq.Add(&ySq, &rhs)
	var y fp.Element
	if y.Sqrt(&ySq) == nil {
		return nil, fmt.Errorf("codec: %s is not on the BN254 curve", ToHex(clean[:]))
	}
	yBig := new(big.Int)
	y.BigInt(yBig)
	wantUpper := signSet
	gotUpper := yBig.Cmp(halfP) > 0
	if wantUpper != gotUpper {
		y.Neg(&y)
	}
	p.Y = y
	return &p, nil
}

// CompressG2 encodes a BN254 G2 point in the 64-byte Arkworks-compatible
// compressed form: x.c0 then x.c1, each LE32, with a sign flag on the
// final byte selected by comparing (y.c1, y.c0) lexicographically
// against (p-y.c1, p-y.c0).
func CompressG2(p *bn254.G2Affine) [64]byte {
	var out [64]byte

	xc0 := new(big.Int)
	p.X.A0.BigInt(xc0)
	xc1 := new(big.Int)
	p.X.A1.BigInt(xc1)

	copy(out[0:32], le32Slice(xc0))
	copy(out[32:64], le32Slice(xc1))

	yc0 := new(big.Int)
	p.Y.A0.BigInt(yc0)
	yc1 := new(big.Int)
	p.Y.A1.BigInt(yc1)

	pMod := fpModulus()
	negYc0 := new(big.Int).Mod(new(big.Int).Sub(pMod, yc0), pMod)
	negYc1 := new(big.Int).Mod(new(big.Int).Sub(pMod, yc1), pMod)

	if lexGreater(yc1, yc0, negYc1, negYc0) {
		out[63] |= 0x80
	}
	return out
}

// DecompressG2 inverts CompressG2.
func DecompressG2(b [64]byte) (*bn254.G2Affine, error) {
	signSet := b[63]&0x80 != 0
	clean := b
	clean[63] &^= 0x80

	xc0, err := FromLE32(clean[0:32])
	if err != nil {
		return nil, err
	}
	xc1, err := FromLE32(clean[32:64])
	if err != nil {
		return nil, err
	}

	var p bn254.G2Affine
	p.X.A0.SetBigInt(xc0)
	p.X.A1.SetBigInt(xc1)

	// y^2 = x^3 + b' for the BN254 twist, with b' = 3/(9+u) written out
	// below as its two Fp coefficients; the square root itself comes from
	// gnark-crypto's E2.Sqrt.
	ySq := new(bn254.E2)
	ySq.Square(&p.X).Mul(ySq, &p.X)
	var twistB bn254.E2
	twistB.A0.SetString("19485874751759354771024239261021720505790618469301721065564631296452457478373")
	twistB.A1.SetString("266929791119991161246907387137283842545076965332900288569378510910307636690")
	ySq.Add(ySq, &twistB)

	var y bn254.E2
	if y.Sqrt(ySq) == nil {
		return nil, fmt.Errorf("codec: %s is not on the BN254 twist", ToHex(clean[:]))
	}
	yc0 := new(big.Int)
	y.A0.BigInt(yc0)
	yc1 := new(big.Int)
	y.A1.BigInt(yc1)
	pMod := fpModulus()
	negYc0 := new(big.Int).Mod(new(big.Int).Sub(pMod, yc0), pMod)
	negYc1 := new(big.Int).Mod(new(big.Int).Sub(pMod, yc1), pMod)

	gotUpper := lexGreater(yc1, yc0, negYc1, negYc0)
	if gotUpper != signSet {
		y.Neg(&y)
	}
	p.Y = y
	return &p, nil
}

func le32Slice(x *big.Int) []byte {
	arr := LE32(x)
	return arr[:]
}

// lexGreater reports whether (aHi, aLo) > (bHi, bLo) lexicographically.
func lexGreater(aHi, aLo, bHi, bLo *big.Int) bool {
	switch aHi.Cmp(bHi) {
	case 1:
		return true
	case -1:
		return false
	default:
		return aLo.Cmp(bLo) > 0
	}
}

// ValidateLength checks a buffer against one of the call-payload fixed
// sizes used throughout the core (32, 64, 128, 188, 192, 256).
func ValidateLength(b []byte, want int) error {
	if len(b) != want {
		return &ErrInvalidLength{Want: want, Got: len(b)}
	}
	return nil
}

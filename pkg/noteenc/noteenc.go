// Package noteenc implements note encryption: an ephemeral X25519 key
// exchange, HKDF-SHA256 key derivation, and ChaCha20-Poly1305 sealing,
// laid out on the wire in a fixed 188-byte envelope so the on-chain
// event log can carry it opaquely.
package noteenc

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/ccoin/shield/pkg/codec"
	"github.com/ccoin/shield/pkg/field"
	"github.com/ccoin/shield/pkg/keys"
)

const (
	// EnvelopeSize is the total wire size: ephemeral_pk(32) + nonce(12) +
	// ciphertext+tag(128+16).
	EnvelopeSize = 32 + 12 + 128 + 16

	plaintextSize = 128
	hkdfInfo      = "octopus-note-encryption-v1"
)

// Envelope is the 188-byte encrypted note.
type Envelope [EnvelopeSize]byte

// Encrypt seals n under the recipient's X25519 viewing public key,
// returning the fixed 188-byte envelope.
func Encrypt(n *keys.Note, recipientViewPub [32]byte) (Envelope, error) {
	var env Envelope

	ephPriv, ephPub, err := generateEphemeralKeypair()
	if err != nil {
		return env, err
	}

	shared, err := curve25519.X25519(ephPriv[:], recipientViewPub[:])
	if err != nil {
		return env, fmt.Errorf("noteenc: ecdh: %w", err)
	}

	key, err := deriveKey(shared)
	if err != nil {
		return env, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return env, fmt.Errorf("noteenc: aead init: %w", err)
	}

	var nonce [12]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return env, fmt.Errorf("noteenc: nonce: %w", err)
	}

	plaintext := encodePlaintext(n)
	ciphertext := aead.Seal(nil, nonce[:], plaintext[:], nil)

	copy(env[0:32], ephPub[:])
	copy(env[32:44], nonce[:])
	copy(env[44:], ciphertext)
	return env, nil
}

// Decrypt attempts to open env under recipient's keypair and recover the
// note it encrypts. A failed AEAD open, an undecodable plaintext, or a
// failed ownership check all yield (nil, false) — "not my note" — never
// an error. A wrong envelope length is an error, and so is a key
// exchange that X25519 rejects (an ephemeral public key that yields an
// all-zero shared secret).
func Decrypt(env []byte, recipient *keys.Keypair) (*keys.Note, bool, error) {
	if err := codec.ValidateLength(env, EnvelopeSize); err != nil {
		return nil, false, err
	}

	var ephPub [32]byte
	copy(ephPub[:], env[0:32])
	nonce := env[32:44]
	ciphertext := env[44:]

	shared, err := curve25519.X25519(recipient.ViewingPriv[:], ephPub[:])
	if err != nil {
		return nil, false, fmt.Errorf("noteenc: ecdh: %w", err)
	}

	key, err := deriveKey(shared)
	if err != nil {
		return nil, false, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, false, fmt.Errorf("noteenc: aead init: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, false, nil // AEAD failure: not my note
	}

	n, err := decodePlaintext(plaintext)
	if err != nil {
		return nil, false, nil // malformed plaintext: not my note
	}

	if !n.VerifyOwnership(recipient.MasterPublicKey) {
		return nil, false, nil // ownership check failed: not my note
	}
	return n, true, nil
}

func generateEphemeralKeypair() (priv, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, fmt.Errorf("noteenc: ephemeral key: %w", err)
	}
	priv[0] &= 0xF8
	priv[31] &= 0x7F
	priv[31] |= 0x40

	pubBytes, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, fmt.Errorf("noteenc: ephemeral public key: %w", err)
	}
	copy(pub[:], pubBytes)
	return priv, pub, nil
}

func deriveKey(shared []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, shared, nil, []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("noteenc: hkdf: %w", err)
	}
	return key, nil
}

func encodePlaintext(n *keys.Note) [plaintextSize]byte {
	var out [plaintextSize]byte
	nskBytes := codec.BE32(n.NSK)
	tokenBytes := codec.BE32(n.Token)
	valueBytes := codec.BE32(new(big.Int).SetUint64(n.Value))
	randomBytes := codec.BE32(n.Random)
	copy(out[0:32], nskBytes[:])
	copy(out[32:64], tokenBytes[:])
	copy(out[64:96], valueBytes[:])
	copy(out[96:128], randomBytes[:])
	return out
}

func decodePlaintext(p []byte) (*keys.Note, error) {
	if len(p) != plaintextSize {
		return nil, fmt.Errorf("noteenc: plaintext wrong length: %d", len(p))
	}
	nsk, err := codec.FromBE32(p[0:32])
	if err != nil {
		return nil, err
	}
	token, err := codec.FromBE32(p[32:64])
	if err != nil {
		return nil, err
	}
	valueField, err := codec.FromBE32(p[64:96])
	if err != nil {
		return nil, err
	}
	random, err := codec.FromBE32(p[96:128])
	if err != nil {
		return nil, err
	}
	if !valueField.IsUint64() {
		return nil, fmt.Errorf("noteenc: value field exceeds uint64")
	}
	if !field.InRange(nsk) || !field.InRange(token) || !field.InRange(random) {
		return nil, fmt.Errorf("noteenc: decoded field element out of range")
	}

	value := valueField.Uint64()
	commitment := field.Poseidon(nsk, token, new(big.Int).SetUint64(value))

	return &keys.Note{
		NSK:        nsk,
		Token:      token,
		Value:      value,
		Random:     random,
		Commitment: commitment,
	}, nil
}

// Package xcrypto wraps the Ed25519 primitive used for masternode votes
// and transaction input signatures.
package xcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

// PrivateKey wraps an Ed25519 private key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// PublicKey wraps an Ed25519 public key.
type PublicKey struct {
	key ed25519.PublicKey
}

var ErrInvalidSignature = errors.New("xcrypto: signature verification failed")

// GenerateKey creates a fresh Ed25519 keypair using crypto/rand.
func GenerateKey() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PrivateKey{}, PublicKey{}, err
	}
	return PrivateKey{key: priv}, PublicKey{key: pub}, nil
}

// PrivateKeyFromSeed derives a PrivateKey from a 32-byte seed, e.g. read
// from an operator's masternode key file.
func PrivateKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return PrivateKey{}, errors.New("xcrypto: seed must be 32 bytes")
	}
	return PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// PublicKeyFromBytes parses a 32-byte raw Ed25519 public key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return PublicKey{}, errors.New("xcrypto: public key must be 32 bytes")
	}
	pk := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pk, b)
	return PublicKey{key: pk}, nil
}

// Sign signs hash (typically a SHA-256 sighash) and returns the 64-byte
// signature.
func (p PrivateKey) Sign(hash []byte) []byte { return ed25519.Sign(p.key, hash) }

// Seed returns the 32-byte seed p derives from, for key-file persistence.
func (p PrivateKey) Seed() []byte { return p.key.Seed() }

// Public returns the public key paired with p.
func (p PrivateKey) Public() PublicKey { return PublicKey{key: p.key.Public().(ed25519.PublicKey)} }

// Bytes returns the raw public key bytes.
func (p PublicKey) Bytes() []byte {
	b := make([]byte, len(p.key))
	copy(b, p.key)
	return b
}

// Verify reports whether sig is a valid Ed25519 signature over hash by p.
func (p PublicKey) Verify(hash, sig []byte) bool {
	return len(p.key) == ed25519.PublicKeySize && ed25519.Verify(p.key, hash, sig)
}

// Package cryptoutil wraps the secp256k1 keypair and ECDSA signature
// primitives used by wallets and transactions, with one consistent byte
// encoding of the public key for hashing, signing, and verification.
package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// KeyPair bundles a secp256k1 private key with its derived address.
type KeyPair struct {
	Private *btcec.PrivateKey
	Address string
}

// GenerateKeyPair creates a fresh secp256k1 keypair. Key generation failure
// is fatal and is returned as an error for the caller to treat that way.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: generate key: %w", err)
	}
	return &KeyPair{
		Private: priv,
		Address: EncodeAddress(priv.PubKey()),
	}, nil
}

// EncodeAddress derives an address from a public key using the compressed
// SEC1 encoding, hex-encoded. This single encoding is used everywhere an
// address is needed: hashing, signing payloads, and verification.
func EncodeAddress(pub *btcec.PublicKey) string {
	return hex.EncodeToString(pub.SerializeCompressed())
}

// DecodePublicKey parses an address produced by EncodeAddress back into a
// public key for signature verification.
func DecodePublicKey(address string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(address)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: decode address: %w", err)
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: parse public key: %w", err)
	}
	return pub, nil
}

// Sign signs a 32-byte hash with the given private key and returns the
// DER-encoded ECDSA signature.
func Sign(priv *btcec.PrivateKey, hash []byte) ([]byte, error) {
	if len(hash) != sha256.Size {
		return nil, errors.New("cryptoutil: hash must be 32 bytes")
	}
	sig := btcecdsa.Sign(priv, hash)
	return sig.Serialize(), nil
}

// Verify checks a signature produced by Sign against the given address and
// hash. Any crypto error (malformed address, malformed signature) is
// reported as a false result rather than returned as an error.
func Verify(address string, hash []byte, signature []byte) bool {
	pub, err := DecodePublicKey(address)
	if err != nil {
		return false
	}
	if len(hash) != sha256.Size || len(signature) == 0 {
		return false
	}
	sig, err := btcecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pub)
}

// RandomBytes returns n cryptographically secure random bytes, used by the
// PoS validator selection draw.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("cryptoutil: read random: %w", err)
	}
	return buf, nil
}

// randomUnitScale is large enough that dividing a uniformly sampled integer
// in [0, randomUnitScale) by itself gives a practically uniform float in
// [0, 1) for the purposes of the PoS validator draw.
const randomUnitScale = 1 << 53

// RandomUnitInterval samples r from a cryptographically secure source and
// returns it scaled into [0, 1), for the PoS validator selection walk.
func RandomUnitInterval() (float64, error) {
	raw, err := RandomBytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range raw {
		v = (v << 8) | uint64(b)
	}
	v %= randomUnitScale
	return float64(v) / float64(randomUnitScale), nil
}

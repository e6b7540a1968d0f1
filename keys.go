package spendbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ParseSecretKey parses a 32-byte big-endian secp256k1 scalar. Unlike
// btcec.PrivKeyFromBytes it refuses values that would be silently reduced
// modulo the group order, as well as the zero scalar.
func ParseSecretKey(b []byte) (*btcec.PrivateKey, error) {
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: secret key must be %d bytes, got %d",
			ErrInvalidKey, btcec.PrivKeyBytesLen, len(b))
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow {
		return nil, fmt.Errorf("%w: secret key is not below the curve "+
			"order", ErrInvalidKey)
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("%w: secret key is zero", ErrInvalidKey)
	}

	privKey, _ := btcec.PrivKeyFromBytes(b)
	return privKey, nil
}

// ParsePublicKey parses a compressed or uncompressed serialized public key.
func ParsePublicKey(b []byte) (*btcec.PublicKey, error) {
	pubKey, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pubKey, nil
}

// validateSecretKey rejects nil and zero secret keys.
func validateSecretKey(key *btcec.PrivateKey) error {
	if key == nil {
		return fmt.Errorf("%w: secret key is required", ErrInvalidKey)
	}
	if key.Key.IsZero() {
		return fmt.Errorf("%w: secret key is zero", ErrInvalidKey)
	}
	return nil
}

package validation

import (
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// PublicKeyLength is the byte length of an ed25519 public key.
	PublicKeyLength = 32
	// SignatureLength is the byte length of a transaction signature.
	SignatureLength = 64
)

// ValidateWalletAddress validates a base58-encoded wallet address.
func ValidateWalletAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 address: %w", err)
	}

	if len(decoded) != PublicKeyLength {
		return fmt.Errorf("invalid address length: expected %d bytes, got %d", PublicKeyLength, len(decoded))
	}

	return nil
}

// ValidateSignature validates a base58-encoded transaction signature.
func ValidateSignature(sig string) error {
	if sig == "" {
		return fmt.Errorf("signature cannot be empty")
	}

	decoded, err := base58.Decode(sig)
	if err != nil {
		return fmt.Errorf("invalid base58 signature: %w", err)
	}

	if len(decoded) != SignatureLength {
		return fmt.Errorf("invalid signature length: expected %d bytes, got %d", SignatureLength, len(decoded))
	}

	return nil
}

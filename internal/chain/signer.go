package chain

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// CustodialSigner holds the server-side keypair used for reward and memo
// payments. It is the only place key material is ever constructed.
type CustodialSigner struct {
	key solana.PrivateKey
}

// NewCustodialSigner parses the custodial secret. Both deployed formats are
// accepted: a base58 string or a JSON byte array.
func NewCustodialSigner(secret string) (*CustodialSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("custodial private key is not configured")
	}

	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		var raw []int
		if jsonErr := json.Unmarshal([]byte(secret), &raw); jsonErr != nil {
			return nil, fmt.Errorf("custodial private key is neither base58 nor a JSON byte array")
		}
		bytes := make([]byte, len(raw))
		for i, b := range raw {
			if b < 0 || b > 255 {
				return nil, fmt.Errorf("custodial private key byte out of range at index %d", i)
			}
			bytes[i] = byte(b)
		}
		key = solana.PrivateKey(bytes)
	}

	if len(key) != 64 {
		return nil, fmt.Errorf("custodial private key has invalid length %d, expected 64", len(key))
	}

	return &CustodialSigner{key: key}, nil
}

func (s *CustodialSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *CustodialSigner) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	return err
}

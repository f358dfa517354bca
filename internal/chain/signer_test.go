package chain

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyBytes() []byte {
	return bytes.Repeat([]byte{9}, 64)
}

func TestNewCustodialSigner_Base58(t *testing.T) {
	secret := base58.Encode(testKeyBytes())

	signer, err := NewCustodialSigner(secret)
	require.NoError(t, err)
	assert.NotEmpty(t, signer.PublicKey().String())
}

func TestNewCustodialSigner_JSONArray(t *testing.T) {
	raw := testKeyBytes()
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	secret, err := json.Marshal(ints)
	require.NoError(t, err)

	signer, err := NewCustodialSigner(string(secret))
	require.NoError(t, err)
	assert.NotEmpty(t, signer.PublicKey().String())
}

func TestNewCustodialSigner_BothFormatsAgree(t *testing.T) {
	raw := testKeyBytes()
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	jsonSecret, err := json.Marshal(ints)
	require.NoError(t, err)

	fromBase58, err := NewCustodialSigner(base58.Encode(raw))
	require.NoError(t, err)
	fromJSON, err := NewCustodialSigner(string(jsonSecret))
	require.NoError(t, err)

	assert.Equal(t, fromBase58.PublicKey(), fromJSON.PublicKey())
}

func TestNewCustodialSigner_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "empty", secret: ""},
		{name: "garbage", secret: "not a key"},
		{name: "wrong length base58", secret: base58.Encode(bytes.Repeat([]byte{9}, 32))},
		{name: "wrong length json", secret: "[1,2,3]"},
		{name: "json byte out of range", secret: "[300,1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCustodialSigner(tt.secret)
			assert.Error(t, err)
		})
	}
}

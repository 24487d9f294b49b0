package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// Wallet holds an ed25519 keypair and signs serialized transactions as the
// fee payer.
type Wallet struct {
	priv ed25519.PrivateKey
}

// NewWalletFromHex builds a wallet from a hex-encoded key. Both 64-byte
// ed25519 keypairs and 32-byte seeds are accepted.
func NewWalletFromHex(keyHex string) (*Wallet, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("solana: invalid key hex: %w", err)
	}

	switch len(raw) {
	case ed25519.PrivateKeySize:
		return &Wallet{priv: ed25519.PrivateKey(raw)}, nil
	case ed25519.SeedSize:
		return &Wallet{priv: ed25519.NewKeyFromSeed(raw)}, nil
	default:
		return nil, fmt.Errorf("solana: expected 32- or 64-byte key, got %d bytes", len(raw))
	}
}

// PublicKey returns the wallet address in base58.
func (w *Wallet) PublicKey() string {
	return base58.Encode(w.priv.Public().(ed25519.PublicKey))
}

// SignTransactionBase64 signs a serialized transaction produced by a venue
// swap API, where this wallet is the fee payer (signature slot 0), and
// returns the signed transaction re-encoded as base64.
//
// Both legacy and versioned transactions share the same outer layout: a
// compact-u16 count of 64-byte signature slots followed by the message
// bytes. The signature is computed over the message bytes only.
func (w *Wallet) SignTransactionBase64(unsignedTxBase64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(unsignedTxBase64)
	if err != nil {
		return "", fmt.Errorf("solana: decode transaction: %w", err)
	}

	numSigs, offset, err := decodeCompactU16(raw)
	if err != nil {
		return "", fmt.Errorf("solana: parse transaction: %w", err)
	}
	if numSigs < 1 {
		return "", fmt.Errorf("solana: transaction has no signature slots")
	}

	sigBytes := numSigs * ed25519.SignatureSize
	if len(raw) < offset+sigBytes {
		return "", fmt.Errorf("solana: transaction truncated: need %d signature bytes, have %d", sigBytes, len(raw)-offset)
	}

	message := raw[offset+sigBytes:]
	sig := ed25519.Sign(w.priv, message)
	copy(raw[offset:], sig)

	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeCompactU16 reads Solana's compact-u16 length prefix, returning the
// value and the number of bytes consumed.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("compact-u16 truncated")
		}
		b := int(data[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}

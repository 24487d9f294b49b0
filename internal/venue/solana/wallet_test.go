package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWallet(t *testing.T) *Wallet {
	t.Helper()
	seed := bytes.Repeat([]byte{0x42}, ed25519.SeedSize)
	w, err := NewWalletFromHex(hex.EncodeToString(seed))
	require.NoError(t, err)
	return w
}

func TestNewWalletFromHex(t *testing.T) {
	seed := bytes.Repeat([]byte{0x01}, ed25519.SeedSize)
	fromSeed, err := NewWalletFromHex(hex.EncodeToString(seed))
	require.NoError(t, err)

	// A 64-byte keypair expansion of the same seed yields the same wallet.
	keypair := ed25519.NewKeyFromSeed(seed)
	fromPair, err := NewWalletFromHex(hex.EncodeToString(keypair))
	require.NoError(t, err)
	assert.Equal(t, fromSeed.PublicKey(), fromPair.PublicKey())

	_, err = NewWalletFromHex("zzzz")
	assert.Error(t, err)
	_, err = NewWalletFromHex("abcd")
	assert.Error(t, err)
}

func TestPublicKeyBase58(t *testing.T) {
	w := testWallet(t)
	pk := w.PublicKey()
	assert.NotEmpty(t, pk)
	// Base58 alphabet excludes 0, O, I, and l.
	assert.NotContains(t, pk, "0")
	assert.NotContains(t, pk, "O")
}

// buildUnsignedTx assembles the outer transaction layout: a compact-u16
// signature count, empty signature slots, then the message bytes.
func buildUnsignedTx(numSigs int, message []byte) string {
	var buf bytes.Buffer
	buf.WriteByte(byte(numSigs))
	buf.Write(make([]byte, numSigs*ed25519.SignatureSize))
	buf.Write(message)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestSignTransactionBase64(t *testing.T) {
	w := testWallet(t)
	message := []byte("serialized message bytes")

	signed, err := w.SignTransactionBase64(buildUnsignedTx(1, message))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(signed)
	require.NoError(t, err)
	require.Equal(t, 1+ed25519.SignatureSize+len(message), len(raw))

	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := w.priv.Public().(ed25519.PublicKey)
	assert.True(t, ed25519.Verify(pub, message, sig))
	// The message bytes are untouched.
	assert.Equal(t, message, raw[1+ed25519.SignatureSize:])
}

func TestSignTransactionMultipleSlots(t *testing.T) {
	w := testWallet(t)
	message := []byte("multisig message")

	signed, err := w.SignTransactionBase64(buildUnsignedTx(2, message))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(signed)
	require.NoError(t, err)

	// Only slot 0 (fee payer) is filled; slot 1 stays zero.
	pub := w.priv.Public().(ed25519.PublicKey)
	assert.True(t, ed25519.Verify(pub, message, raw[1:1+ed25519.SignatureSize]))
	assert.Equal(t, make([]byte, ed25519.SignatureSize), raw[1+ed25519.SignatureSize:1+2*ed25519.SignatureSize])
}

func TestSignTransactionMalformed(t *testing.T) {
	w := testWallet(t)

	_, err := w.SignTransactionBase64("not base64!!!")
	assert.Error(t, err)

	// Signature count claims more slots than the payload carries.
	short := base64.StdEncoding.EncodeToString([]byte{2, 0, 0, 0})
	_, err = w.SignTransactionBase64(short)
	assert.Error(t, err)
}

func TestDecodeCompactU16(t *testing.T) {
	cases := []struct {
		in    []byte
		value int
		n     int
	}{
		{[]byte{0x00}, 0, 1},
		{[]byte{0x01}, 1, 1},
		{[]byte{0x7f}, 127, 1},
		{[]byte{0x80, 0x01}, 128, 2},
		{[]byte{0xff, 0x01}, 255, 2},
		{[]byte{0x80, 0x80, 0x01}, 16384, 3},
	}
	for _, tc := range cases {
		value, n, err := decodeCompactU16(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.value, value)
		assert.Equal(t, tc.n, n)
	}

	_, _, err := decodeCompactU16(nil)
	assert.Error(t, err)
	_, _, err = decodeCompactU16([]byte{0x80, 0x80})
	assert.Error(t, err)
}

func TestAmountConversions(t *testing.T) {
	assert.Equal(t, uint64(1_500_000_000), ToRaw(1.5, 9))
	assert.Equal(t, uint64(1_000_000), ToRaw(1, 6))
	assert.InDelta(t, 1.5, FromRaw(1_500_000_000, 9), 1e-12)

	raw, err := ParseRaw("12345")
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), raw)
	_, err = ParseRaw("not-a-number")
	assert.Error(t, err)

	m := TokenMap{"MintA": 6}
	assert.Equal(t, 6, m.DecimalsFor("MintA"))
	assert.Equal(t, DefaultDecimals, m.DecimalsFor("unknown"))
	assert.Equal(t, DefaultDecimals, TokenMap(nil).DecimalsFor("unknown"))

	s := strings.Repeat("9", 20)
	_, err = ParseRaw(s) // overflows uint64
	assert.Error(t, err)
}

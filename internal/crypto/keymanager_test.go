package crypto

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey32 = "4c0883a69102937d6231471b5dbb6204fe512961708279feb1be6ae5538da033"
	password  = "correct horse battery staple"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKey32, password)
	require.NoError(t, err)

	got, err := DecryptKey(blob, password)
	require.NoError(t, err)
	assert.Equal(t, testKey32, got)
}

func TestEncryptDecrypt64ByteKey(t *testing.T) {
	key64 := strings.Repeat("ab", 64)
	blob, err := EncryptKey("0x"+key64, password)
	require.NoError(t, err)

	got, err := DecryptKey(blob, password)
	require.NoError(t, err)
	assert.Equal(t, key64, got)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKey32, password)
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptRejectsBadKey(t *testing.T) {
	_, err := EncryptKey("not-hex", password)
	assert.Error(t, err)

	_, err = EncryptKey("abcd", password)
	assert.Error(t, err)

	_, err = EncryptKey(testKey32, "")
	assert.Error(t, err)
}

func TestEncryptUniqueSaltAndNonce(t *testing.T) {
	a, err := EncryptKey(testKey32, password)
	require.NoError(t, err)
	b, err := EncryptKey(testKey32, password)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLoadKeyRaw(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKey32})
	require.NoError(t, err)
	assert.Equal(t, testKey32, got)

	// Raw key must decode to a supported length.
	_, err = LoadKey(KeyConfig{RawPrivateKey: "abcd"})
	assert.Error(t, err)
}

func TestLoadKeyEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKey32, password)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: password})
	require.NoError(t, err)
	assert.Equal(t, testKey32, got)

	raw, err := hex.DecodeString(got)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestLoadKeyRawTakesPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{
		RawPrivateKey:    testKey32,
		EncryptedKeyPath: "/nonexistent/wallet.json",
	})
	require.NoError(t, err)
	assert.Equal(t, testKey32, got)
}

func TestLoadKeyNoSource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	assert.Error(t, err)
}

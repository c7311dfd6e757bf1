package cryptopipeline

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/alxayo/raop-go/internal/alac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789ABCDEF")
var testIV = []byte("FEDCBA9876543210")

func encryptFixture(t *testing.T, plain []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(testKey)
	require.NoError(t, err)
	aesLen := len(plain) &^ 0xf
	out := make([]byte, len(plain))
	if aesLen > 0 {
		mode := cipher.NewCBCEncrypter(block, append([]byte(nil), testIV...))
		mode.CryptBlocks(out[:aesLen], plain[:aesLen])
	}
	copy(out[aesLen:], plain[aesLen:])
	return out
}

func TestDecryptAndDecodeRoundTrip(t *testing.T) {
	plain := []byte{
		0x00, 0x01, 0xFF, 0xFF, 0x7F, 0xFF, 0x80, 0x00,
		0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00, 0x05,
		0x00, 0x06,
	}
	cipherText := encryptFixture(t, plain)

	dec := alac.NewRawPCMDecoder(alac.StreamInfo{BitDepth: 16})
	sess := New(testKey, testIV, dec)

	samples, err := sess.DecryptAndDecode(cipherText)
	require.NoError(t, err)
	assert.Len(t, samples, 9)
	assert.Equal(t, int16(0), samples[0])
}

func TestDecryptLeavesSubBlockTailUnencrypted(t *testing.T) {
	plain := make([]byte, 20)
	for i := range plain {
		plain[i] = byte(i)
	}
	cipherText := encryptFixture(t, plain)

	dec := alac.NewRawPCMDecoder(alac.StreamInfo{BitDepth: 16})
	sess := New(testKey, testIV, dec)

	result, err := sess.decrypt(cipherText)
	require.NoError(t, err)
	assert.Equal(t, plain[16:20], result[16:20])
}

func TestDecodeErrorIsCodecKind(t *testing.T) {
	dec := alac.NewRawPCMDecoder(alac.StreamInfo{BitDepth: 0})
	sess := New(testKey, testIV, dec)

	_, err := sess.DecryptAndDecode([]byte{0x00, 0x01, 0x02, 0x03})
	require.Error(t, err)
}

// Package cryptopipeline turns an encrypted RTP audio payload into decoded
// PCM samples: AES-128-CBC decrypt the 16-byte-aligned prefix (the tail
// remainder is carried through unencrypted, matching the sender's padding
// convention), then hand the result to the negotiated ALAC decoder.
package cryptopipeline

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/alxayo/raop-go/internal/alac"
	rerr "github.com/alxayo/raop-go/internal/errors"
)

// Session holds the per-RECORD-session crypto and codec parameters needed
// to turn one RTP payload into PCM. The IV is the same 16 bytes supplied at
// ANNOUNCE time for every packet in the session; it is never chained or
// advanced across packets.
type Session struct {
	Key     []byte
	IV      []byte
	Decoder alac.Decoder
}

// New builds a Session from the AES key/IV and ALAC stream parameters
// negotiated during ANNOUNCE.
func New(key, iv []byte, decoder alac.Decoder) *Session {
	return &Session{Key: key, IV: iv, Decoder: decoder}
}

// DecryptAndDecode decrypts payload's AES-aligned prefix with a fresh CBC
// instance seeded from Key/IV, copies through whatever trailing bytes don't
// fill a full 16-byte block, then decodes the result into int16 PCM samples
// by right-shifting the decoder's 32-bit samples by 16.
func (s *Session) DecryptAndDecode(payload []byte) ([]int16, error) {
	plain, err := s.decrypt(payload)
	if err != nil {
		return nil, err
	}
	samples, err := s.Decoder.Decode(plain)
	if err != nil {
		return nil, rerr.NewCodecError("cryptopipeline.decode", err)
	}
	out := make([]int16, len(samples))
	for i, v := range samples {
		out[i] = int16(v >> 16)
	}
	return out, nil
}

func (s *Session) decrypt(payload []byte) ([]byte, error) {
	if len(s.Key) == 0 {
		return append([]byte(nil), payload...), nil
	}

	block, err := aes.NewCipher(s.Key)
	if err != nil {
		return nil, rerr.NewCryptoError("cryptopipeline.new_cipher", err)
	}

	aesLen := len(payload) &^ 0xf
	if aesLen == 0 {
		return append([]byte(nil), payload...), nil
	}

	iv := append([]byte(nil), s.IV...)
	mode := cipher.NewCBCDecrypter(block, iv)

	out := make([]byte, len(payload))
	mode.CryptBlocks(out[:aesLen], payload[:aesLen])
	copy(out[aesLen:], payload[aesLen:])
	return out, nil
}

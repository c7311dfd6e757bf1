// Package challenge computes the Apple-Response header value for a given
// Apple-Challenge: a single exported entry point wrapping deadline-free
// crypto work and returning a typed error on any failure.
package challenge

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net"

	rerr "github.com/alxayo/raop-go/internal/errors"
	"github.com/alxayo/raop-go/internal/rtspcodec"
)

// Compute decodes challengeB64 (stripping any padding), concatenates it with
// the local IP's raw octets (4 bytes for IPv4, 16 for IPv6) and the 6-byte
// hardware address, signs the result with RSA PKCS#1 v1.5 using key, and
// base64-encodes the signature without padding.
func Compute(key *rsa.PrivateKey, challengeB64 string, localIP net.IP, hwAddr [6]byte) (string, error) {
	chall, err := rtspcodec.DecodeChallenge(challengeB64)
	if err != nil {
		return "", err
	}

	addr := ipOctets(localIP)
	buf := make([]byte, 0, len(chall)+len(addr)+len(hwAddr))
	buf = append(buf, chall...)
	buf = append(buf, addr...)
	buf = append(buf, hwAddr[:]...)

	// crypto.Hash(0) requests the raw (unhashed) PKCS#1 v1.5 signing variant:
	// buf is signed directly with no DigestInfo ASN.1 prefix, matching the
	// original's PaddingScheme::new_pkcs1v15_sign(None).
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.Hash(0), buf)
	if err != nil {
		return "", rerr.NewCryptoError("challenge.sign", err)
	}
	return rtspcodec.EncodeResponse(sig), nil
}

func ipOctets(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}

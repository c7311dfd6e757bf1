// Package sdp extracts the handful of SDP fields an ANNOUNCE body carries:
// the ALAC fmtp parameter string, optional latency bounds, and the
// base64-encoded AES IV and RSA-encrypted AES key. This is not a
// general-purpose SDP parser, just the fields a RECORD session needs.
package sdp

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	rerr "github.com/alxayo/raop-go/internal/errors"
	"github.com/alxayo/raop-go/internal/rtspcodec"
)

// Announce holds the fields extracted from the first media block of an
// ANNOUNCE body.
type Announce struct {
	Fmtp       string
	MinLatency int
	MaxLatency int
	AESIV      []byte // nil if the aesiv attribute was absent
	AESKeyEnc  []byte // RSA-OAEP ciphertext, nil if the rsaaeskey attribute was absent
}

// Parse scans body for the first "m=" media block and the attribute lines
// that follow it, up to the next media block or end of body.
func Parse(body []byte) (*Announce, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	inMediaBlock := false
	ann := &Announce{}
	sawMedia := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "m="):
			if sawMedia {
				inMediaBlock = false
				continue
			}
			sawMedia = true
			inMediaBlock = true
		case inMediaBlock && strings.HasPrefix(line, "a=fmtp:"):
			ann.Fmtp = dropFirstToken(strings.TrimPrefix(line, "a=fmtp:"))
		case inMediaBlock && strings.HasPrefix(line, "a=min-latency:"):
			v, err := strconv.Atoi(strings.TrimPrefix(line, "a=min-latency:"))
			if err == nil {
				ann.MinLatency = v
			}
		case inMediaBlock && strings.HasPrefix(line, "a=max-latency:"):
			v, err := strconv.Atoi(strings.TrimPrefix(line, "a=max-latency:"))
			if err == nil {
				ann.MaxLatency = v
			}
		case inMediaBlock && strings.HasPrefix(line, "a=aesiv:"):
			b, err := rtspcodec.DecodeChallenge(strings.TrimPrefix(line, "a=aesiv:"))
			if err != nil {
				return nil, rerr.NewParseError("sdp.aesiv", err)
			}
			ann.AESIV = b
		case inMediaBlock && strings.HasPrefix(line, "a=rsaaeskey:"):
			b, err := rtspcodec.DecodeChallenge(strings.TrimPrefix(line, "a=rsaaeskey:"))
			if err != nil {
				return nil, rerr.NewParseError("sdp.rsaaeskey", err)
			}
			ann.AESKeyEnc = b
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, rerr.NewParseError("sdp.scan", err)
	}
	if !sawMedia {
		return nil, rerr.NewParseError("sdp.parse", errMissingMediaSection{})
	}
	return ann, nil
}

func dropFirstToken(s string) string {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(s[idx+1:])
}

type errMissingMediaSection struct{}

func (errMissingMediaSection) Error() string { return "sdp: missing media section" }

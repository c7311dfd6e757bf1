package rtspcodec

import (
	"encoding/base64"
	"strings"

	rerr "github.com/alxayo/raop-go/internal/errors"
)

// DecodeChallenge base64-decodes an unpadded value, tolerating Apple's
// inconsistent padding by stripping everything from the first '=' onward
// before decoding (some clients pad, some don't).
func DecodeChallenge(input string) ([]byte, error) {
	stripped := input
	if idx := strings.IndexByte(input, '='); idx >= 0 {
		stripped = input[:idx]
	}
	b, err := base64.RawStdEncoding.DecodeString(stripped)
	if err != nil {
		return nil, rerr.NewParseError("base64.decode", err)
	}
	return b, nil
}

// EncodeResponse base64-encodes without padding, matching the wire format
// Apple-Response and other RAOP base64 fields use.
func EncodeResponse(b []byte) string {
	return base64.RawStdEncoding.EncodeToString(b)
}

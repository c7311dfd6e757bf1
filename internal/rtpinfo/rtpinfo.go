// Package rtpinfo parses and formats the RTSP RTP-Info header. Grounded on
// the original Rust implementation's nom permutation combinator, which
// accepts "seq=" and "rtptime=" in either order, semicolon-separated, with
// optional surrounding whitespace. Go's idiomatic equivalent for a grammar
// this small is a pair of independent regexp scans rather than a
// parser-combinator dependency (none appears anywhere in the retrieval
// pack to ground such a choice).
package rtpinfo

import (
	"fmt"
	"regexp"
	"strconv"

	rerr "github.com/alxayo/raop-go/internal/errors"
)

// Info is the {seq, rtptime} pair carried by an RTP-Info header.
type Info struct {
	Seq     uint16
	RtpTime uint32
}

var (
	seqPattern     = regexp.MustCompile(`(?i)\bseq\s*=\s*(\d+)`)
	rtptimePattern = regexp.MustCompile(`(?i)\brtptime\s*=\s*(\d+)`)
)

// Parse extracts seq and rtptime from header value s, accepting either
// field in any order and tolerating whitespace around '=' and ';'.
func Parse(s string) (Info, error) {
	seqMatch := seqPattern.FindStringSubmatch(s)
	if seqMatch == nil {
		return Info{}, rerr.NewParseError("rtpinfo.parse", fmt.Errorf("missing seq in %q", s))
	}
	rtptimeMatch := rtptimePattern.FindStringSubmatch(s)
	if rtptimeMatch == nil {
		return Info{}, rerr.NewParseError("rtpinfo.parse", fmt.Errorf("missing rtptime in %q", s))
	}

	seqVal, err := strconv.ParseUint(seqMatch[1], 10, 16)
	if err != nil {
		return Info{}, rerr.NewParseError("rtpinfo.parse_seq", err)
	}
	rtptimeVal, err := strconv.ParseUint(rtptimeMatch[1], 10, 32)
	if err != nil {
		return Info{}, rerr.NewParseError("rtpinfo.parse_rtptime", err)
	}

	return Info{Seq: uint16(seqVal), RtpTime: uint32(rtptimeVal)}, nil
}

// Format renders Info back to wire form, e.g. "seq=42;rtptime=100".
func Format(info Info) string {
	return fmt.Sprintf("seq=%d;rtptime=%d", info.Seq, info.RtpTime)
}

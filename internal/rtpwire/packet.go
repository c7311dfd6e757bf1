// Package rtpwire parses incoming RTP datagrams using pion/rtp, the same
// header-parsing library a sibling RTP-to-SDR gateway in the retrieval pack
// uses (rtp.Packet{} / Unmarshal).
package rtpwire

import (
	"github.com/pion/rtp"

	rerr "github.com/alxayo/raop-go/internal/errors"
)

// ParseAudio unmarshals an audio-server-receive datagram and returns its
// 16-bit sequence number and the payload following the 12-byte RTP header.
func ParseAudio(buf []byte) (seqNum uint16, payload []byte, err error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(buf); err != nil {
		return 0, nil, rerr.NewParseError("rtpwire.parse_audio", err)
	}
	return pkt.SequenceNumber, pkt.Payload, nil
}

// PayloadType reads only the payload-type field (byte 1, low 7 bits) of an
// RTP header, used by control-receive to dispatch between retransmit
// responses (84) and resent audio packets (86) without a full unmarshal.
func PayloadType(buf []byte) (uint8, bool) {
	if len(buf) < 2 {
		return 0, false
	}
	return buf[1] & 0x7F, true
}

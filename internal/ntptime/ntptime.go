// Package ntptime decodes the NTP-style timestamps carried in control- and
// timing-channel packets. Clock synchronization itself is out of scope;
// this package exists so the fields have a typed home to be traced through
// rather than being discarded outright.
package ntptime

import "encoding/binary"

// Time is an NTP-style {seconds, fraction} timestamp pair as carried in a
// retransmit-response (payload-type 84) control packet.
type Time struct {
	Sec  uint32
	Frac uint32
}

// DecodeTriple reads the origin timestamp (offset 8) and a bare transmit
// timestamp (offset 16) from a raw payload-type-84 datagram, per the exact
// byte offsets a real client expects (the generic RTP parser
// misreads these fields as SSRC, so the offsets are taken directly from the
// buffer instead of through a structured RTP header).
func DecodeTriple(buf []byte) (origin Time, transmit uint32, ok bool) {
	if len(buf) < 20 {
		return Time{}, 0, false
	}
	origin = Time{
		Sec:  binary.BigEndian.Uint32(buf[8:12]),
		Frac: binary.BigEndian.Uint32(buf[12:16]),
	}
	transmit = binary.BigEndian.Uint32(buf[16:20])
	return origin, transmit, true
}

// TimingTriple holds the three full NTP timestamps a timing-receive
// datagram carries: origin, receive, and transmit.
type TimingTriple struct {
	Origin    Time
	Receive   Time
	Transmit  Time
}

// DecodeTimingTriple parses a 32-byte timing-receive datagram: an 8-byte
// outer header followed by three 8-byte {sec,frac} NTP timestamps at
// offsets 8, 16, and 24. Returns ok=false for any other length.
func DecodeTimingTriple(buf []byte) (TimingTriple, bool) {
	if len(buf) != 32 {
		return TimingTriple{}, false
	}
	return TimingTriple{
		Origin: Time{
			Sec:  binary.BigEndian.Uint32(buf[8:12]),
			Frac: binary.BigEndian.Uint32(buf[12:16]),
		},
		Receive: Time{
			Sec:  binary.BigEndian.Uint32(buf[16:20]),
			Frac: binary.BigEndian.Uint32(buf[20:24]),
		},
		Transmit: Time{
			Sec:  binary.BigEndian.Uint32(buf[24:28]),
			Frac: binary.BigEndian.Uint32(buf[28:32]),
		},
	}, true
}

// Package media runs the five UDP workers that make up a RECORD session's
// media plane: audio-server-receive, control-receive, control-send,
// timing-receive, and timing-send. Each worker is cooperative: blocking
// reads unblock when its socket is closed (the same close-to-unblock idiom
// the control-plane connection uses for its read loop), and non-blocking
// waits select against the session's shutdown subscriber directly.
package media

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/alxayo/raop-go/internal/bufpool"
	"github.com/alxayo/raop-go/internal/ntptime"
	"github.com/alxayo/raop-go/internal/rtpwire"
	"github.com/alxayo/raop-go/internal/shutdown"
)

// AudioPacket is a parsed (or resent) audio datagram forwarded to the Player.
type AudioPacket struct {
	Seq     uint16
	Payload []byte
}

// MissingSeqs asks control-send to emit a resend request for the half-open
// range [Start, End).
type MissingSeqs struct {
	Start uint16
	End   uint16
}

const controlReceivePayloadRetransmit = 84
const controlReceivePayloadResent = 86
const timingReceivePayloadType = 83
const timingReceiveLen = 32
const timingSendInterval = 3 * time.Second

// RunAudioReceive reads RTP audio datagrams and forwards each as an
// AudioPacket. Returns when the socket is closed or a non-transient error
// occurs.
func RunAudioReceive(conn *net.UDPConn, sub *shutdown.Subscriber, out chan<- AudioPacket, log *slog.Logger) {
	defer sub.Done()
	buf := bufpool.Get(65536)
	defer bufpool.Put(buf)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			logWorkerExit(log, "audio-server-receive", sub, err)
			return
		}
		seq, payload, perr := rtpwire.ParseAudio(buf[:n])
		if perr != nil {
			log.Warn("audio-server-receive: malformed packet", "error", perr)
			continue
		}
		send(out, sub, AudioPacket{Seq: seq, Payload: append([]byte(nil), payload...)})
	}
}

// RunControlReceive handles retransmit responses (payload-type 84, traced
// only) and resent audio packets (payload-type 86, forwarded as ordinary
// audio). Other payload types are ignored.
func RunControlReceive(conn *net.UDPConn, sub *shutdown.Subscriber, out chan<- AudioPacket, log *slog.Logger) {
	defer sub.Done()
	buf := bufpool.Get(65536)
	defer bufpool.Put(buf)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			logWorkerExit(log, "control-receive", sub, err)
			return
		}
		datagram := buf[:n]
		pt, ok := rtpwire.PayloadType(datagram)
		if !ok {
			continue
		}
		switch pt {
		case controlReceivePayloadRetransmit:
			if origin, transmit, ok := ntptime.DecodeTriple(datagram); ok {
				log.Debug("control-receive: retransmit response", "origin_sec", origin.Sec, "transmit", transmit)
			}
		case controlReceivePayloadResent:
			if len(datagram) < 16 {
				continue
			}
			seq := binary.BigEndian.Uint16(datagram[6:8])
			send(out, sub, AudioPacket{Seq: seq, Payload: append([]byte(nil), datagram[16:]...)})
		default:
		}
	}
}

// RunControlSend waits for MissingSeqs commands and best-effort emits a
// resend-request datagram for each. Send errors are ignored: a lost resend
// request simply times out and gets asked for again.
func RunControlSend(conn *net.UDPConn, sub *shutdown.Subscriber, missing <-chan MissingSeqs, log *slog.Logger) {
	defer sub.Done()
	for {
		select {
		case <-sub.WaitStop():
			return
		case m, ok := <-missing:
			if !ok {
				return
			}
			datagram := encodeMissingSeqs(m)
			if _, err := conn.Write(datagram); err != nil {
				log.Debug("control-send: write failed", "error", err)
			}
		}
	}
}

func encodeMissingSeqs(m MissingSeqs) []byte {
	count := m.End - m.Start
	out := make([]byte, 8)
	out[0] = 0x80
	out[1] = 0x55 | 0x80
	out[2] = 0x00
	out[3] = 0x01
	binary.BigEndian.PutUint16(out[4:6], m.Start)
	binary.BigEndian.PutUint16(out[6:8], count)
	return out
}

// RunTimingReceive expects exactly 32-byte payload-type-83 datagrams and
// decodes their three NTP timestamps for future clock work. Anything else
// is ignored.
func RunTimingReceive(conn *net.UDPConn, sub *shutdown.Subscriber, log *slog.Logger) {
	defer sub.Done()
	buf := bufpool.Get(2048)
	defer bufpool.Put(buf)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			logWorkerExit(log, "timing-receive", sub, err)
			return
		}
		if n != timingReceiveLen {
			continue
		}
		datagram := buf[:n]
		pt, ok := rtpwire.PayloadType(datagram)
		if !ok || pt != timingReceivePayloadType {
			continue
		}
		if triple, ok := ntptime.DecodeTimingTriple(datagram); ok {
			log.Debug("timing-receive: sync packet", "origin_sec", triple.Origin.Sec, "transmit_sec", triple.Transmit.Sec)
		}
	}
}

// RunTimingSend emits a timing-request datagram every three seconds,
// best-effort, until the session's shutdown subscriber fires.
func RunTimingSend(conn *net.UDPConn, sub *shutdown.Subscriber, log *slog.Logger) {
	defer sub.Done()
	ticker := time.NewTicker(timingSendInterval)
	defer ticker.Stop()

	datagram := make([]byte, 32)
	datagram[0] = 0x80
	datagram[1] = 0xD2
	datagram[2] = 0x00
	datagram[3] = 0x07

	for {
		select {
		case <-sub.WaitStop():
			return
		case <-ticker.C:
			if _, err := conn.Write(datagram); err != nil {
				log.Debug("timing-send: write failed", "error", err)
			}
		}
	}
}

func send(out chan<- AudioPacket, sub *shutdown.Subscriber, pkt AudioPacket) {
	select {
	case out <- pkt:
	case <-sub.WaitStop():
	}
}

func logWorkerExit(log *slog.Logger, name string, sub *shutdown.Subscriber, err error) {
	if sub.IsStopped() || errors.Is(err, net.ErrClosed) {
		log.Debug(name + ": stopped")
		return
	}
	log.Warn(name+": read error", "error", err)
}

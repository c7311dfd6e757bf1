// Package rtsphandler dispatches RTSP requests for one control-plane TCP
// connection to a Player, matching every outgoing response with the
// Apple-Challenge/Apple-Response handshake and CSeq echo real clients
// require on every reply.
package rtsphandler

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/alxayo/raop-go/internal/challenge"
	"github.com/alxayo/raop-go/internal/player"
	"github.com/alxayo/raop-go/internal/rtpinfo"
	"github.com/alxayo/raop-go/internal/rtspcodec"
	"github.com/alxayo/raop-go/internal/sdp"
	"github.com/alxayo/raop-go/internal/shutdown"
	"github.com/alxayo/raop-go/internal/transport"
)

const serverHeader = "AirTunes/105.1"
const audioLatency = "11025"

const publicMethods = "ANNOUNCE, SETUP, RECORD, PAUSE, FLUSH, TEARDOWN, OPTIONS, GET_PARAMETER, SET_PARAMETER"

// Handler dispatches RTSP requests on one connection to a Player.
type Handler struct {
	player *player.Player
	key    *rsa.PrivateKey
	hwAddr [6]byte
	log    *slog.Logger
}

// New builds a Handler bound to p, signing Apple-Response headers with key
// and hwAddr.
func New(p *player.Player, key *rsa.PrivateKey, hwAddr [6]byte, log *slog.Logger) *Handler {
	return &Handler{player: p, key: key, hwAddr: hwAddr, log: log}
}

// Serve loops reading and responding to requests until the connection
// closes, TEARDOWN completes, or shutdown fires. sub is registered with the
// bus before Serve is called; Serve calls sub.Done() exactly once before
// returning. A watcher goroutine closes conn the same way every other
// blocking read in this repo unblocks on shutdown: close the socket out
// from under the read.
func (h *Handler) Serve(conn *rtspcodec.Conn, sub *shutdown.Subscriber) {
	defer sub.Done()
	defer conn.Close()

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-sub.WaitStop():
			conn.Close()
		case <-watchDone:
		}
	}()

	for {
		req, err := conn.ReadMessage()
		if err != nil {
			if sub.IsStopped() {
				h.log.Debug("rtsp: connection closed for shutdown")
				return
			}
			if err == io.EOF {
				return
			}
			h.log.Debug("rtsp: read failed", "error", err)
			return
		}

		resp, closeAfter := h.dispatch(req, conn.LocalAddr, conn.RemoteAddr)
		h.decorate(resp, req, conn.LocalAddr)

		if err := conn.WriteResponse(resp); err != nil {
			h.log.Warn("rtsp: write failed", "error", err)
			return
		}
		if closeAfter {
			return
		}
	}
}

func (h *Handler) dispatch(req *rtspcodec.Request, localAddr, remoteAddr net.Addr) (*rtspcodec.Response, bool) {
	switch strings.ToUpper(req.Method) {
	case "OPTIONS":
		resp := rtspcodec.NewResponse(200, rtspcodec.StatusText(200))
		resp.SetHeader("Public", publicMethods)
		return resp, false

	case "ANNOUNCE":
		return h.handleAnnounce(req), false

	case "SETUP":
		return h.handleSetup(req, remoteAddr), false

	case "RECORD":
		return h.handleRecordOrFlush(req, h.player.Record), false

	case "FLUSH":
		return h.handleRecordOrFlush(req, h.player.Flush), false

	case "TEARDOWN":
		_ = h.player.Teardown()
		resp := rtspcodec.NewResponse(200, rtspcodec.StatusText(200))
		resp.SetHeader("Connection", "close")
		return resp, true

	case "GET_PARAMETER":
		return h.handleGetParameter(req), false

	case "SET_PARAMETER":
		return h.handleSetParameter(req), false

	case "DESCRIBE", "PAUSE", "PLAY", "PLAY_NOTIFY", "REDIRECT":
		return rtspcodec.NewResponse(405, rtspcodec.StatusText(405)), false

	default:
		return rtspcodec.NewResponse(500, rtspcodec.StatusText(500)), true
	}
}

func (h *Handler) handleAnnounce(req *rtspcodec.Request) *rtspcodec.Response {
	ann, err := sdp.Parse(req.Body)
	if err != nil {
		return rtspcodec.NewResponse(400, rtspcodec.StatusText(400))
	}

	in := player.AnnounceInput{
		Fmtp:       ann.Fmtp,
		MinLatency: ann.MinLatency,
		MaxLatency: ann.MaxLatency,
		AESIV:      ann.AESIV,
	}
	if len(ann.AESKeyEnc) > 0 {
		key, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, h.key, ann.AESKeyEnc, nil)
		if err != nil {
			return rtspcodec.NewResponse(453, rtspcodec.StatusText(453))
		}
		in.AESKey = key
	}

	if err := h.player.Announce(in); err != nil {
		return rtspcodec.NewResponse(453, rtspcodec.StatusText(453))
	}
	return rtspcodec.NewResponse(200, rtspcodec.StatusText(200))
}

func (h *Handler) handleSetup(req *rtspcodec.Request, remoteAddr net.Addr) *rtspcodec.Response {
	params, err := transport.ParseSetup(req.Header("Transport"))
	if err != nil {
		return rtspcodec.NewResponse(451, rtspcodec.StatusText(451))
	}

	peerIP := peerIPFromAddr(remoteAddr)
	result, err := h.player.Setup(player.SetupInput{
		PeerIP:          peerIP,
		PeerControlPort: params.ControlPort,
		PeerTimingPort:  params.TimingPort,
	})
	if err != nil {
		return rtspcodec.NewResponse(451, rtspcodec.StatusText(451))
	}

	resp := rtspcodec.NewResponse(200, rtspcodec.StatusText(200))
	resp.SetHeader("Transport", transport.FormatRecordTransport(result.ServerPort, result.ControlPort, result.TimingPort))
	resp.SetHeader("Session", "1")
	return resp
}

func (h *Handler) handleRecordOrFlush(req *rtspcodec.Request, apply func(rtpinfo.Info) error) *rtspcodec.Response {
	info, err := rtpinfo.Parse(req.Header("RTP-Info"))
	if err != nil {
		return rtspcodec.NewResponse(451, rtspcodec.StatusText(451))
	}
	if err := apply(info); err != nil {
		return rtspcodec.NewResponse(451, rtspcodec.StatusText(451))
	}
	resp := rtspcodec.NewResponse(200, rtspcodec.StatusText(200))
	resp.SetHeader("Audio-Latency", audioLatency)
	return resp
}

func (h *Handler) handleGetParameter(req *rtspcodec.Request) *rtspcodec.Response {
	resp := rtspcodec.NewResponse(200, rtspcodec.StatusText(200))
	body := strings.TrimSpace(string(req.Body))
	if body == "" {
		return resp
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "volume" {
			result := h.player.GetParameter()
			lines = append(lines, fmt.Sprintf("volume: %.6f", result.Volume))
		}
	}
	resp.SetBody([]byte(strings.Join(lines, "\r\n")))
	return resp
}

func (h *Handler) handleSetParameter(req *rtspcodec.Request) *rtspcodec.Response {
	if !strings.EqualFold(req.Header("Content-Type"), "text/parameters") {
		return rtspcodec.NewResponse(451, rtspcodec.StatusText(451))
	}

	for _, line := range strings.Split(string(req.Body), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) != "volume" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return rtspcodec.NewResponse(451, rtspcodec.StatusText(451))
		}
		if err := h.player.SetParameter(v); err != nil {
			return rtspcodec.NewResponse(451, rtspcodec.StatusText(451))
		}
	}
	return rtspcodec.NewResponse(200, rtspcodec.StatusText(200))
}

// decorate attaches the headers every response carries: Server, CSeq (if
// the request had one), and Apple-Response (if the request carried an
// Apple-Challenge).
func (h *Handler) decorate(resp *rtspcodec.Response, req *rtspcodec.Request, localAddr net.Addr) {
	resp.SetHeader("Server", serverHeader)
	if cseq, ok := req.CSeq(); ok {
		resp.SetHeader("CSeq", cseq)
	}

	chall := req.Header("Apple-Challenge")
	if chall == "" {
		return
	}
	localIP := peerIPFromAddr(localAddr)
	sig, err := challenge.Compute(h.key, chall, localIP, h.hwAddr)
	if err != nil {
		h.log.Warn("rtsp: apple-challenge computation failed", "error", err)
		return
	}
	resp.SetHeader("Apple-Response", sig)
}

func peerIPFromAddr(addr net.Addr) net.IP {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

package player

import (
	"log/slog"
	"net"

	"github.com/alxayo/raop-go/internal/alac"
	"github.com/alxayo/raop-go/internal/audiosink"
	"github.com/alxayo/raop-go/internal/cryptopipeline"
	rerr "github.com/alxayo/raop-go/internal/errors"
	"github.com/alxayo/raop-go/internal/media"
	"github.com/alxayo/raop-go/internal/reorder"
	"github.com/alxayo/raop-go/internal/rtpinfo"
	"github.com/alxayo/raop-go/internal/seq"
	"github.com/alxayo/raop-go/internal/shutdown"
)

const pcmChannels = 2
const pcmSampleRate = 44100
const missingSeqsQueueDepth = 16

// sessionMedia holds the per-RECORD-session UDP sockets and the shutdown
// bus that coordinates their five workers plus the audio-forwarding
// adapter goroutine.
type sessionMedia struct {
	bus         *shutdown.Bus
	serverConn  *net.UDPConn
	controlConn *net.UDPConn
	timingConn  *net.UDPConn
	missingSeqs chan media.MissingSeqs
}

// Player is the single actor owning a RAOP session's mutable state. All
// fields below are touched only from the run loop; callers interact
// exclusively through the command-returning methods.
type Player struct {
	cmds chan command
	log  *slog.Logger

	volume     float64
	minLatency int
	maxLatency int

	crypto     *cryptopipeline.Session
	streamInfo alac.StreamInfo
	reorderBuf *reorder.Buffer

	sink  audiosink.Sink
	media *sessionMedia
}

// New creates a Player and starts its run loop. sink receives the PCM
// source constructed on each RECORD.
func New(sink audiosink.Sink, log *slog.Logger) *Player {
	p := &Player{
		cmds: make(chan command, 32),
		log:  log,
		sink: sink,
	}
	go p.run()
	return p
}

func (p *Player) run() {
	for cmd := range p.cmds {
		cmd.apply(p)
	}
}

// Announce installs the session's AES key/IV and ALAC decoder parameters.
func (p *Player) Announce(in AnnounceInput) error {
	reply := make(chan error, 1)
	p.cmds <- announceCmd{in: in, reply: reply}
	return <-reply
}

// Setup binds the session's three UDP sockets and launches its media
// workers, returning the locally chosen ports.
func (p *Player) Setup(in SetupInput) (SetupResult, error) {
	reply := make(chan setupReply, 1)
	p.cmds <- setupCmd{in: in, reply: reply}
	r := <-reply
	return r.result, r.err
}

// Record creates the reorder buffer and starts playback.
func (p *Player) Record(info rtpinfo.Info) error {
	reply := make(chan error, 1)
	p.cmds <- recordCmd{info: info, reply: reply}
	return <-reply
}

// Flush advances the reorder buffer's read marker.
func (p *Player) Flush(info rtpinfo.Info) error {
	reply := make(chan error, 1)
	p.cmds <- flushCmd{info: info, reply: reply}
	return <-reply
}

// Teardown stops the session's media workers and clears session state.
func (p *Player) Teardown() error {
	reply := make(chan error, 1)
	p.cmds <- teardownCmd{reply: reply}
	return <-reply
}

// SetParameter updates the playback volume.
func (p *Player) SetParameter(volume float64) error {
	reply := make(chan error, 1)
	p.cmds <- setParameterCmd{volume: volume, reply: reply}
	return <-reply
}

// GetParameter reads the current playback volume.
func (p *Player) GetParameter() GetParameterResult {
	reply := make(chan GetParameterResult, 1)
	p.cmds <- getParameterCmd{reply: reply}
	return <-reply
}

// PutPacket hands one audio RTP payload to the crypto+codec pipeline. Not a
// request/reply command: callers don't wait on the result, matching the
// fire-and-forget wire path.
func (p *Player) PutPacket(seqNum uint16, payload []byte) {
	p.cmds <- putPacketCmd{seq: seqNum, payload: payload}
}

func (p *Player) doAnnounce(in AnnounceInput) error {
	info, err := alac.ParseFmtp(in.Fmtp)
	if err != nil {
		return err
	}
	decoder := alac.NewRawPCMDecoder(info)
	p.crypto = cryptopipeline.New(in.AESKey, in.AESIV, decoder)
	p.streamInfo = info
	p.minLatency = in.MinLatency
	p.maxLatency = in.MaxLatency
	return nil
}

func (p *Player) doSetup(in SetupInput) (SetupResult, error) {
	if p.media != nil {
		p.stopMedia()
	}

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		return SetupResult{}, rerr.NewNetworkError("player.setup_server_socket", err)
	}
	controlConn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: in.PeerIP, Port: in.PeerControlPort})
	if err != nil {
		serverConn.Close()
		return SetupResult{}, rerr.NewNetworkError("player.setup_control_socket", err)
	}
	timingConn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: in.PeerIP, Port: in.PeerTimingPort})
	if err != nil {
		serverConn.Close()
		controlConn.Close()
		return SetupResult{}, rerr.NewNetworkError("player.setup_timing_socket", err)
	}

	bus := shutdown.New()
	missingSeqs := make(chan media.MissingSeqs, missingSeqsQueueDepth)

	audioOut := make(chan media.AudioPacket, 64)
	controlOut := make(chan media.AudioPacket, 64)

	go media.RunAudioReceive(serverConn, bus.Subscriber(), audioOut, p.log)
	go media.RunControlReceive(controlConn, bus.Subscriber(), controlOut, p.log)
	go media.RunControlSend(controlConn, bus.Subscriber(), missingSeqs, p.log)
	go media.RunTimingReceive(timingConn, bus.Subscriber(), p.log)
	go media.RunTimingSend(timingConn, bus.Subscriber(), p.log)
	go p.forwardAudio(bus.Subscriber(), audioOut, controlOut)

	p.media = &sessionMedia{
		bus:         bus,
		serverConn:  serverConn,
		controlConn: controlConn,
		timingConn:  timingConn,
		missingSeqs: missingSeqs,
	}

	return SetupResult{
		ServerPort:  serverConn.LocalAddr().(*net.UDPAddr).Port,
		ControlPort: controlConn.LocalAddr().(*net.UDPAddr).Port,
		TimingPort:  timingConn.LocalAddr().(*net.UDPAddr).Port,
	}, nil
}

// forwardAudio merges the audio-server-receive and control-receive output
// channels and re-enqueues each packet as a PutPacket command, so the
// crypto+codec pipeline still runs on the single actor goroutine.
func (p *Player) forwardAudio(sub *shutdown.Subscriber, audioOut, controlOut <-chan media.AudioPacket) {
	defer sub.Done()
	for {
		select {
		case <-sub.WaitStop():
			return
		case pkt, ok := <-audioOut:
			if !ok {
				return
			}
			p.PutPacket(pkt.Seq, pkt.Payload)
		case pkt, ok := <-controlOut:
			if !ok {
				return
			}
			p.PutPacket(pkt.Seq, pkt.Payload)
		}
	}
}

func (p *Player) doRecord(info rtpinfo.Info) error {
	p.reorderBuf = reorder.New(seq.Seq(info.Seq))
	source := audiosink.NewPCMSource(p.reorderBuf, pcmChannels, pcmSampleRate)
	p.sink.Enqueue(source)
	return nil
}

func (p *Player) doFlush(info rtpinfo.Info) error {
	if p.reorderBuf == nil {
		return rerr.NewProtocolError("player.flush", errNoActiveSession)
	}
	p.reorderBuf.Flush(seq.Seq(info.Seq))
	return nil
}

func (p *Player) doTeardown() error {
	if p.media != nil {
		p.stopMedia()
	}
	p.crypto = nil
	p.reorderBuf = nil
	p.sink.Stop()
	return nil
}

func (p *Player) stopMedia() {
	m := p.media
	p.media = nil
	m.bus.Stop()
	m.serverConn.Close()
	m.controlConn.Close()
	m.timingConn.Close()
	m.bus.Wait()
}

func (p *Player) doPutPacket(seqNum uint16, payload []byte) {
	if p.crypto == nil || p.reorderBuf == nil {
		p.log.Warn("put_packet: no active session, dropping packet", "seq", seqNum)
		return
	}
	samples, err := p.crypto.DecryptAndDecode(payload)
	if err != nil {
		p.log.Warn("put_packet: pipeline error, dropping packet", "seq", seqNum, "error", err)
		return
	}
	missing := p.reorderBuf.Add(seq.Seq(seqNum), reorder.Frame(samples))
	if missing.Empty() || p.media == nil {
		return
	}
	select {
	case p.media.missingSeqs <- media.MissingSeqs{Start: uint16(missing.Start), End: uint16(missing.End)}:
	default:
		p.log.Debug("put_packet: missing-seqs queue full, dropping resend request")
	}
}

type errString string

func (e errString) Error() string { return string(e) }

const errNoActiveSession = errString("no active RECORD session")

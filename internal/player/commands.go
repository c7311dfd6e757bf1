// Package player implements the Player actor: a single goroutine owning
// mutable session state, fed by a channel of commands processed strictly in
// arrival order. No locks guard Session's fields because only the actor's
// own run loop ever touches them.
package player

import (
	"net"

	"github.com/alxayo/raop-go/internal/rtpinfo"
)

// AnnounceInput carries the ALAC stream parameters and (optionally) the
// already RSA-decrypted AES session key parsed out of an ANNOUNCE body.
type AnnounceInput struct {
	Fmtp       string
	MinLatency int
	MaxLatency int
	AESIV      []byte
	AESKey     []byte
}

// SetupInput carries the peer's control/timing ports from a SETUP request's
// Transport header.
type SetupInput struct {
	PeerIP          net.IP
	PeerControlPort int
	PeerTimingPort  int
}

// SetupResult reports the three locally bound ephemeral ports.
type SetupResult struct {
	ServerPort  int
	ControlPort int
	TimingPort  int
}

// GetParameterResult carries the current playback volume.
type GetParameterResult struct {
	Volume float64
}

// command is the unexported sum type queued on Player.cmds. Each concrete
// command knows how to apply itself to a *Player and reply.
type command interface {
	apply(p *Player)
}

type announceCmd struct {
	in    AnnounceInput
	reply chan<- error
}

func (c announceCmd) apply(p *Player) { c.reply <- p.doAnnounce(c.in) }

type setupCmd struct {
	in    SetupInput
	reply chan<- setupReply
}

type setupReply struct {
	result SetupResult
	err    error
}

func (c setupCmd) apply(p *Player) {
	res, err := p.doSetup(c.in)
	c.reply <- setupReply{result: res, err: err}
}

type recordCmd struct {
	info  rtpinfo.Info
	reply chan<- error
}

func (c recordCmd) apply(p *Player) { c.reply <- p.doRecord(c.info) }

type flushCmd struct {
	info  rtpinfo.Info
	reply chan<- error
}

func (c flushCmd) apply(p *Player) { c.reply <- p.doFlush(c.info) }

type teardownCmd struct {
	reply chan<- error
}

func (c teardownCmd) apply(p *Player) { c.reply <- p.doTeardown() }

type setParameterCmd struct {
	volume float64
	reply  chan<- error
}

func (c setParameterCmd) apply(p *Player) {
	p.volume = c.volume
	c.reply <- nil
}

type getParameterCmd struct {
	reply chan<- GetParameterResult
}

func (c getParameterCmd) apply(p *Player) {
	c.reply <- GetParameterResult{Volume: p.volume}
}

type putPacketCmd struct {
	seq     uint16
	payload []byte
}

func (c putPacketCmd) apply(p *Player) { p.doPutPacket(c.seq, c.payload) }

// Package server binds the receiver's TCP listener, owns the single
// process-wide Player, advertises over mDNS, and supervises all of it under
// one shutdown bus: the top-level select that decides when the whole
// process tears down.
package server

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/alxayo/raop-go/internal/audiosink"
	"github.com/alxayo/raop-go/internal/mdnsadv"
	"github.com/alxayo/raop-go/internal/player"
	"github.com/alxayo/raop-go/internal/rtspcodec"
	"github.com/alxayo/raop-go/internal/rtsphandler"
	"github.com/alxayo/raop-go/internal/shutdown"
)

var acceptBackoffSchedule = []time.Duration{
	1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
}

// Config holds the values Server needs to bind and advertise.
type Config struct {
	Name   string
	Port   int
	HWAddr [6]byte
	Key    *rsa.PrivateKey

	// Sink overrides the default PortAudio-backed audio sink. Tests set
	// this to a audiosink.NullSink so Start does not require a real audio
	// device; production callers leave it nil.
	Sink audiosink.Sink
}

// Server owns the listener, the Player, and the mDNS advertiser, and
// supervises their lifetimes under a single shutdown bus.
type Server struct {
	cfg Config
	log *slog.Logger

	ln       net.Listener
	bus      *shutdown.Bus
	player   *player.Player
	advert   *mdnsadv.Advertiser
	fatalErr chan error
}

// New builds an unstarted Server.
func New(cfg Config, log *slog.Logger) *Server {
	return &Server{cfg: cfg, log: log, fatalErr: make(chan error, 4)}
}

// Start binds the listener, starts the Player, starts mDNS advertising, and
// launches the accept loop. The returned address is the one actually bound
// (useful when Config.Port is 0).
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", addrFor(s.cfg.Port))
	if err != nil {
		return nil, err
	}
	s.ln = ln

	sink := s.cfg.Sink
	if sink == nil {
		portAudioSink, err := audiosink.NewPortAudioSink(2, 44100)
		if err != nil {
			ln.Close()
			return nil, err
		}
		sink = portAudioSink
	}
	s.player = player.New(sink, s.log.With("component", "player"))
	s.bus = shutdown.New()

	port := ln.Addr().(*net.TCPAddr).Port
	advert, err := mdnsadv.New(s.cfg.HWAddr, s.cfg.Name, port)
	if err != nil {
		ln.Close()
		return nil, err
	}
	s.advert = advert

	sub := s.bus.Subscriber()
	go func() {
		defer sub.Done()
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-sub.WaitStop()
			cancel()
		}()
		if err := s.advert.Respond(ctx); err != nil && ctx.Err() == nil {
			s.fatalErr <- err
		}
	}()

	acceptSub := s.bus.Subscriber()
	go s.acceptLoop(acceptSub)

	s.log.Info("server started", "addr", ln.Addr().String(), "name", s.cfg.Name)
	return ln.Addr(), nil
}

func addrFor(port int) string {
	return fmt.Sprintf(":%d", port)
}

func (s *Server) acceptLoop(sub *shutdown.Subscriber) {
	defer sub.Done()
	backoffIdx := 0
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if sub.IsStopped() || errors.Is(err, net.ErrClosed) {
				return
			}
			if backoffIdx >= len(acceptBackoffSchedule) {
				s.fatalErr <- err
				return
			}
			delay := acceptBackoffSchedule[backoffIdx]
			s.log.Warn("accept failed, retrying", "error", err, "delay", delay)
			select {
			case <-time.After(delay):
			case <-sub.WaitStop():
				return
			}
			backoffIdx++
			continue
		}
		backoffIdx = 0

		handler := rtsphandler.New(s.player, s.cfg.Key, s.cfg.HWAddr, s.log.With("component", "rtsp"))
		connSub := s.bus.Subscriber()
		go handler.Serve(rtspcodec.NewConn(conn), connSub)
	}
}

// Wait blocks until the listener errors, the mDNS responder errors, or
// external shutdown is requested via shutdownCh, then tears everything down
// and returns once every supervised worker has confirmed exit.
func (s *Server) Wait(shutdownCh <-chan struct{}) {
	select {
	case err := <-s.fatalErr:
		s.log.Error("fatal error, shutting down", "error", err)
	case <-shutdownCh:
		s.log.Info("shutting down")
	}
	s.Stop()
}

// Stop tears down the listener, stops the shutdown bus (signalling the
// accept loop and mDNS responder), and waits for both to exit.
func (s *Server) Stop() {
	if s.ln != nil {
		s.ln.Close()
	}
	s.bus.Stop()
	s.bus.Wait()
}

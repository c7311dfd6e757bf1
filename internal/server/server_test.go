package server

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/alxayo/raop-go/internal/audiosink"
	"github.com/alxayo/raop-go/internal/rsakey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartBindsAnEphemeralPortAndAcceptsConnections(t *testing.T) {
	cfg := Config{Name: "Test", Port: 0, HWAddr: [6]byte{1, 2, 3, 4, 5, 6}, Key: rsakey.Key(), Sink: audiosink.NewNullSink()}
	s := New(cfg, discardLogger())
	addr, err := s.Start()
	require.NoError(t, err)
	assert.NotZero(t, addr.(*net.TCPAddr).Port)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	require.NoError(t, err)
	conn.Close()

	s.Stop()
}

func TestStopTearsDownIdleRTSPConnections(t *testing.T) {
	cfg := Config{Name: "Test", Port: 0, HWAddr: [6]byte{1, 2, 3, 4, 5, 6}, Key: rsakey.Key(), Sink: audiosink.NewNullSink()}
	s := New(cfg, discardLogger())
	addr, err := s.Start()
	require.NoError(t, err)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	// Give the accept loop a moment to spawn the per-connection handler and
	// register it with the shutdown bus before Stop fires.
	time.Sleep(50 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; a handler goroutine likely leaked past shutdown")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Equal(t, io.EOF, err)
}

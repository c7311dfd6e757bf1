package rtsphandler

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/alxayo/raop-go/internal/audiosink"
	"github.com/alxayo/raop-go/internal/player"
	"github.com/alxayo/raop-go/internal/rsakey"
	"github.com/alxayo/raop-go/internal/rtspcodec"
	"github.com/alxayo/raop-go/internal/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPair(t *testing.T) (server, client net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	serverConn, err := ln.Accept()
	require.NoError(t, err)
	return serverConn, clientConn
}

func newTestHandler() *Handler {
	p := player.New(audiosink.NewNullSink(), discardLogger())
	hw := [6]byte{0x3C, 0x22, 0xFB, 0xA5, 0xA3, 0xAD}
	return New(p, rsakey.Key(), hw, discardLogger())
}

// serve spawns h.Serve on conn under a fresh bus and returns it so callers
// can fire shutdown and wait for the handler goroutine to exit.
func serve(h *Handler, conn net.Conn) *shutdown.Bus {
	bus := shutdown.New()
	go h.Serve(rtspcodec.NewConn(conn), bus.Subscriber())
	return bus
}

func writeRequest(t *testing.T, conn net.Conn, raw string) {
	t.Helper()
	_, err := conn.Write([]byte(raw))
	require.NoError(t, err)
}

func readResponse(t *testing.T, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestOptionsRoundTrip(t *testing.T) {
	server, client := newTestPair(t)
	defer client.Close()

	h := newTestHandler()
	serve(h, server)

	writeRequest(t, client, "OPTIONS * RTSP/1.0\r\nCSeq: 1\r\n\r\n")
	resp := readResponse(t, client)

	assert.Contains(t, resp, "RTSP/1.0 200 OK")
	assert.Contains(t, resp, "CSeq: 1")
	assert.Contains(t, resp, "Public: ANNOUNCE")
	assert.Contains(t, resp, "Server: AirTunes/105.1")
}

func TestAnnounceSetupRecordTeardownLifecycle(t *testing.T) {
	server, client := newTestPair(t)
	defer client.Close()

	h := newTestHandler()
	serve(h, server)

	sdpBody := "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=AirTunes\r\nm=audio 0 RTP/AVP 96\r\na=fmtp:96 352 0 16 40 10 14 2 255 0 0 44100\r\n"
	req := fmt.Sprintf("ANNOUNCE rtsp://127.0.0.1/1 RTSP/1.0\r\nCSeq: 2\r\nContent-Length: %d\r\n\r\n%s", len(sdpBody), sdpBody)
	writeRequest(t, client, req)
	resp := readResponse(t, client)
	assert.Contains(t, resp, "RTSP/1.0 200 OK")

	setupReq := "SETUP rtsp://127.0.0.1/1 RTSP/1.0\r\nCSeq: 3\r\nTransport: RTP/AVP/UDP;unicast;mode=record;control_port=6001;timing_port=6002\r\n\r\n"
	writeRequest(t, client, setupReq)
	resp = readResponse(t, client)
	assert.Contains(t, resp, "RTSP/1.0 200 OK")
	assert.Contains(t, resp, "Transport: RTP/AVP/UDP;unicast;mode=record;server_port=")
	assert.Contains(t, resp, "Session: 1")

	recordReq := "RECORD rtsp://127.0.0.1/1 RTSP/1.0\r\nCSeq: 4\r\nRTP-Info: seq=100;rtptime=0\r\n\r\n"
	writeRequest(t, client, recordReq)
	resp = readResponse(t, client)
	assert.Contains(t, resp, "RTSP/1.0 200 OK")
	assert.Contains(t, resp, "Audio-Latency: 11025")

	teardownReq := "TEARDOWN rtsp://127.0.0.1/1 RTSP/1.0\r\nCSeq: 5\r\n\r\n"
	writeRequest(t, client, teardownReq)
	resp = readResponse(t, client)
	assert.Contains(t, resp, "RTSP/1.0 200 OK")
	assert.Contains(t, resp, "Connection: close")
}

func TestSetParameterVolume(t *testing.T) {
	server, client := newTestPair(t)
	defer client.Close()

	h := newTestHandler()
	serve(h, server)

	body := "volume: -20.000000\r\n"
	req := fmt.Sprintf("SET_PARAMETER rtsp://127.0.0.1/1 RTSP/1.0\r\nCSeq: 6\r\nContent-Type: text/parameters\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	writeRequest(t, client, req)
	resp := readResponse(t, client)
	assert.Contains(t, resp, "RTSP/1.0 200 OK")
}

func TestDescribeIsMethodNotAllowed(t *testing.T) {
	server, client := newTestPair(t)
	defer client.Close()

	h := newTestHandler()
	serve(h, server)

	writeRequest(t, client, "DESCRIBE rtsp://127.0.0.1/1 RTSP/1.0\r\nCSeq: 7\r\n\r\n")
	resp := readResponse(t, client)
	assert.Contains(t, resp, "RTSP/1.0 405")
}

func TestShutdownClosesIdleConnection(t *testing.T) {
	server, client := newTestPair(t)
	defer client.Close()

	h := newTestHandler()
	bus := serve(h, server)

	bus.Stop()

	done := make(chan struct{})
	go func() {
		bus.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after shutdown")
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err := client.Read(buf)
	assert.Equal(t, io.EOF, err)
}

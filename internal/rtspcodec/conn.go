// RTSP framing: incremental parse of RTSP/1.0 request messages over a
// buffered TCP stream, a single-pass streaming reader driven off a
// persistent bufio.Reader.
package rtspcodec

import (
	"bufio"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"

	rerr "github.com/alxayo/raop-go/internal/errors"
)

const initialBufferSize = 4096

// Conn wraps a TCP connection with a growable read buffer and remembers the
// local and peer socket addresses needed for Apple-Challenge computation.
// Not safe for concurrent use; one goroutine reads, and writes are
// serialized by the RTSP handler's single-threaded request/response loop.
type Conn struct {
	netConn    net.Conn
	br         *bufio.Reader
	bw         *bufio.Writer
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

// NewConn wraps conn with RTSP framing, starting at a 4 KiB read/write
// buffer that grows via bufio's own reallocation as needed.
func NewConn(conn net.Conn) *Conn {
	return &Conn{
		netConn:    conn,
		br:         bufio.NewReaderSize(conn, initialBufferSize),
		bw:         bufio.NewWriterSize(conn, initialBufferSize),
		LocalAddr:  conn.LocalAddr(),
		RemoteAddr: conn.RemoteAddr(),
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.netConn.Close() }

// ReadMessage blocks until one complete RTSP request has been read, the
// peer closed cleanly (io.EOF, no partial data buffered), or an error
// occurs. A partial message followed by EOF is reported as a NetworkError
// ("connection reset by peer").
func (c *Conn) ReadMessage() (*Request, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	method, uri, version, err := parseRequestLine(line)
	if err != nil {
		return nil, rerr.NewParseError("rtsp.request_line", err)
	}

	tp := textproto.NewReader(c.br)
	headers, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, rerr.NewNetworkError("rtsp.read_headers", err)
	}

	req := &Request{Method: method, URI: uri, Version: version, Headers: headers}

	if cl := headers.Get("Content-Length"); cl != "" {
		n, convErr := strconv.Atoi(strings.TrimSpace(cl))
		if convErr != nil || n < 0 {
			return nil, rerr.NewParseError("rtsp.content_length", convErr)
		}
		if n > 0 {
			body := make([]byte, n)
			if _, err := io.ReadFull(c.br, body); err != nil {
				return nil, rerr.NewNetworkError("rtsp.read_body", err)
			}
			req.Body = body
		}
	}

	return req, nil
}

// readLine reads one CRLF- or LF-terminated line, trimmed, distinguishing a
// clean peer close (empty accumulated buffer at EOF) from a reset mid
// message (anything already read before EOF).
func (c *Conn) readLine() (string, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return "", io.EOF
			}
			return "", rerr.NewNetworkError("rtsp.read_message", io.ErrUnexpectedEOF)
		}
		return "", rerr.NewNetworkError("rtsp.read_message", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseRequestLine(line string) (method, uri, version string, err error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", "", "", errInvalidRequestLine(line)
	}
	return parts[0], parts[1], parts[2], nil
}

type errInvalidRequestLine string

func (e errInvalidRequestLine) Error() string { return "invalid RTSP request line: " + string(e) }

// WriteResponse serializes resp and flushes immediately; RTSP responses are
// latency-sensitive and must not wait for Nagle/buffering.
func (c *Conn) WriteResponse(resp *Response) error {
	if _, err := c.bw.Write(resp.Bytes()); err != nil {
		return rerr.NewNetworkError("rtsp.write_response", err)
	}
	if err := c.bw.Flush(); err != nil {
		return rerr.NewNetworkError("rtsp.flush", err)
	}
	return nil
}

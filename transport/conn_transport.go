package transport

import (
	"errors"
	"io"
	"net"
	"syscall"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
)

// ConnTransport implements the Transport interface on top of a net.Conn
type ConnTransport struct {
	conn net.Conn
}

// NewConnTransport wraps an accepted connection
func NewConnTransport(conn net.Conn) *ConnTransport {
	return &ConnTransport{
		conn: conn,
	}
}

// Dial establishes a connection to addr and wraps it
func Dial(network, addr string) (*ConnTransport, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorSocketConnectFailure,
			"failed to connect to "+addr,
			err,
		)
	}

	// Set TCP_NODELAY to disable Nagle's algorithm for lower latency
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, httperrors.NewTransportError(
				httperrors.TransportErrorSocketConnectFailure,
				"failed to set TCP_NODELAY",
				err,
			)
		}
	}

	return NewConnTransport(conn), nil
}

// Write sends data over the connection
func (t *ConnTransport) Write(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketWriteFailure,
			"not connected",
			nil,
		)
	}

	n, err := t.conn.Write(buf)
	if err != nil {
		// Check for broken pipe or connection reset
		if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
			return n, httperrors.NewTransportError(httperrors.TransportErrorConnectionClosed, "write failed", err)
		}
		return n, httperrors.NewTransportError(httperrors.TransportErrorSocketWriteFailure, "write failed", err)
	}

	return n, nil
}

// Read receives data from the connection
func (t *ConnTransport) Read(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketReadFailure,
			"not connected",
			nil,
		)
	}

	n, err := t.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, httperrors.NewTransportError(httperrors.TransportErrorConnectionClosed, "connection closed by peer", err)
		}
		return n, httperrors.NewTransportError(httperrors.TransportErrorSocketReadFailure, "read failed", err)
	}

	return n, nil
}

// Close closes the connection
func (t *ConnTransport) Close() error {
	if t.conn == nil {
		return nil // Idempotent close
	}

	err := t.conn.Close()
	t.conn = nil

	if err != nil {
		return httperrors.NewTransportError(httperrors.TransportErrorConnectionClosed, "failed to close socket", err)
	}

	return nil
}

package transport

import (
	"os"

	"github.com/iceber/iouring-go"
	httperrors "github.com/nczempin/httpd-go-uring/errors"
)

// ringEntries is the queue depth of a per-connection ring
const ringEntries = 2

// UringTransport implements Transport using io_uring for the socket I/O
type UringTransport struct {
	iour *iouring.IOURing
	file *os.File
	fd   int
}

// NewUringTransport takes ownership of an accepted socket and drives it
// through a private io_uring instance
func NewUringTransport(file *os.File) (*UringTransport, error) {
	// One ring per connection keeps completions from ever being shared
	// between goroutines; a connection has at most one request in flight
	iour, err := iouring.New(ringEntries)
	if err != nil {
		file.Close()
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	return &UringTransport{
		iour: iour,
		file: file,
		fd:   int(file.Fd()),
	}, nil
}

// Write submits a single write; a short write is returned to the caller as is
func (t *UringTransport) Write(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	ch := make(chan iouring.Result, 1)
	prepReq := iouring.Write(t.fd, buf)
	if _, err := t.iour.SubmitRequest(prepReq, ch); err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringSubmit,
			"failed to submit write request",
			err,
		)
	}

	result := <-ch
	n, err := result.ReturnInt()
	if err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketWriteFailure,
			"write failed",
			err,
		)
	}

	if n <= 0 && len(buf) > 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed during write",
			nil,
		)
	}

	return n, nil
}

// Read receives data from the connection using io_uring
func (t *UringTransport) Read(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	ch := make(chan iouring.Result, 1)
	prepReq := iouring.Read(t.fd, buf)
	if _, err := t.iour.SubmitRequest(prepReq, ch); err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringSubmit,
			"failed to submit read request",
			err,
		)
	}

	result := <-ch
	n, err := result.ReturnInt()
	if err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketReadFailure,
			"read failed",
			err,
		)
	}

	if n == 0 && len(buf) > 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed by peer",
			nil,
		)
	}

	return n, nil
}

// Close closes the socket and releases the io_uring instance
func (t *UringTransport) Close() error {
	if t.fd < 0 {
		return nil // Already closed
	}
	t.fd = -1

	err := t.file.Close()
	t.file = nil
	if t.iour != nil {
		t.iour.Close()
		t.iour = nil
	}

	if err != nil {
		return httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"failed to close socket",
			err,
		)
	}
	return nil
}

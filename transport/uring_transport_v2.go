package transport

import (
	"os"

	"github.com/godzie44/go-uring/uring"
	httperrors "github.com/nczempin/httpd-go-uring/errors"
)

// UringTransportV2 implements Transport using godzie44/go-uring
type UringTransportV2 struct {
	ring *uring.Ring
	file *os.File
}

// NewUringTransportV2 takes ownership of an accepted socket (v2 using godzie44/go-uring)
func NewUringTransportV2(file *os.File) (*UringTransportV2, error) {
	// Private to the connection like UringTransport's ring
	ring, err := uring.New(ringEntries)
	if err != nil {
		file.Close()
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	return &UringTransportV2{
		ring: ring,
		file: file,
	}, nil
}

// complete submits the queued operation and waits for its completion
func (t *UringTransportV2) complete(failure httperrors.TransportError, verb string) (int, error) {
	if _, err := t.ring.Submit(); err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringSubmit,
			"failed to submit "+verb+" request",
			err,
		)
	}

	cqe, err := t.ring.WaitCQEvents(1)
	if err != nil {
		return 0, httperrors.NewTransportError(
			failure,
			"failed to wait for "+verb+" completion",
			err,
		)
	}

	if err := cqe.Error(); err != nil {
		t.ring.SeenCQE(cqe)
		return 0, httperrors.NewTransportError(
			failure,
			verb+" operation failed",
			err,
		)
	}

	n := int(cqe.Res)
	t.ring.SeenCQE(cqe)
	return n, nil
}

// Write queues a single write; a short write is returned to the caller as is
func (t *UringTransportV2) Write(buf []byte) (int, error) {
	if t.file == nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	if err := t.ring.QueueSQE(uring.Write(t.file.Fd(), buf, 0), 0, 0); err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringSubmit,
			"failed to queue write request",
			err,
		)
	}

	n, err := t.complete(httperrors.TransportErrorSocketWriteFailure, "write")
	if err != nil {
		return 0, err
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
func (t *UringTransportV2) Read(buf []byte) (int, error) {
	if t.file == nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	if err := t.ring.QueueSQE(uring.Read(t.file.Fd(), buf, 0), 0, 0); err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringSubmit,
			"failed to queue read request",
			err,
		)
	}

	n, err := t.complete(httperrors.TransportErrorSocketReadFailure, "read")
	if err != nil {
		return 0, err
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

// Close closes the socket and releases the ring
func (t *UringTransportV2) Close() error {
	if t.file == nil {
		return nil
	}

	err := t.file.Close()
	t.file = nil
	if t.ring != nil {
		t.ring.Close()
		t.ring = nil
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

package protocol

import (
	"io"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
)

// WriteAll writes the whole of buf to w, issuing further writes after a
// short one until nothing is left. Any failure leaves the connection in an
// unknown state; callers must stop writing to it
func WriteAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return httperrors.NewTransportError(
				httperrors.TransportErrorSocketWriteFailure,
				"write failed",
				err,
			)
		}

		if n <= 0 || n > len(buf) {
			return httperrors.NewTransportError(
				httperrors.TransportErrorSocketWriteFailure,
				"write made no progress",
				io.ErrShortWrite,
			)
		}

		buf = buf[n:]
	}
	return nil
}

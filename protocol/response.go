package protocol

import (
	"io"
	"strconv"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
)

const (
	// MaxHeaderSize caps the rendered status line and headers
	MaxHeaderSize = 256

	// ChunkSize is the read size used when streaming a body
	ChunkSize = 4096

	// HTMLContentType is used for the synthetic error pages
	HTMLContentType = "text/html; charset=utf-8"

	// DefaultContentType is used when a response names no content type
	DefaultContentType = "text/plain; charset=utf-8"
)

// Response is a status line, the fixed header set and a body. The body is
// either the literal Body or, when BodyReader is set, ContentLength bytes
// streamed from BodyReader
type Response struct {
	Status        Status
	ContentType   string
	Body          string
	BodyReader    io.Reader
	ContentLength int64
}

// RenderHeader appends the status line and headers to dst:
//
//	HTTP/1.1 <code> <reason>\r\n
//	Content-Type: <type>\r\n
//	Content-Length: <n>\r\n
//	Connection: close\r\n
//	\r\n
//
// A header block that does not fit in MaxHeaderSize-1 bytes is rejected
func RenderHeader(dst []byte, status Status, contentType string, contentLength int64) ([]byte, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}

	start := len(dst)
	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(status.Code), 10)
	dst = append(dst, ' ')
	dst = append(dst, status.Reason...)
	dst = append(dst, "\r\nContent-Type: "...)
	dst = append(dst, contentType...)
	dst = append(dst, "\r\nContent-Length: "...)
	dst = strconv.AppendInt(dst, contentLength, 10)
	dst = append(dst, "\r\nConnection: close\r\n\r\n"...)

	if len(dst)-start >= MaxHeaderSize {
		return dst[:start], httperrors.NewProtocolError(
			httperrors.ProtocolErrorHeaderOverflow,
			"header block exceeds "+strconv.Itoa(MaxHeaderSize-1)+" bytes",
		)
	}
	return dst, nil
}

// Send writes the response to w and returns the number of body bytes sent
// Nothing is written when the header does not render. Once the header is
// out, a failure only stops the transfer: the declared length cannot be
// taken back, so no second response is attempted
func (r *Response) Send(w io.Writer) (int64, error) {
	length := r.ContentLength
	if r.BodyReader == nil {
		length = int64(len(r.Body))
	}

	var buf [MaxHeaderSize]byte
	header, err := RenderHeader(buf[:0], r.Status, r.ContentType, length)
	if err != nil {
		return 0, err
	}
	if err := WriteAll(w, header); err != nil {
		return 0, err
	}

	if r.BodyReader != nil {
		return StreamBody(w, r.BodyReader, length)
	}
	if length > 0 {
		if err := WriteAll(w, []byte(r.Body)); err != nil {
			return 0, err
		}
	}
	return length, nil
}

// StreamBody copies at most size bytes from src to w in ChunkSize reads
// A source that ends early yields a FileErrorMidStreamRead with the count
// actually sent
func StreamBody(w io.Writer, src io.Reader, size int64) (int64, error) {
	buf := make([]byte, ChunkSize)
	var sent int64

	for sent < size {
		chunk := buf
		if remaining := size - sent; remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}

		n, err := src.Read(chunk)
		if n > 0 {
			if werr := WriteAll(w, chunk[:n]); werr != nil {
				return sent, werr
			}
			sent += int64(n)
		}

		if err == io.EOF {
			if sent < size {
				return sent, httperrors.NewFileError(
					httperrors.FileErrorMidStreamRead,
					"file ended before declared length",
					io.ErrUnexpectedEOF,
				)
			}
			break
		}
		if err != nil {
			return sent, httperrors.NewFileError(
				httperrors.FileErrorMidStreamRead,
				"read failed after header was sent",
				err,
			)
		}
	}
	return sent, nil
}

// ErrorPage builds the synthetic one-line HTML response for status
func ErrorPage(status Status) *Response {
	return &Response{
		Status:      status,
		ContentType: HTMLContentType,
		Body:        "<h1>" + strconv.Itoa(status.Code) + " " + status.Reason + "</h1>\n",
	}
}

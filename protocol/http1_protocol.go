package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/transport"
)

var (
	headerSeparator  = []byte("\r\n\r\n")
	contentLengthKey = []byte("content-length:")
)

// Http1Protocol performs single HTTP/1.1 GET exchanges over a transport
// The server closes after every response, so the whole response is read
// until the peer closes
type Http1Protocol struct {
	transport transport.Transport
	buffer    []byte
}

// NewHttp1Protocol creates a new HTTP/1.1 protocol handler
func NewHttp1Protocol(t transport.Transport) *Http1Protocol {
	return &Http1Protocol{
		transport: t,
		buffer:    make([]byte, 0, 1024),
	}
}

// Close closes the underlying transport
func (p *Http1Protocol) Close() error {
	return p.transport.Close()
}

// buildRequest formats a GET request into the internal buffer
func (p *Http1Protocol) buildRequest(path string, headers []HttpHeader) {
	p.buffer = p.buffer[:0]
	p.buffer = append(p.buffer, fmt.Sprintf("GET %s HTTP/1.1\r\n", path)...)
	for _, header := range headers {
		p.buffer = append(p.buffer, fmt.Sprintf("%s: %s\r\n", header.Key, header.Value)...)
	}
	p.buffer = append(p.buffer, "\r\n"...)
}

// readFullResponse reads until the peer closes the connection
func (p *Http1Protocol) readFullResponse() error {
	p.buffer = p.buffer[:0]
	readBuf := make([]byte, ChunkSize)

	for {
		n, err := p.transport.Read(readBuf)
		if n > 0 {
			p.buffer = append(p.buffer, readBuf[:n]...)
		}
		if err != nil {
			if httperrors.IsTransport(err, httperrors.TransportErrorConnectionClosed) {
				return nil
			}
			return err
		}
	}
}

// parseContentLength extracts Content-Length from a header block
func parseContentLength(headersView []byte) int {
	lines := bytes.Split(headersView, []byte("\n"))
	for _, line := range lines[1:] { // Skip status line
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			break
		}

		if bytes.HasPrefix(bytes.ToLower(line), contentLengthKey) {
			value := strings.TrimSpace(string(line[len(contentLengthKey):]))
			if length, err := strconv.Atoi(value); err == nil {
				return length
			}
		}
	}
	return -1
}

// ParseResponse parses a complete raw response into a copied HttpResponse
// A body shorter than its Content-Length is reported as an incomplete
// response; the partial response is still returned
func ParseResponse(raw []byte) (*HttpResponse, error) {
	pos := bytes.Index(raw, headerSeparator)
	if pos < 0 {
		return nil, httperrors.NewProtocolError(
			httperrors.ProtocolErrorInvalidStatusLine,
			"no headers found",
		)
	}
	headerSize := pos + len(headerSeparator)

	// Split into status line and rest of headers
	parts := bytes.SplitN(raw[:pos], []byte("\n"), 2)
	statusLine := bytes.TrimSuffix(parts[0], []byte("\r"))

	// Parse status line: "HTTP/1.1 200 OK"
	statusParts := bytes.SplitN(statusLine, []byte(" "), 3)
	if len(statusParts) < 2 {
		return nil, httperrors.NewProtocolError(
			httperrors.ProtocolErrorInvalidStatusLine,
			"invalid status line format",
		)
	}

	statusCode, err := strconv.Atoi(string(statusParts[1]))
	if err != nil {
		return nil, httperrors.NewProtocolError(
			httperrors.ProtocolErrorInvalidStatusLine,
			fmt.Sprintf("invalid status code: %s", statusParts[1]),
		)
	}

	resp := &HttpResponse{
		StatusCode:    statusCode,
		ContentLength: parseContentLength(raw[:headerSize]),
	}
	if len(statusParts) >= 3 {
		resp.StatusMessage = string(statusParts[2])
	}

	if len(parts) > 1 {
		for _, line := range bytes.Split(parts[1], []byte("\n")) {
			line = bytes.TrimSuffix(line, []byte("\r"))
			if len(line) == 0 {
				break
			}

			headerParts := bytes.SplitN(line, []byte(":"), 2)
			if len(headerParts) == 2 {
				resp.Headers = append(resp.Headers, HttpHeader{
					Key:   string(headerParts[0]),
					Value: strings.TrimSpace(string(headerParts[1])),
				})
			}
		}
	}

	body := raw[headerSize:]
	if resp.ContentLength >= 0 && len(body) > resp.ContentLength {
		body = body[:resp.ContentLength]
	}
	resp.Body = append([]byte(nil), body...)

	if resp.ContentLength >= 0 && len(resp.Body) < resp.ContentLength {
		return resp, httperrors.NewProtocolError(
			httperrors.ProtocolErrorIncompleteResponse,
			fmt.Sprintf("body has %d of %d bytes", len(resp.Body), resp.ContentLength),
		)
	}
	return resp, nil
}

// PerformGet sends a GET request for path and reads the whole response
func (p *Http1Protocol) PerformGet(path string, headers []HttpHeader) (*HttpResponse, error) {
	p.buildRequest(path, headers)

	if err := WriteAll(p.transport, p.buffer); err != nil {
		return nil, err
	}

	if err := p.readFullResponse(); err != nil {
		return nil, err
	}

	return ParseResponse(p.buffer)
}

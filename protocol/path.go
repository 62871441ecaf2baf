package protocol

import (
	httperrors "github.com/nczempin/httpd-go-uring/errors"
)

// DefaultDocument is served for every directory-like request target
const DefaultDocument = "index.html"

// isLineEnd reports whether c terminates the request line
func isLineEnd(c byte) bool {
	return c == 0 || c == '\r' || c == '\n'
}

// RequestTarget returns the request target of a request line with its
// leading slash removed; the result aliases req
//
// Only the two spaces around the target are significant: everything before
// the first is the method, everything after the second is ignored
func RequestTarget(req []byte) ([]byte, error) {
	first := -1
	for i, c := range req {
		if c == ' ' {
			first = i
			break
		}
		if isLineEnd(c) {
			break
		}
	}
	if first < 0 {
		return nil, httperrors.NewProtocolError(httperrors.ProtocolErrorMalformedRequest, "missing method separator")
	}
	if first == 0 {
		return nil, httperrors.NewProtocolError(httperrors.ProtocolErrorMalformedRequest, "empty method")
	}

	start := first + 1
	if start >= len(req) || req[start] != '/' {
		return nil, httperrors.NewProtocolError(httperrors.ProtocolErrorMalformedRequest, "request target must start with /")
	}
	start++

	for end := start; end < len(req); end++ {
		c := req[end]
		if c == ' ' {
			return req[start:end], nil
		}
		if isLineEnd(c) {
			break
		}
	}
	return nil, httperrors.NewProtocolError(httperrors.ProtocolErrorMalformedRequest, "missing protocol separator")
}

// NormalizePath maps a request line to a path relative to the document
// root that always names a file
//
//	GET /blog HTTP/1.1  -> blog/index.html
//	GET /blog/ HTTP/1.1 -> blog/index.html
//	GET / HTTP/1.1      -> index.html
//
// req is left untouched and the returned string owns its memory
func NormalizePath(req []byte) (string, error) {
	target, err := RequestTarget(req)
	if err != nil {
		return "", err
	}
	return DocumentPath(target), nil
}

// DocumentPath adds a slash to target unless it already ends in one (or is
// the root), then appends DefaultDocument
func DocumentPath(target []byte) string {
	out := make([]byte, 0, len(target)+len(DefaultDocument)+1)
	out = append(out, target...)
	if len(target) > 0 && target[len(target)-1] != '/' {
		out = append(out, '/')
	}
	out = append(out, DefaultDocument...)
	return string(out)
}

package protocol

import "strings"

// Status is an HTTP status code with its reason phrase
type Status struct {
	Code   int
	Reason string
}

var (
	StatusOK                  = Status{200, "OK"}
	StatusBadRequest          = Status{400, "Bad Request"}
	StatusNotFound            = Status{404, "Not Found"}
	StatusContentTooLarge     = Status{413, "Content Too Large"}
	StatusInternalServerError = Status{500, "Internal Server Error"}
)

// HttpHeader represents an HTTP header key-value pair
type HttpHeader struct {
	Key   string
	Value string
}

// HttpResponse represents a parsed HTTP response (copies data)
type HttpResponse struct {
	StatusCode    int
	StatusMessage string
	Headers       []HttpHeader
	Body          []byte
	ContentLength int
}

// Header returns the first header value matching key, case-insensitively
func (r *HttpResponse) Header(key string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

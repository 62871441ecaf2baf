package protocol

import "strings"

// FallbackContentType is used for unknown or missing extensions
const FallbackContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"html": "text/html; charset=utf-8",
	"htm":  "text/html; charset=utf-8",
	"css":  "text/css; charset=utf-8",
	"js":   "application/javascript; charset=utf-8",
	"json": "application/json; charset=utf-8",
	"txt":  "text/plain; charset=utf-8",
	"svg":  "image/svg+xml",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"ico":  "image/x-icon",
}

// ContentType guesses the MIME type from the text after the last '.' in
// path, matching case-sensitively
func ContentType(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return FallbackContentType
	}
	if ct, ok := contentTypes[path[i+1:]]; ok {
		return ct
	}
	return FallbackContentType
}

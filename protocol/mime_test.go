package protocol

import "testing"

func TestContentType_Known(t *testing.T) {
	expected := map[string]string{
		"index.html":      "text/html; charset=utf-8",
		"old/page.htm":    "text/html; charset=utf-8",
		"style.css":       "text/css; charset=utf-8",
		"app.js":          "application/javascript; charset=utf-8",
		"data.json":       "application/json; charset=utf-8",
		"notes.txt":       "text/plain; charset=utf-8",
		"logo.svg":        "image/svg+xml",
		"a.b.png":         "image/png",
		"photo.jpg":       "image/jpeg",
		"photo.jpeg":      "image/jpeg",
		"anim.gif":        "image/gif",
		"favicon.ico":     "image/x-icon",
		"blog/index.html": "text/html; charset=utf-8",
	}

	for path, want := range expected {
		if got := ContentType(path); got != want {
			t.Errorf("ContentType(%q): expected %q, got %q", path, want, got)
		}
	}
}

func TestContentType_Fallback(t *testing.T) {
	for _, path := range []string{"app.JS", "README", "archive.tar.gz", "file.", "", "dir.d/noext", "index.HTML"} {
		if got := ContentType(path); got != FallbackContentType {
			t.Errorf("ContentType(%q): expected fallback, got %q", path, got)
		}
	}
}

package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/transport"
)

// syncBuffer is a log sink safe for concurrent use
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeSite(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"index.html":      "<h1>home</h1>\n",
		"about.html":      strings.Repeat("<p>about</p>\n", 800),
		"blog/index.html": "<h1>blog</h1>\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	return dir
}

// startServer serves cfg until the test ends
func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Timeout waiting for Serve to return")
		}
		srv.Close()
	})
	return srv
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.Root = writeSite(t)
	return cfg
}

// roundTrip sends raw and returns everything the server wrote
func roundTrip(t *testing.T, network string, addr net.Addr, raw string) string {
	t.Helper()

	conn, err := net.Dial(network, addr.String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return string(resp)
}

func TestServer_ServesFile(t *testing.T) {
	cfg := testConfig(t)
	srv := startServer(t, cfg)

	content, err := os.ReadFile(filepath.Join(cfg.Root, "about.html"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	resp := roundTrip(t, "tcp", srv.Addr(), "GET /about.html HTTP/1.1\r\nHost: localhost\r\n\r\n")

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(content)) +
		"Connection: close\r\n" +
		"\r\n" + string(content)
	if resp != want {
		t.Errorf("Expected %d byte response, got %d bytes: %.120q", len(want), len(resp), resp)
	}
}

func TestServer_NotFound(t *testing.T) {
	srv := startServer(t, testConfig(t))

	resp := roundTrip(t, "tcp", srv.Addr(), "GET /nope HTTP/1.1\r\n\r\n")

	body := "<h1>404 Not Found</h1>\n"
	if !strings.HasPrefix(resp, "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("Expected 404, got %q", resp)
	}
	if !strings.Contains(resp, fmt.Sprintf("Content-Length: %d\r\n", len(body))) {
		t.Errorf("Expected Content-Length %d in %q", len(body), resp)
	}
	if !strings.HasSuffix(resp, "\r\n\r\n"+body) {
		t.Errorf("Expected body %q in %q", body, resp)
	}
}

func TestServer_Idempotent(t *testing.T) {
	srv := startServer(t, testConfig(t))

	for _, req := range []string{"GET /blog HTTP/1.1\r\n\r\n", "GET /x HTTP/1.1\r\n\r\n"} {
		first := roundTrip(t, "tcp", srv.Addr(), req)
		second := roundTrip(t, "tcp", srv.Addr(), req)
		if first != second {
			t.Errorf("Responses to %q differ: %q vs %q", req, first, second)
		}
	}
}

func TestServer_RequestTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRequestBytes = 64
	srv := startServer(t, cfg)

	// Exactly fills the buffer, so nothing is left unread when the server closes
	resp := roundTrip(t, "tcp", srv.Addr(), "GET /"+strings.Repeat("a", 59))

	if !strings.HasPrefix(resp, "HTTP/1.1 413 Content Too Large\r\n") {
		t.Errorf("Expected 413, got %q", resp)
	}
}

func TestServer_SplitRequestLine(t *testing.T) {
	srv := startServer(t, testConfig(t))

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	conn.Write([]byte("GET /bl"))
	time.Sleep(20 * time.Millisecond)
	conn.Write([]byte("og/ HTTP/1.1\r\n\r\n"))

	resp, _ := io.ReadAll(conn)
	if !strings.HasSuffix(string(resp), "<h1>blog</h1>\n") {
		t.Errorf("Expected blog index, got %q", resp)
	}
}

func TestServer_MalformedWithoutNewline(t *testing.T) {
	srv := startServer(t, testConfig(t))

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	conn.Write([]byte("GET "))
	conn.(*net.TCPConn).CloseWrite()

	resp, _ := io.ReadAll(conn)
	if !strings.HasPrefix(string(resp), "HTTP/1.1 400 Bad Request\r\n") {
		t.Errorf("Expected 400, got %q", resp)
	}
}

func TestServer_Logs(t *testing.T) {
	var logs syncBuffer
	cfg := testConfig(t)
	cfg.Logger = log.New(&logs, "", 0)
	srv := startServer(t, cfg)

	roundTrip(t, "tcp", srv.Addr(), "GET /blog/ HTTP/1.1\r\n\r\n")
	roundTrip(t, "tcp", srv.Addr(), "GET /gone HTTP/1.1\r\n\r\n")

	out := logs.String()
	if !strings.Contains(out, " 200 blog/index.html 14") {
		t.Errorf("Expected 200 line in %q", out)
	}
	if !strings.Contains(out, " 404 gone/index.html ") {
		t.Errorf("Expected 404 line in %q", out)
	}
}

func TestServer_UnixSocket(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network = "unix"
	cfg.Address = filepath.Join(t.TempDir(), "httpd.sock")
	srv := startServer(t, cfg)

	resp := roundTrip(t, "unix", srv.Addr(), "GET / HTTP/1.1\r\n\r\n")
	if !strings.HasSuffix(resp, "<h1>home</h1>\n") {
		t.Errorf("Expected home page, got %q", resp)
	}
}

func testServerTransport(t *testing.T, kind transport.Kind) {
	// Probe for io_uring support on a throwaway pair
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	go func() {
		if c, err := net.Dial("tcp", probe.Addr().String()); err == nil {
			c.Close()
		}
	}()
	conn, err := probe.Accept()
	probe.Close()
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	tr, err := transport.Wrap(kind, conn)
	if httperrors.IsTransport(err, httperrors.TransportErrorIoUringInit) {
		t.Skipf("io_uring unavailable: %v", err)
	}
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	tr.Close()

	cfg := testConfig(t)
	cfg.Transport = kind
	srv := startServer(t, cfg)

	content, _ := os.ReadFile(filepath.Join(cfg.Root, "about.html"))
	resp := roundTrip(t, "tcp", srv.Addr(), "GET /about.html HTTP/1.1\r\n\r\n")
	if !strings.HasSuffix(resp, "\r\n\r\n"+string(content)) {
		t.Errorf("Expected file body over %s transport, got %d bytes", kind, len(resp))
	}
}

func TestServer_UringTransport(t *testing.T) {
	testServerTransport(t, transport.KindUring)
}

func TestServer_UringTransportV2(t *testing.T) {
	testServerTransport(t, transport.KindUringV2)
}

func TestServer_ServeBeforeListen(t *testing.T) {
	srv, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer srv.Close()

	if err := srv.Serve(context.Background()); err == nil {
		t.Error("Expected error when serving before Listen")
	}
}

func TestNew_MissingRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Root = filepath.Join(cfg.Root, "does-not-exist")

	_, err := New(cfg)
	if !httperrors.IsFile(err, httperrors.FileErrorAccess) {
		t.Errorf("Expected FileAccess error, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}

	mutations := map[string]func(*Config){
		"network":     func(c *Config) { c.Network = "udp" },
		"address":     func(c *Config) { c.Address = "" },
		"root":        func(c *Config) { c.Root = "" },
		"transport":   func(c *Config) { c.Transport = "epoll" },
		"request":     func(c *Config) { c.MaxRequestBytes = 0 },
		"connections": func(c *Config) { c.MaxConnections = 0 },
	}
	for name, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected invalid %s to be rejected", name)
		}
	}
}

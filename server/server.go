package server

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log"
	"net"
	"os"
	"sync"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/protocol"
	"github.com/nczempin/httpd-go-uring/transport"
)

// Server accepts connections and answers one request on each
type Server struct {
	cfg     Config
	logger  *log.Logger
	root    *os.Root
	handler *Handler

	listener  net.Listener
	closeOnce sync.Once
	sem       chan struct{}
	wg        sync.WaitGroup
}

// New opens the document root; call Listen and Serve to start accepting
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return nil, httperrors.NewFileError(httperrors.FileErrorAccess, "open document root "+cfg.Root, err)
	}

	return &Server{
		cfg:     cfg,
		logger:  cfg.logger(),
		root:    root,
		handler: NewHandler(root.FS()),
		sem:     make(chan struct{}, cfg.MaxConnections),
	}, nil
}

// Listen binds the configured address
func (s *Server) Listen() error {
	if s.cfg.Network == "unix" {
		// Remove a stale socket left by a previous run
		if info, err := os.Lstat(s.cfg.Address); err == nil && info.Mode()&fs.ModeSocket != 0 {
			os.Remove(s.cfg.Address)
		}
	}

	l, err := net.Listen(s.cfg.Network, s.cfg.Address)
	if err != nil {
		return httperrors.NewTransportError(
			httperrors.TransportErrorSocketListenFailure,
			"failed to listen on "+s.cfg.Address,
			err,
		)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Close is called, then
// waits for the connections in flight
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return httperrors.NewInvalidArgumentError("Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() { s.closeListener() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// A failed Accept does not stop the loop
			s.logger.Printf("accept: %v", err)
			continue
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			conn.Close()
			return nil
		}

		s.wg.Add(1)
		go func() {
			defer func() {
				<-s.sem
				s.wg.Done()
			}()
			s.serveConn(conn)
		}()
	}
}

// Close stops accepting and releases the document root
func (s *Server) Close() error {
	s.closeListener()
	return s.root.Close()
}

func (s *Server) closeListener() {
	s.closeOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
	})
}

// serveConn reads one request from conn, answers it and closes conn
func (s *Server) serveConn(conn net.Conn) {
	remote := "-"
	if addr := conn.RemoteAddr(); addr != nil && addr.String() != "" {
		remote = addr.String()
	}

	t, err := transport.Wrap(s.cfg.Transport, conn)
	if err != nil {
		s.logger.Printf("%s transport: %v", remote, err)
		return
	}
	defer func() {
		if err := t.Close(); err != nil {
			s.logger.Printf("%s close: %v", remote, err)
		}
	}()

	buf := make([]byte, s.cfg.MaxRequestBytes)
	n, err := readRequest(t, buf)
	if n == 0 {
		if err != nil {
			s.logger.Printf("%s read: %v", remote, err)
		}
		return
	}

	if n == len(buf) {
		// No room left for the request to be complete
		status := protocol.StatusContentTooLarge
		_, err := protocol.ErrorPage(status).Send(t)
		s.logResult(remote, Result{Status: status, Cause: httperrors.NewProtocolError(
			httperrors.ProtocolErrorRequestTooLarge, "request fills the whole buffer",
		)}, err)
		return
	}

	res, err := s.handler.ServeRequest(t, buf[:n])
	s.logResult(remote, res, err)
}

// readRequest fills buf until a line feed arrives, the peer stops sending,
// or buf is full. Only the request line matters, so nothing past the first
// line feed is waited for
func readRequest(t transport.Transport, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := t.Read(buf[n:])
		if m > 0 {
			if bytes.IndexByte(buf[n:n+m], '\n') >= 0 {
				return n + m, nil
			}
			n += m
		}
		if err != nil {
			if httperrors.IsTransport(err, httperrors.TransportErrorConnectionClosed) {
				return n, nil
			}
			return n, err
		}
	}
	return n, nil
}

func (s *Server) logResult(remote string, res Result, err error) {
	path := res.Path
	if path == "" {
		path = "-"
	}

	switch {
	case err != nil:
		s.logger.Printf("%s %d %s %d abandoned: %v", remote, res.Status.Code, path, res.BodyBytes, err)
	case res.Cause != nil:
		s.logger.Printf("%s %d %s %d (%v)", remote, res.Status.Code, path, res.BodyBytes, res.Cause)
	default:
		s.logger.Printf("%s %d %s %d", remote, res.Status.Code, path, res.BodyBytes)
	}
}

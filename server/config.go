package server

import (
	"io"
	"log"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/transport"
)

const (
	DefaultAddress         = ":8080"
	DefaultMaxRequestBytes = 32768
	DefaultMaxConnections  = 10
)

// Config holds the listener and document root settings
type Config struct {
	// Network is "tcp" or "unix"
	Network string
	// Address is host:port for tcp or a socket path for unix
	Address string
	// Root is the document root directory
	Root string
	// Transport selects how accepted connections are driven
	Transport transport.Kind
	// MaxRequestBytes is the size of the per-connection request buffer
	// A request that fills it is answered with 413
	MaxRequestBytes int
	// MaxConnections caps the number of connections served at once
	MaxConnections int
	// Logger receives one line per connection; nil discards
	Logger *log.Logger
}

// DefaultConfig returns a configuration serving the working directory on :8080
func DefaultConfig() Config {
	return Config{
		Network:         "tcp",
		Address:         DefaultAddress,
		Root:            ".",
		Transport:       transport.KindNet,
		MaxRequestBytes: DefaultMaxRequestBytes,
		MaxConnections:  DefaultMaxConnections,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Network != "tcp" && c.Network != "unix" {
		return httperrors.NewInvalidArgumentError("network must be tcp or unix, got " + c.Network)
	}
	if c.Address == "" {
		return httperrors.NewInvalidArgumentError("address must not be empty")
	}
	if c.Root == "" {
		return httperrors.NewInvalidArgumentError("root must not be empty")
	}
	if _, err := transport.ParseKind(string(c.Transport)); err != nil {
		return err
	}
	if c.MaxRequestBytes < 16 {
		return httperrors.NewInvalidArgumentError("max request bytes must be at least 16")
	}
	if c.MaxConnections < 1 {
		return httperrors.NewInvalidArgumentError("max connections must be at least 1")
	}
	return nil
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return c.Logger
}

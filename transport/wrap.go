package transport

import (
	"net"
	"os"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
)

// Kind selects the implementation used for accepted connections
type Kind string

const (
	KindNet     Kind = "net"
	KindUring   Kind = "uring"
	KindUringV2 Kind = "uring-v2"
)

// ParseKind validates a transport name
func ParseKind(name string) (Kind, error) {
	switch k := Kind(name); k {
	case KindNet, KindUring, KindUringV2:
		return k, nil
	default:
		return "", httperrors.NewInvalidArgumentError("unknown transport " + name)
	}
}

// fileConn is satisfied by *net.TCPConn and *net.UnixConn
type fileConn interface {
	File() (*os.File, error)
}

// Wrap turns an accepted connection into a Transport of the given kind
// The ring transports work on a duplicate of the socket descriptor and close conn
func Wrap(kind Kind, conn net.Conn) (Transport, error) {
	if kind == KindNet || kind == "" {
		return NewConnTransport(conn), nil
	}

	fc, ok := conn.(fileConn)
	if !ok {
		conn.Close()
		return nil, httperrors.NewInvalidArgumentError("connection does not expose a file descriptor")
	}

	file, err := fc.File()
	conn.Close()
	if err != nil {
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorSocketAcceptFailure,
			"failed to duplicate socket descriptor",
			err,
		)
	}

	switch kind {
	case KindUring:
		t, err := NewUringTransport(file)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindUringV2:
		t, err := NewUringTransportV2(file)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		file.Close()
		return nil, httperrors.NewInvalidArgumentError("unknown transport " + string(kind))
	}
}

package client

import (
	"strings"

	httperrors "github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/protocol"
	"github.com/nczempin/httpd-go-uring/transport"
)

// HttpClient fetches single documents from a one-request-per-connection server
type HttpClient struct {
	network string
	addr    string
	host    string
}

// NewHttpClient creates a client for the server at addr
func NewHttpClient(network, addr string) *HttpClient {
	host := addr
	if network == "unix" {
		host = "localhost"
	}
	return &HttpClient{
		network: network,
		addr:    addr,
		host:    host,
	}
}

// Get requests path on a fresh connection and returns the copied response
// The server closes after every response, so each call dials again
func (c *HttpClient) Get(path string) (*protocol.HttpResponse, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	trans, err := transport.Dial(c.network, c.addr)
	if err != nil {
		return nil, err
	}
	proto := protocol.NewHttp1Protocol(trans)
	defer proto.Close()

	return proto.PerformGet(path, []protocol.HttpHeader{
		{Key: "Host", Value: c.host},
		{Key: "Connection", Value: "close"},
	})
}

// validatePath checks that path can travel as a request target
func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return httperrors.NewInvalidArgumentError("path must start with /")
	}
	if strings.ContainsAny(path, " \r\n") {
		return httperrors.NewInvalidArgumentError("path must not contain spaces or line breaks")
	}
	return nil
}

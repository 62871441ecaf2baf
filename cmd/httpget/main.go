package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nczempin/httpd-go-uring/client"
	httperrors "github.com/nczempin/httpd-go-uring/errors"
)

func main() {
	network := flag.String("network", "tcp", "server network: tcp or unix")
	addr := flag.String("addr", "127.0.0.1:8080", "server address or unix socket path")
	path := flag.String("path", "/", "request target")
	quiet := flag.Bool("q", false, "print the status line only")
	flag.Parse()

	resp, err := client.NewHttpClient(*network, *addr).Get(*path)
	if err != nil && !httperrors.IsProtocol(err, httperrors.ProtocolErrorIncompleteResponse) {
		fmt.Fprintf(os.Stderr, "httpget: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%d %s\n", resp.StatusCode, resp.StatusMessage)
	if !*quiet {
		for _, h := range resp.Headers {
			fmt.Fprintf(os.Stderr, "%s: %s\n", h.Key, h.Value)
		}
		os.Stdout.Write(resp.Body)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "httpget: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		os.Exit(2)
	}
}

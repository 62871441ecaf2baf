package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nczempin/httpd-go-uring/server"
	"github.com/nczempin/httpd-go-uring/transport"
)

func main() {
	cfg := server.DefaultConfig()
	var kind string

	flag.StringVar(&cfg.Network, "network", cfg.Network, "listener network: tcp or unix")
	flag.StringVar(&cfg.Address, "addr", cfg.Address, "listen address or unix socket path")
	flag.StringVar(&cfg.Root, "root", cfg.Root, "document root")
	flag.StringVar(&kind, "transport", string(cfg.Transport), "connection transport: net, uring or uring-v2")
	flag.IntVar(&cfg.MaxRequestBytes, "max-request-bytes", cfg.MaxRequestBytes, "request buffer size; a full buffer is answered with 413")
	flag.IntVar(&cfg.MaxConnections, "max-conns", cfg.MaxConnections, "connections served at once")
	flag.Parse()

	logger := log.New(os.Stderr, "httpd: ", log.LstdFlags)
	cfg.Logger = logger

	k, err := transport.ParseKind(kind)
	if err != nil {
		logger.Fatal(err)
	}
	cfg.Transport = k

	srv, err := server.New(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	defer srv.Close()

	if err := srv.Listen(); err != nil {
		logger.Fatal(err)
	}
	logger.Printf("Listening on %s (%s transport, root %s)", srv.Addr(), cfg.Transport, cfg.Root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		logger.Print(err)
	}
	logger.Print("shut down")
}

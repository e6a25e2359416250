package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/logging"
	"github.com/iluksbr/reliudp/internal/server"
	"github.com/iluksbr/reliudp/internal/storage"
)

func main() {
	cfg, err := config.ParseServerArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "start-server:", err)
		os.Exit(-1)
	}
	log := logging.New(cfg.Verbosity)

	if err := storage.EnsureDir(cfg.StorageDir); err != nil {
		log.WithError(err).Error("start-server: preparing storage directory")
		os.Exit(1)
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		log.WithError(err).Error("start-server: binding socket")
		os.Exit(1)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("addr", srv.Addr()).Info("start-server: listening")
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("start-server: exited")
		os.Exit(1)
	}
}

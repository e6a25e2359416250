package main

import (
	"fmt"
	"os"

	"github.com/iluksbr/reliudp/internal/client"
	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/engine"
	"github.com/iluksbr/reliudp/internal/logging"
)

func main() {
	cfg, err := config.ParseDownloadArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "download:", err)
		os.Exit(-1)
	}
	log := logging.New(cfg.Verbosity)

	if err := client.Download(cfg, log); err != nil {
		log.WithError(err).Error("download failed")
		if err == engine.ErrAborted {
			os.Exit(-1)
		}
		os.Exit(1)
	}
}

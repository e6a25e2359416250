package client

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/digest"
	"github.com/iluksbr/reliudp/internal/engine"
	"github.com/iluksbr/reliudp/internal/progress"
	"github.com/iluksbr/reliudp/internal/storage"
)

// Upload runs one upload from the local filesystem to the server named
// in cfg, reporting progress unless cfg.Verbosity is quiet. It returns
// a non-nil error for the caller to map to an exit code.
func Upload(cfg config.Upload, log *logrus.Logger) error {
	path := filepath.Join(cfg.SrcDir, cfg.Name)
	reader, err := storage.OpenReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	localMD5, err := digest.HashFile(path)
	if err != nil {
		return err
	}

	driver, err := Dial(cfg.Common, log, engine.RoleSender)
	if err != nil {
		return err
	}
	defer driver.Close()

	base, stop := signal.NotifyContext(context.Background(), syscall.SIGINT)
	defer stop()
	ctx, cancel := context.WithCancel(base)
	defer cancel()
	go driver.Pump(ctx, cancel)

	sess := driver.Session(ctx)
	reporter := progress.New(sess.Log, reader.Size(), cfg.Verbosity == config.VerbosityQuiet)
	sess.Progress = reporter.Update

	strategy := engine.StrategySaW
	if cfg.Strategy == config.StrategySR {
		strategy = engine.StrategySR
	}
	ok, err := engine.RunUploadSender(sess, strategy, cfg.Name, reader, localMD5)
	if err != nil {
		if code, has := sess.LastErrorCode(); has {
			sess.Log.WithField("code", code).Error("upload rejected by server")
		}
		return err
	}
	reporter.Done(reader.Size(), ok)
	if !ok {
		return engine.ErrIntegrity
	}
	return nil
}

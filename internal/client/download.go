package client

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/engine"
	"github.com/iluksbr/reliudp/internal/progress"
	"github.com/iluksbr/reliudp/internal/storage"
	"github.com/iluksbr/reliudp/internal/timer"
	"github.com/iluksbr/reliudp/internal/wire"
)

// Download runs one download of cfg.Name from the server named in cfg
// into cfg.DstDir. The local file is created only after ACK_DOWNLOAD
// arrives, so a missing remote file leaves nothing behind; on a failed
// transfer, a failed integrity check, or a user interrupt after that
// point, the partial local file is unlinked before returning the error.
func Download(cfg config.Download, log *logrus.Logger) error {
	driver, err := Dial(cfg.Common, log, engine.RoleReceiver)
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
	size, err := waitAckDownload(sess, wire.NewDownload(cfg.Name))
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.DstDir, cfg.Name)
	if err := storage.EnsureDir(cfg.DstDir); err != nil {
		return err
	}
	writer, err := storage.CreateWriter(path, config.FlushThreshold)
	if err != nil {
		return err
	}

	reporter := progress.New(sess.Log, size, cfg.Verbosity == config.VerbosityQuiet)
	sess.Progress = reporter.Update
	strategy := engine.StrategySaW
	if cfg.Strategy == config.StrategySR {
		strategy = engine.StrategySR
	}
	err = engine.RunDownloadReceiver(sess, strategy, writer, size)
	if err != nil {
		storage.Unlink(path)
		return err
	}
	reporter.Done(size, true)
	return nil
}

// waitAckDownload sends the DOWNLOAD request and retransmits it on the
// one-second deadline until ACK_DOWNLOAD or ERROR arrives, mirroring
// Handshake's retry shape even though DOWNLOAD/ACK_DOWNLOAD is a
// one-shot exchange rather than a shared Handshake call (the client,
// not the server, is this transfer's receiver, so there is no
// firstDataSeq proof-of-ack case to watch for). Once ACK_DOWNLOAD
// arrives, an explicit ACK(0) is sent back so the server's own
// Handshake-driven retry of ACK_DOWNLOAD can terminate instead of
// retransmitting it for the rest of the session.
func waitAckDownload(s *engine.Session, request wire.Message) (int64, error) {
	dl := timer.New()
	if err := s.Send(request); err != nil {
		return 0, err
	}
	for {
		if s.Stopped() {
			return 0, engine.ErrAborted
		}
		if dl.IsTimeout() {
			if err := s.Send(request); err != nil {
				return 0, err
			}
			dl.Reset()
		}
		msg, ok := s.Recv()
		if !ok {
			time.Sleep(config.MailboxPollSleep)
			continue
		}
		switch msg.Type {
		case wire.AckDownload:
			size, err := wire.ParseAckDownload(msg)
			if err != nil {
				return 0, err
			}
			if err := s.Send(wire.NewAck(0)); err != nil {
				return 0, err
			}
			return size, nil
		case wire.Error:
			code, _ := wire.ParseError(msg)
			s.Log.WithField("code", code).Error("download rejected by server")
			return 0, engine.ErrPeerError
		}
	}
}

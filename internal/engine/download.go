package engine

import (
	"github.com/iluksbr/reliudp/internal/digest"
	"github.com/iluksbr/reliudp/internal/storage"
	"github.com/iluksbr/reliudp/internal/wire"
)

// RunDownloadSender drives the server side of a download: having
// already opened the requested file and replied ACK_DOWNLOAD with its
// size, push the bytes under the chosen ARQ strategy, then run
// sender-driven teardown with an END that carries the source file's
// MD5 so the client can verify what it wrote.
func RunDownloadSender(s *Session, strategy StrategyKind, reader storage.Reader, sourceMD5 string) error {
	switch strategy {
	case StrategySaW:
		if err := RunSaWSenderData(s, reader); err != nil {
			return err
		}
	case StrategySR:
		if err := RunSRSenderData(s, reader); err != nil {
			return err
		}
	}
	return EndSend(s, wire.NewEndWithDigest(sourceMD5))
}

// RunDownloadReceiver drives the client side of a download: having
// already sent DOWNLOAD and received ACK_DOWNLOAD(size), run the
// transfer loop, then receiver-driven teardown, and verify the written
// file's digest against the one the server embedded in END. On mismatch
// the caller is expected to unlink the partial file.
func RunDownloadReceiver(s *Session, strategy StrategyKind, writer storage.Writer, fileSize int64) error {
	var result RecvResult
	var err error
	switch strategy {
	case StrategySaW:
		result, err = RunSaWReceiver(s, writer)
	case StrategySR:
		result, err = RunSRReceiver(s, writer, fileSize)
	}
	if err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	if err := EndRecv(s, result.EndSeq); err != nil {
		return err
	}
	localMD5, err := digest.HashFile(writer.Path())
	if err != nil {
		return err
	}
	remoteMD5 := string(result.EndMsg.Payload)
	if remoteMD5 != "" && remoteMD5 != localMD5 {
		return ErrIntegrity
	}
	return nil
}

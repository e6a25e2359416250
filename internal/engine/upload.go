package engine

import (
	"time"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/digest"
	"github.com/iluksbr/reliudp/internal/storage"
	"github.com/iluksbr/reliudp/internal/timer"
	"github.com/iluksbr/reliudp/internal/wire"
)

// RunUploadSender drives the client side of an upload: announce the
// file with an UPLOAD request, push its bytes under the chosen ARQ
// strategy, then run sender-driven teardown. The closing ACK's sequence
// number carries the integrity verdict (0 = match, 1 = mismatch) the
// server computed after hashing what it wrote.
func RunUploadSender(s *Session, strategy StrategyKind, name string, reader storage.Reader, localMD5 string) (ok bool, err error) {
	initial := wire.NewUpload(reader.Size(), name, localMD5)
	switch strategy {
	case StrategySaW:
		if err := RunSaWSender(s, initial, reader); err != nil {
			return false, err
		}
	case StrategySR:
		if err := RunSRSender(s, initial, reader); err != nil {
			return false, err
		}
	}
	if err := EndSend(s, wire.NewEnd()); err != nil {
		return false, err
	}
	final, found := waitFinalAck(s)
	if !found {
		return false, ErrAborted
	}
	return final.Seq == 0, nil
}

// RunUploadReceiver drives the server side of an upload: having already
// parsed the UPLOAD request and opened a Writer, run the transfer loop,
// hash the written file, run the receiver-driven teardown, and then
// signal the integrity verdict in the closing ACK's sequence number,
// unlinking the file on a mismatch.
func RunUploadReceiver(s *Session, strategy StrategyKind, writer storage.Writer, fileSize int64, clientMD5 string) error {
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
	serverMD5, err := digest.HashFile(writer.Path())
	if err != nil {
		return err
	}
	if err := EndRecv(s, result.EndSeq); err != nil {
		return err
	}
	if serverMD5 == clientMD5 {
		return s.Send(wire.NewAck(0))
	}
	if err := storage.Unlink(writer.Path()); err != nil {
		s.Log.WithError(err).Warn("engine: unlinking corrupted upload")
	}
	return s.Send(wire.NewAck(1))
}

// waitFinalAck waits, for up to one retransmit interval past the
// teardown exchange EndSend already completed, for the closing ACK
// carrying the integrity verdict. The server sends it once its own
// EndRecv returns, which normally happens as soon as the ACK that
// EndSend replied with reaches it.
func waitFinalAck(s *Session) (wire.Message, bool) {
	dl := timer.New()
	for !dl.IsTimeout() {
		if s.Stopped() {
			return wire.Message{}, false
		}
		msg, ok := s.Recv()
		if !ok {
			time.Sleep(config.MailboxPollSleep)
			continue
		}
		if msg.Type == wire.Ack {
			return msg, true
		}
	}
	return wire.Message{}, false
}

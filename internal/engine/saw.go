// Stop-and-Wait: one outstanding DATA packet at a time, 1-based
// sequence numbering (seq 0 is reserved for the handshake ACK).
package engine

import (
	"io"
	"time"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/storage"
	"github.com/iluksbr/reliudp/internal/timer"
	"github.com/iluksbr/reliudp/internal/wire"
)

// RunSaWSender drives the Stop-and-Wait sender side of an upload:
// handshake on `initial`, then the data-transfer loop. Teardown is the
// caller's job (the END payload differs between upload and download
// senders).
func RunSaWSender(s *Session, initial wire.Message, reader storage.Reader) error {
	if err := Handshake(s, initial, 1); err != nil {
		return err
	}
	return RunSaWSenderData(s, reader)
}

// RunSaWSenderData sends DATA(1..N) one at a time, each retransmitted
// until its matching ACK arrives, with no handshake of its own — a
// download sender's handshake is the DOWNLOAD/ACK_DOWNLOAD exchange the
// caller already ran before this is invoked.
func RunSaWSenderData(s *Session, reader storage.Reader) error {
	size := reader.Size()
	total := packetCount(size)
	buf := make([]byte, config.DataMaxSize)
	var sent int64
	for seq := uint32(1); seq <= uint32(total); seq++ {
		off := int64(seq-1) * config.DataMaxSize
		n, err := reader.ReadAt(buf, off)
		if err != nil && err != io.EOF {
			return err
		}
		chunk := append([]byte(nil), buf[:n]...)
		if err := sawSendAndWaitAck(s, seq, chunk); err != nil {
			return err
		}
		sent += int64(n)
		s.reportProgress(sent)
	}
	return nil
}

// packetCount returns the number of DATA packets a file of this size
// splits into: always at least one, even for an empty file, so the
// transfer has a final packet to carry EOF.
func packetCount(size int64) int64 {
	return size/config.DataMaxSize + 1
}

func sawSendAndWaitAck(s *Session, seq uint32, chunk []byte) error {
	msg := wire.NewData(seq, chunk)
	dl := timer.New()
	if err := s.Send(msg); err != nil {
		return err
	}
	for {
		if s.Stopped() {
			return ErrAborted
		}
		if dl.IsTimeout() {
			if err := s.Send(msg); err != nil {
				return err
			}
			dl.Reset()
		}
		reply, ok := s.Recv()
		if !ok {
			time.Sleep(config.MailboxPollSleep)
			continue
		}
		switch reply.Type {
		case wire.Ack:
			if reply.Seq == seq {
				return nil
			}
		case wire.Error:
			s.recordPeerError(reply)
			return ErrPeerError
		}
	}
}

// RunSaWReceiver drives the Stop-and-Wait receiver side: expects
// DATA(1), DATA(2), ... strictly in order, acking each and writing it
// to disk; a duplicate (seq <= last_received) gets its ACK resent
// without being rewritten; anything ahead of last_received+1 is
// dropped, since Stop-and-Wait never buffers out-of-order data. A
// straggler UPLOAD or ACK_DOWNLOAD arriving here (the handshake already
// completed, but the peer's own Handshake retry is still running) gets
// re-acked too, so that retry can terminate. Returns once an END
// arrives, for the caller to verify and close.
func RunSaWReceiver(s *Session, writer storage.Writer) (RecvResult, error) {
	lastReceived := uint32(0)
	var written int64
	for {
		if s.Stopped() {
			return RecvResult{}, ErrAborted
		}
		msg, ok := s.Recv()
		if !ok {
			time.Sleep(config.MailboxPollSleep)
			continue
		}
		switch msg.Type {
		case wire.Data:
			switch {
			case msg.Seq == lastReceived+1:
				if _, err := writer.Write(msg.Payload); err != nil {
					return RecvResult{}, err
				}
				written += int64(len(msg.Payload))
				s.reportProgress(written)
				lastReceived = msg.Seq
				if err := s.Send(wire.NewAck(msg.Seq)); err != nil {
					return RecvResult{}, err
				}
			case msg.Seq <= lastReceived:
				if err := s.Send(wire.NewAck(msg.Seq)); err != nil {
					return RecvResult{}, err
				}
			}
		case wire.Upload, wire.AckDownload:
			// A straggler init request/reply: the peer never saw our
			// handshake confirmation and is retrying, or the peer's own
			// handshake retry is still running. Re-sending ACK(0) lets
			// it terminate without this receiver loop changing state.
			if err := s.Send(wire.NewAck(0)); err != nil {
				return RecvResult{}, err
			}
		case wire.End:
			return RecvResult{EndSeq: msg.Seq, EndMsg: msg}, nil
		case wire.Error:
			s.recordPeerError(msg)
			return RecvResult{}, ErrPeerError
		}
	}
}

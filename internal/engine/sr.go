// Selective Repeat: a sliding window of outstanding DATA packets, each
// with its own retransmit deadline, 0-based sequence numbering. Unlike
// Stop-and-Wait, the receiver may buffer packets that arrive ahead of
// the next expected one, acking each individually so the sender only
// ever has to resend what was actually lost.
package engine

import (
	"io"
	"time"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/storage"
	"github.com/iluksbr/reliudp/internal/timer"
	"github.com/iluksbr/reliudp/internal/wire"
)

// srOutstanding tracks one in-flight DATA packet on the sender side.
type srOutstanding struct {
	msg     wire.Message
	acked   bool
	dl      timer.Deadline
	started bool
}

// senderWindowTop returns how many packets beyond windowBase the sender
// may have outstanding at once. The sender deliberately runs a narrower
// window than the receiver (N/4 vs N/2): a slow consumer downstream of
// the receiver's buffering is the more common failure mode in practice,
// so the sender is kept conservative while the receiver is given more
// room to reorder.
func senderWindowTop(total int64) int64 {
	top := total / 4
	if top < 1 {
		top = 1
	}
	return top
}

// receiverWindowTop returns how many packets beyond windowBase the
// receiver is willing to buffer out of order.
func receiverWindowTop(total int64) int64 {
	top := total / 2
	if top < 1 {
		top = 1
	}
	return top
}

// RunSRSender drives the Selective Repeat sender side of an upload:
// handshake on `initial`, then the data-transfer loop.
func RunSRSender(s *Session, initial wire.Message, reader storage.Reader) error {
	if err := Handshake(s, initial, 0); err != nil {
		return err
	}
	return RunSRSenderData(s, reader)
}

// RunSRSenderData keeps a window of outstanding DATA packets, each
// independently retransmitted on its own 1-second deadline, sliding the
// window forward as ACKs arrive out of order, with no handshake of its
// own — a download sender's handshake is the DOWNLOAD/ACK_DOWNLOAD
// exchange the caller already ran before this is invoked.
func RunSRSenderData(s *Session, reader storage.Reader) error {
	size := reader.Size()
	total := packetCount(size)
	windowTop := senderWindowTop(total)

	packets := make([]srOutstanding, total)
	buf := make([]byte, config.DataMaxSize)
	for seq := int64(0); seq < total; seq++ {
		off := seq * config.DataMaxSize
		n, err := reader.ReadAt(buf, off)
		if err != nil && err != io.EOF {
			return err
		}
		chunk := append([]byte(nil), buf[:n]...)
		packets[seq].msg = wire.NewData(uint32(seq), chunk)
	}

	windowBase := int64(0)
	acked := int64(0)
	var sentBytes int64
	sendWindow := func() error {
		limit := windowBase + windowTop
		if limit > total {
			limit = total
		}
		for i := windowBase; i < limit; i++ {
			p := &packets[i]
			if p.acked {
				continue
			}
			if !p.started {
				if err := s.Send(p.msg); err != nil {
					return err
				}
				p.dl = timer.New()
				p.started = true
				sentBytes += int64(len(p.msg.Payload))
				s.reportProgress(sentBytes)
			} else if p.dl.IsTimeout() {
				if err := s.Send(p.msg); err != nil {
					return err
				}
				p.dl.Reset()
			}
		}
		return nil
	}

	for acked < total {
		if s.Stopped() {
			return ErrAborted
		}
		if err := sendWindow(); err != nil {
			return err
		}
		msg, ok := s.Recv()
		if !ok {
			time.Sleep(config.MailboxPollSleep)
			continue
		}
		switch msg.Type {
		case wire.Ack:
			idx := int64(msg.Seq)
			if idx >= windowBase && idx < total && !packets[idx].acked {
				packets[idx].acked = true
				acked++
			}
			for windowBase < total && packets[windowBase].acked {
				windowBase++
			}
		case wire.Error:
			s.recordPeerError(msg)
			return ErrPeerError
		}
	}
	return nil
}

// srReceived tracks one buffered-but-unwritten DATA packet on the
// receiver side.
type srReceived struct {
	has     bool
	payload []byte
}

// RunSRReceiver drives the Selective Repeat receiver side: buffer DATA
// packets within [windowBase, windowBase+windowTop), ack each on
// arrival (even duplicates, so a sender whose ACK was lost still sees
// one), and write to storage in order as windowBase's slot fills,
// advancing the window as far as the contiguous prefix allows. A
// straggler UPLOAD or ACK_DOWNLOAD arriving here (the handshake already
// completed, but the peer's own Handshake retry is still running) gets
// re-acked too, so that retry can terminate.
func RunSRReceiver(s *Session, writer storage.Writer, fileSize int64) (RecvResult, error) {
	total := packetCount(fileSize)
	windowTop := receiverWindowTop(total)
	buf := make([]srReceived, total)
	windowBase := int64(0)
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
			idx := int64(msg.Seq)
			switch {
			case idx < windowBase:
				// Already delivered; the sender's ACK was likely lost.
				if err := s.Send(wire.NewAck(msg.Seq)); err != nil {
					return RecvResult{}, err
				}
			case idx < windowBase+windowTop && idx < total:
				if !buf[idx].has {
					buf[idx] = srReceived{has: true, payload: append([]byte(nil), msg.Payload...)}
				}
				if err := s.Send(wire.NewAck(msg.Seq)); err != nil {
					return RecvResult{}, err
				}
				for windowBase < total && buf[windowBase].has {
					if _, err := writer.Write(buf[windowBase].payload); err != nil {
						return RecvResult{}, err
					}
					written += int64(len(buf[windowBase].payload))
					s.reportProgress(written)
					buf[windowBase].payload = nil
					windowBase++
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
			_ = s.Send(wire.NewAck(msg.Seq)) // best-effort per the receiver's ERROR contract
			return RecvResult{}, ErrPeerError
		}
	}
}

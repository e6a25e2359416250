package engine

import (
	"time"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/timer"
	"github.com/iluksbr/reliudp/internal/wire"
)

// Handshake runs the retransmit-until-confirmed side of the common init
// exchange, shared by both ARQ strategies and by both peers: send
// `initial` (the upload client's UPLOAD, the server's ACK(0) reply to
// it, or the server's ACK_DOWNLOAD reply to a DOWNLOAD), retransmit on
// the one-second deadline, until the peer replies with ACK(0) or sends
// an unsolicited DATA at firstDataSeq — proof it already received our
// side of the exchange during an earlier, lost-in-the-other-direction
// round. firstDataSeq is 1 for Stop-and-Wait (1-based numbering) and 0
// for Selective Repeat (0-based numbering); it is meaningless (and
// never matched) when `initial` is ACK_DOWNLOAD, since no DATA ever
// flows from a download client back to the server.
//
// A duplicate copy of the request that triggered `initial` (a
// straggler UPLOAD/DOWNLOAD the demultiplexer routed into this
// session's mailbox after the real one already got a reply) is not
// specially matched by the switch below; it is simply drained from the
// mailbox and discarded, since the loop's own deadline already
// guarantees `initial` gets retransmitted regardless of whether such a
// straggler ever shows up.
func Handshake(s *Session, initial wire.Message, firstDataSeq uint32) error {
	dl := timer.New()
	if err := s.Send(initial); err != nil {
		return err
	}
	for {
		if s.Stopped() {
			return ErrAborted
		}
		if dl.IsTimeout() {
			if err := s.Send(initial); err != nil {
				return err
			}
			dl.Reset()
		}
		msg, ok := s.Recv()
		if !ok {
			time.Sleep(config.MailboxPollSleep)
			continue
		}
		switch {
		case msg.Type == wire.Ack && msg.Seq == 0:
			return nil
		case msg.Type == wire.Data && msg.Seq == firstDataSeq:
			// Put it back so the transfer loop sees it as the first
			// DATA packet instead of silently consuming it here.
			s.Inbox.Push(msg)
			return nil
		case msg.Type == wire.Error:
			s.recordPeerError(msg)
			return ErrPeerError
		}
	}
}

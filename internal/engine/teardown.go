package engine

import (
	"time"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/timer"
	"github.com/iluksbr/reliudp/internal/wire"
)

// EndSend runs the sender-driven half of teardown: transmit `end`
// (END, optionally carrying a digest for downloads), retransmit on
// timeout, and on ACK_END reply ACK(seq_of_ack_end) to guard against
// the receiver's ACK_END being lost — the receiver will retransmit it
// on its own timeout if our reply never arrives.
func EndSend(s *Session, end wire.Message) error {
	dl := timer.New()
	if err := s.Send(end); err != nil {
		return err
	}
	for {
		if s.Stopped() {
			return ErrAborted
		}
		if dl.IsTimeout() {
			if err := s.Send(end); err != nil {
				return err
			}
			dl.Reset()
		}
		msg, ok := s.Recv()
		if !ok {
			time.Sleep(config.MailboxPollSleep)
			continue
		}
		switch msg.Type {
		case wire.AckEnd:
			return s.Send(wire.NewAck(msg.Seq))
		case wire.Error:
			s.recordPeerError(msg)
			return ErrPeerError
		}
	}
}

// quietPeriod is how long EndRecv waits without another END before
// assuming the sender saw our ACK_END and deciding teardown is done.
const quietPeriod = 2 * timer.RetransmitInterval

// EndRecv runs the receiver-driven half of teardown: having just
// observed END at endSeq, reply ACK_END, keep replying to further ENDs
// (the sender may not have seen our ACK_END yet), and exit on a quiet
// period or an explicit ACK.
func EndRecv(s *Session, endSeq uint32) error {
	ackEnd := wire.NewAckEnd(endSeq)
	dl := timer.New()
	if err := s.Send(ackEnd); err != nil {
		return err
	}
	quietSince := time.Now()
	for {
		if s.Stopped() {
			return ErrAborted
		}
		if dl.IsTimeout() {
			if err := s.Send(ackEnd); err != nil {
				return err
			}
			dl.Reset()
		}
		msg, ok := s.Recv()
		if !ok {
			if time.Since(quietSince) > quietPeriod {
				return nil
			}
			time.Sleep(config.MailboxPollSleep)
			continue
		}
		quietSince = time.Now()
		switch msg.Type {
		case wire.End:
			ackEnd = wire.NewAckEnd(msg.Seq)
			if err := s.Send(ackEnd); err != nil {
				return err
			}
			dl.Reset()
		case wire.Ack:
			return nil
		}
	}
}

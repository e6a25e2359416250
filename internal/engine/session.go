// Package engine implements the reliable-transfer state machines: the
// Stop-and-Wait and Selective Repeat sender/receiver loops and the
// shared handshake/teardown layer between them. It knows nothing about
// sockets or the filesystem directly — it talks to a Transport and a
// storage.Reader/Writer, and is driven as a single-threaded loop fed by
// messages popped from a mailbox.Mailbox.
package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iluksbr/reliudp/internal/faultinjector"
	"github.com/iluksbr/reliudp/internal/mailbox"
	"github.com/iluksbr/reliudp/internal/wire"
)

// Transport sends one framed message to the session's fixed peer.
type Transport interface {
	Send(msg wire.Message) error
}

// Session bundles what every engine loop needs: where to send, where to
// receive from, how to log, and how to know it's time to stop.
type Session struct {
	Ctx      context.Context
	Conn     Transport
	Inbox    *mailbox.Mailbox[wire.Message]
	Log      *logrus.Entry
	Faults   *faultinjector.Policy // nil or rate<=0 disables the injector
	Progress func(bytesDone int64) // nil disables progress reporting

	lastErrorCode    wire.ErrorCode
	lastErrorCodeSet bool
}

// recordPeerError remembers the code carried by a received ERROR
// message, so callers that only get ErrPeerError back from a loop can
// still report which validation failed.
func (s *Session) recordPeerError(msg wire.Message) {
	if code, err := wire.ParseError(msg); err == nil {
		s.lastErrorCode = code
		s.lastErrorCodeSet = true
	}
}

// LastErrorCode returns the most recent ERROR code this session
// observed from its peer, if any.
func (s *Session) LastErrorCode() (wire.ErrorCode, bool) {
	return s.lastErrorCode, s.lastErrorCodeSet
}

// Stopped reports whether the session's context has been cancelled.
func (s *Session) Stopped() bool {
	select {
	case <-s.Ctx.Done():
		return true
	default:
		return false
	}
}

// Recv is a non-blocking pop from the session's mailbox.
func (s *Session) Recv() (wire.Message, bool) { return s.Inbox.TryPop() }

// reportProgress forwards cumulative bytes moved to the optional
// progress reporter, a no-op when none is attached.
func (s *Session) reportProgress(bytesDone int64) {
	if s.Progress != nil {
		s.Progress(bytesDone)
	}
}

// Send applies the fault injector to outbound DATA packets before
// handing the message to the transport.
func (s *Session) Send(msg wire.Message) error {
	if s.Faults != nil && msg.Type == wire.Data && s.Faults.ShouldDrop(msg.Seq) {
		s.Log.WithField("seq", msg.Seq).Debug("faultinjector: dropped outbound DATA")
		return nil
	}
	return s.Conn.Send(msg)
}

// StrategyKind selects which ARQ state machine a transfer runs.
type StrategyKind int

const (
	StrategySaW StrategyKind = iota
	StrategySR
)

func (k StrategyKind) String() string {
	if k == StrategySR {
		return "udp_sr"
	}
	return "udp_saw"
}

// Role distinguishes which side of a transfer a session plays.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

func (r Role) String() string {
	if r == RoleSender {
		return "sender"
	}
	return "receiver"
}

// Errors returned by the engine's loops; cmd/* maps these to exit codes.
var (
	ErrPeerError = errors.New("engine: peer reported an error")
	ErrAborted   = errors.New("engine: session aborted")
	ErrIntegrity = errors.New("engine: integrity digest mismatch")
)

// RecvResult is what the data-transfer phase of either strategy's
// receiver hands back once it observes END, for the caller to run
// digest verification and the receiver-driven half of teardown.
type RecvResult struct {
	EndSeq uint32
	EndMsg wire.Message
}

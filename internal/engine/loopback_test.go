package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iluksbr/reliudp/internal/mailbox"
	"github.com/iluksbr/reliudp/internal/wire"
)

// pipe delivers every Send directly into the peer's mailbox, optionally
// dropping a fraction of DATA packets to exercise retransmission.
type pipe struct {
	peer    *mailbox.Mailbox[wire.Message]
	rng     *rand.Rand
	dropPct float64
}

func (p *pipe) Send(msg wire.Message) error {
	if p.dropPct > 0 && msg.Type == wire.Data && p.rng.Float64() < p.dropPct {
		return nil
	}
	p.peer.Push(msg)
	return nil
}

func newTestSession(ctx context.Context, peer *mailbox.Mailbox[wire.Message], dropPct float64) (*Session, *mailbox.Mailbox[wire.Message]) {
	inbox := mailbox.New[wire.Message](mailbox.DefaultCapacity)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	sess := &Session{
		Ctx:   ctx,
		Conn:  &pipe{peer: peer, rng: rand.New(rand.NewSource(1)), dropPct: dropPct},
		Inbox: inbox,
		Log:   log.WithField("test", true),
	}
	return sess, inbox
}

type memReader struct {
	data []byte
}

func (r *memReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, nil
	}
	n := copy(p, r.data[off:])
	return n, nil
}
func (r *memReader) Close() error { return nil }
func (r *memReader) Size() int64  { return int64(len(r.data)) }

type memWriter struct {
	data []byte
}

func (w *memWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}
func (w *memWriter) Flush() error { return nil }
func (w *memWriter) Close() error { return nil }
func (w *memWriter) Path() string { return "mem" }

func TestSaWSenderReceiverRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	recvInbox := mailbox.New[wire.Message](mailbox.DefaultCapacity)
	sendSess, sendInbox := newTestSession(ctx, recvInbox, 0)
	recvSess := &Session{Ctx: ctx, Inbox: recvInbox, Log: sendSess.Log}
	recvSess.Conn = &pipe{peer: sendInbox, rng: rand.New(rand.NewSource(2))}

	writer := &memWriter{}
	errc := make(chan error, 1)
	go func() {
		result, err := RunSaWReceiver(recvSess, writer)
		if err != nil {
			errc <- err
			return
		}
		errc <- EndRecv(recvSess, result.EndSeq)
	}()

	reader := &memReader{data: payload}
	require.NoError(t, RunSaWSenderData(sendSess, reader))
	require.NoError(t, EndSend(sendSess, wire.NewEnd()))
	require.NoError(t, <-errc)
	require.Equal(t, payload, writer.data)
}

func TestSRSenderReceiverRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := make([]byte, 50000)
	for i := range payload {
		payload[i] = byte((i * 7) % 251)
	}

	recvInbox := mailbox.New[wire.Message](mailbox.DefaultCapacity)
	sendSess, sendInbox := newTestSession(ctx, recvInbox, 0.1)
	recvSess := &Session{Ctx: ctx, Inbox: recvInbox, Log: sendSess.Log}
	recvSess.Conn = &pipe{peer: sendInbox, rng: rand.New(rand.NewSource(3)), dropPct: 0.1}

	writer := &memWriter{}
	errc := make(chan error, 1)
	go func() {
		result, err := RunSRReceiver(recvSess, writer, int64(len(payload)))
		if err != nil {
			errc <- err
			return
		}
		errc <- EndRecv(recvSess, result.EndSeq)
	}()

	reader := &memReader{data: payload}
	require.NoError(t, RunSRSenderData(sendSess, reader))
	require.NoError(t, EndSend(sendSess, wire.NewEnd()))
	require.NoError(t, <-errc)
	require.Equal(t, payload, writer.data)
}

func TestSenderWindowTopIsQuarterOfTotal(t *testing.T) {
	require.Equal(t, int64(1), senderWindowTop(1))
	require.Equal(t, int64(1), senderWindowTop(3))
	require.Equal(t, int64(25), senderWindowTop(100))
}

func TestReceiverWindowTopIsHalfOfTotal(t *testing.T) {
	require.Equal(t, int64(1), receiverWindowTop(1))
	require.Equal(t, int64(1), receiverWindowTop(2))
	require.Equal(t, int64(50), receiverWindowTop(100))
}

func TestReceiverWindowNeverNarrowerThanSenderWindow(t *testing.T) {
	for total := int64(1); total <= 500; total++ {
		require.GreaterOrEqual(t, receiverWindowTop(total), senderWindowTop(total))
	}
}

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iluksbr/reliudp/internal/mailbox"
	"github.com/iluksbr/reliudp/internal/wire"
)

func TestHandshakeSucceedsOnImmediateAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox := mailbox.New[wire.Message](4)
	inbox.Push(wire.NewAck(0))
	sess, _ := newTestSession(ctx, mailbox.New[wire.Message](4), 0)
	sess.Inbox = inbox

	require.NoError(t, Handshake(sess, wire.NewUpload(0, "f", "x"), 1))
}

func TestHandshakeReturnsErrPeerErrorAndRecordsCode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox := mailbox.New[wire.Message](4)
	inbox.Push(wire.NewError(wire.FileTooBig))
	sess, _ := newTestSession(ctx, mailbox.New[wire.Message](4), 0)
	sess.Inbox = inbox

	err := Handshake(sess, wire.NewUpload(0, "f", "x"), 1)
	require.ErrorIs(t, err, ErrPeerError)
	code, ok := sess.LastErrorCode()
	require.True(t, ok)
	require.Equal(t, wire.FileTooBig, code)
}

func TestHandshakeTreatsEarlyDataAsImplicitAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox := mailbox.New[wire.Message](4)
	inbox.Push(wire.NewData(1, []byte("chunk")))
	sess, _ := newTestSession(ctx, mailbox.New[wire.Message](4), 0)
	sess.Inbox = inbox

	require.NoError(t, Handshake(sess, wire.NewUpload(0, "f", "x"), 1))
	// The DATA packet must be put back for the transfer loop to consume.
	msg, ok := sess.Recv()
	require.True(t, ok)
	require.Equal(t, wire.Data, msg.Type)
}

func TestHandshakeAbortsWhenSessionStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess, _ := newTestSession(ctx, mailbox.New[wire.Message](4), 0)
	err := Handshake(sess, wire.NewUpload(0, "f", "x"), 1)
	require.ErrorIs(t, err, ErrAborted)
}

func TestEndSendEndRecvHappyPath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recvInbox := mailbox.New[wire.Message](8)
	sendSess, sendInbox := newTestSession(ctx, recvInbox, 0)
	recvSess := &Session{Ctx: ctx, Inbox: recvInbox, Log: sendSess.Log}
	recvSess.Conn = &pipe{peer: sendInbox}

	done := make(chan error, 1)
	go func() {
		// Mirrors what a transfer loop does: pop the END it was waiting
		// for, then hand its seq to the receiver-driven teardown half.
		var end wire.Message
		for {
			if msg, ok := recvSess.Recv(); ok && msg.Type == wire.End {
				end = msg
				break
			}
			time.Sleep(time.Millisecond)
		}
		done <- EndRecv(recvSess, end.Seq)
	}()

	require.NoError(t, EndSend(sendSess, wire.NewEnd()))
	require.NoError(t, <-done)
}

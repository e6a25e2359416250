// Package client implements the driver shared by the upload and
// download executables: it opens a UDP socket, runs a single session
// against it on the caller's goroutine, and pumps inbound datagrams into
// the session's mailbox from a separate goroutine, enforcing the
// 15-second inactivity timeout that guards every client invocation
// against a server that never answers.
package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/engine"
	"github.com/iluksbr/reliudp/internal/faultinjector"
	"github.com/iluksbr/reliudp/internal/logging"
	"github.com/iluksbr/reliudp/internal/mailbox"
	"github.com/iluksbr/reliudp/internal/wire"
)

// Driver owns the client's socket and the session it drives over it.
type Driver struct {
	conn   *net.UDPConn
	inbox  *mailbox.Mailbox[wire.Message]
	Log    *logrus.Entry
	faults *faultinjector.Policy
}

// Dial opens a UDP socket to host:port and builds a Driver ready to run
// one session of the given role/strategy.
func Dial(cfg config.Common, log *logrus.Logger, role engine.Role) (*Driver, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	strategy := engine.StrategySaW
	if cfg.Strategy == config.StrategySR {
		strategy = engine.StrategySR
	}
	sessionID := logging.NewSessionID()
	entry := logging.ForSession(log, sessionID, conn.RemoteAddr().String(), role, strategy)
	return &Driver{
		conn:   conn,
		inbox:  mailbox.New[wire.Message](mailbox.DefaultCapacity),
		Log:    entry,
		faults: faultinjector.New(cfg.DropRate, cfg.DropSeed),
	}, nil
}

// Session builds the engine.Session this driver's pump loop feeds.
func (d *Driver) Session(ctx context.Context) *engine.Session {
	return &engine.Session{
		Ctx:    ctx,
		Conn:   &udpTransport{conn: d.conn},
		Inbox:  d.inbox,
		Log:    d.Log,
		Faults: d.faults,
	}
}

// Pump runs the read loop: receive, decode, push to mailbox, resetting
// the inactivity deadline on every datagram. It returns when ctx is
// cancelled or the peer has gone silent for ClientInactivityTimeout.
func (d *Driver) Pump(ctx context.Context, cancel context.CancelFunc) {
	buf := make([]byte, wire.MaxDatagramSize)
	deadline := time.Now().Add(config.ClientInactivityTimeout)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if time.Now().After(deadline) {
			d.Log.Warn("client: inactivity timeout waiting for peer")
			cancel()
			return
		}
		d.conn.SetReadDeadline(time.Now().Add(config.SocketReadTimeout))
		n, err := d.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}
		msg, err := wire.Decode(buf[:n])
		if err != nil {
			d.Log.WithError(err).Debug("client: dropping malformed datagram")
			continue
		}
		d.inbox.Push(msg)
		deadline = time.Now().Add(config.ClientInactivityTimeout)
	}
}

// Close releases the underlying socket.
func (d *Driver) Close() error { return d.conn.Close() }

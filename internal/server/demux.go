// Package server implements the demultiplexer that lets one UDP socket
// host many concurrent upload/download sessions: it reads datagrams on
// a single goroutine and fans each out, by source address, to a
// per-client mailbox drained by that client's own session goroutine.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iluksbr/reliudp/internal/config"
	"github.com/iluksbr/reliudp/internal/engine"
	"github.com/iluksbr/reliudp/internal/faultinjector"
	"github.com/iluksbr/reliudp/internal/logging"
	"github.com/iluksbr/reliudp/internal/mailbox"
	"github.com/iluksbr/reliudp/internal/wire"
)

// clientEntry is one live session's bookkeeping in the demux table.
type clientEntry struct {
	inbox      *mailbox.Mailbox[wire.Message]
	cancel     context.CancelFunc
	lastActive time.Time
	done       chan struct{}
}

// Server owns the UDP socket and the table of active client sessions.
type Server struct {
	conn       *net.UDPConn
	cfg        config.Server
	log        *logrus.Logger
	faults     *faultinjector.Policy
	storageDir string

	mu      sync.Mutex
	clients map[string]*clientEntry
}

// New binds a UDP socket at cfg.Host:cfg.Port and prepares the demux.
func New(cfg config.Server, log *logrus.Logger) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		conn:       conn,
		cfg:        cfg,
		log:        log,
		faults:     faultinjector.New(cfg.DropRate, cfg.DropSeed),
		storageDir: cfg.StorageDir,
		clients:    make(map[string]*clientEntry),
	}, nil
}

// Addr reports the socket's bound local address.
func (srv *Server) Addr() net.Addr { return srv.conn.LocalAddr() }

// Run reads datagrams until ctx is cancelled, dispatching each to its
// client's mailbox and spawning a session goroutine on first contact.
// It also runs the idle-eviction sweep that reclaims sessions whose
// client has gone quiet.
func (srv *Server) Run(ctx context.Context) error {
	go srv.evictIdle(ctx)
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return srv.conn.Close()
		default:
		}
		srv.conn.SetReadDeadline(time.Now().Add(config.SocketReadTimeout))
		n, addr, err := srv.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}
		msg, err := wire.Decode(buf[:n])
		if err != nil {
			srv.log.WithError(err).Debug("demux: dropping malformed datagram")
			continue
		}
		srv.dispatch(ctx, addr, msg)
	}
}

func (srv *Server) dispatch(ctx context.Context, addr *net.UDPAddr, msg wire.Message) {
	key := addr.String()
	srv.mu.Lock()
	entry, ok := srv.clients[key]
	if !ok {
		sessionCtx, cancel := context.WithTimeout(ctx, config.ServerSessionHardCap)
		entry = &clientEntry{
			inbox:  mailbox.New[wire.Message](mailbox.DefaultCapacity),
			cancel: cancel,
			done:   make(chan struct{}),
		}
		srv.clients[key] = entry
		go srv.runSession(sessionCtx, addr, entry)
	}
	entry.lastActive = time.Now()
	entry.inbox.Push(msg)
	srv.mu.Unlock()
}

func (srv *Server) runSession(ctx context.Context, addr *net.UDPAddr, entry *clientEntry) {
	defer close(entry.done)
	defer srv.forget(addr.String())
	sessionID := logging.NewSessionID()
	transport := &udpTransport{conn: srv.conn, addr: addr}
	first, ok := waitFirst(ctx, entry.inbox)
	if !ok {
		return
	}
	role := engine.RoleReceiver
	if first.Type == wire.Download {
		role = engine.RoleSender
	}
	strategy := engine.StrategySaW
	if srv.cfg.Strategy == config.StrategySR {
		strategy = engine.StrategySR
	}
	log := logging.ForSession(srv.log, sessionID, addr.String(), role, strategy)
	sess := &engine.Session{Ctx: ctx, Conn: transport, Inbox: entry.inbox, Log: log, Faults: srv.faults}

	switch first.Type {
	case wire.Upload:
		handleUpload(sess, srv.storageDir, strategy, first)
	case wire.Download:
		handleDownload(sess, srv.storageDir, strategy, first)
	default:
		log.WithField("type", first.Type).Debug("demux: unexpected first message for new session")
	}
}

// waitFirst blocks (subject to ctx) until the new session's mailbox
// yields its first message, which determines whether this is an
// upload or a download. The ARQ strategy is not taken from it; the
// session uses the server's configured strategy.
func waitFirst(ctx context.Context, inbox *mailbox.Mailbox[wire.Message]) (wire.Message, bool) {
	for {
		select {
		case <-ctx.Done():
			return wire.Message{}, false
		default:
		}
		if msg, ok := inbox.TryPop(); ok {
			return msg, true
		}
		time.Sleep(config.MailboxPollSleep)
	}
}

func (srv *Server) forget(key string) {
	srv.mu.Lock()
	delete(srv.clients, key)
	srv.mu.Unlock()
}

// evictIdle periodically drops sessions that have gone quiet for
// longer than ServerIdleTimeout, giving each a grace window before
// actually cancelling its context.
func (srv *Server) evictIdle(ctx context.Context) {
	ticker := time.NewTicker(config.ServerIdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.sweepOnce()
		}
	}
}

func (srv *Server) sweepOnce() {
	now := time.Now()
	srv.mu.Lock()
	var evicted []*clientEntry
	for key, entry := range srv.clients {
		if now.Sub(entry.lastActive) > config.ServerIdleTimeout+config.ServerEvictionGrace {
			entry.cancel()
			evicted = append(evicted, entry)
			delete(srv.clients, key)
		}
	}
	srv.mu.Unlock()

	for _, entry := range evicted {
		go joinWithGrace(entry.done)
	}
}

// joinWithGrace waits for a cancelled session's worker to exit, up to
// ServerEvictionGrace; a worker that misses the grace is abandoned,
// matching the driver/demultiplexer's bounded-join cancellation policy.
func joinWithGrace(done chan struct{}) {
	select {
	case <-done:
	case <-time.After(config.ServerEvictionGrace):
	}
}

// Close releases the underlying socket.
func (srv *Server) Close() error { return srv.conn.Close() }

package client

import (
	"net"

	"github.com/iluksbr/reliudp/internal/wire"
)

// udpTransport implements engine.Transport over a connected UDP socket:
// the client dials its server once and writes framed messages to it.
type udpTransport struct {
	conn *net.UDPConn
}

func (t *udpTransport) Send(msg wire.Message) error {
	b, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	_, err = t.conn.Write(b)
	return err
}

package server

import (
	"net"

	"github.com/iluksbr/reliudp/internal/wire"
)

// udpTransport implements engine.Transport by writing to a fixed peer
// address on the server's single shared socket.
type udpTransport struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

func (t *udpTransport) Send(msg wire.Message) error {
	b, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	_, err = t.conn.WriteToUDP(b, t.addr)
	return err
}

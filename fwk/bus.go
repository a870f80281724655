package fwk

import (
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/bus"

	// transports the telemetry bus may be reached with.
	_ "go.nanomsg.org/mangos/v3/transport/inproc"
	_ "go.nanomsg.org/mangos/v3/transport/ipc"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"
)

const (
	// BusAddr is the default rendez-vous point for the telemetry bus
	BusAddr = "tcp://127.0.0.1:40000"
)

// Bus is a node on the telemetry bus.
// Messages sent on a node reach every directly connected node.
type Bus struct {
	addr string
	sock mangos.Socket
}

// ListenBus creates the bus rendez-vous point at addr.
func ListenBus(addr string) (*Bus, error) {
	sock, err := bus.NewSocket()
	if err != nil {
		return nil, err
	}
	err = sock.Listen(addr)
	if err != nil {
		sock.Close()
		return nil, err
	}
	return &Bus{addr: addr, sock: sock}, nil
}

// DialBus joins the bus listening at addr.
func DialBus(addr string) (*Bus, error) {
	sock, err := bus.NewSocket()
	if err != nil {
		return nil, err
	}
	err = sock.Dial(addr)
	if err != nil {
		sock.Close()
		return nil, err
	}
	return &Bus{addr: addr, sock: sock}, nil
}

func (b *Bus) Addr() string { return b.addr }

// Send broadcasts msg to connected nodes. Without peers, msg is dropped.
func (b *Bus) Send(msg []byte) error {
	return b.sock.Send(msg)
}

func (b *Bus) Recv() ([]byte, error) {
	return b.sock.Recv()
}

// SetRecvTimeout bounds the time Recv waits for a message.
func (b *Bus) SetRecvTimeout(d time.Duration) error {
	return b.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (b *Bus) Close() error {
	return b.sock.Close()
}

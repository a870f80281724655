package store

import (
	"encoding/json"
	"fmt"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
)

// Bus publishes records as JSON messages on the telemetry bus.
type Bus struct {
	bus *fwk.Bus
}

func NewBus(b *fwk.Bus) *Bus {
	return &Bus{bus: b}
}

func (o *Bus) Write(rec Record) error {
	msg, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	err = o.bus.Send(msg)
	if err != nil {
		return fmt.Errorf("store: could not publish sample on %s: %w", o.bus.Addr(), err)
	}
	return nil
}

func (o *Bus) Close() error {
	return o.bus.Close()
}

// DecodeRecord decodes a record published on the bus.
func DecodeRecord(msg []byte) (Record, error) {
	var rec Record
	err := json.Unmarshal(msg, &rec)
	if err != nil {
		return rec, fmt.Errorf("store: invalid bus message: %w", err)
	}
	return rec, nil
}

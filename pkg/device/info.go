package device

import (
	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
)

// Info is a point-in-time copy of a device for status queries.
type Info struct {
	Addr              bdaddr.Addr
	State             State
	CISID             int
	Rank              uint8
	Capabilities      int
	SupportedContexts [codec.RoleCount]uint16
	AvailableContexts [codec.RoleCount]uint16
	Endpoints         []Endpoint
}

// Info returns a consistent copy of the device's fields.
func (d *Device) Info() Info {
	d.mu.RLock()
	defer d.mu.RUnlock()

	eps := make([]Endpoint, len(d.endpoints))
	copy(eps, d.endpoints)

	return Info{
		Addr:              d.addr,
		State:             d.state,
		CISID:             d.cisID,
		Rank:              d.rank,
		Capabilities:      len(d.caps),
		SupportedContexts: d.supported,
		AvailableContexts: d.available,
		Endpoints:         eps,
	}
}

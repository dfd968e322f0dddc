package device

import "github.com/leaudio/leaudio-go/pkg/codec"

// UpdateEndpoint records a procedure state report. Unknown endpoints are
// appended. It returns true if the endpoint was newly added.
func (d *Device) UpdateEndpoint(id uint8, role codec.Role, state ASEState) (bool, error) {
	if role >= codec.RoleCount {
		return false, ErrInvalidRole
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if ep := d.find(id); ep != nil {
		ep.State = state
		return false, nil
	}
	if len(d.endpoints) >= MaxEndpoints {
		return false, ErrEndpointTableFull
	}
	d.endpoints = append(d.endpoints, Endpoint{ID: id, Role: role, State: state})
	return true, nil
}

// Endpoint returns a copy of the endpoint with the given id.
func (d *Device) Endpoint(id uint8) (Endpoint, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if ep := d.find(id); ep != nil {
		return *ep, true
	}
	return Endpoint{}, false
}

// EndpointByStream returns a copy of the endpoint carrying streamID.
func (d *Device) EndpointByStream(streamID uint32) (Endpoint, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, ep := range d.endpoints {
		if streamID != 0 && ep.StreamID == streamID {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// Endpoints returns a copy of the endpoint list in discovery order.
func (d *Device) Endpoints() []Endpoint {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Endpoint, len(d.endpoints))
	copy(out, d.endpoints)
	return out
}

// ActiveEndpoints returns copies of the endpoints selected for the
// current session.
func (d *Device) ActiveEndpoints() []Endpoint {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Endpoint
	for _, ep := range d.endpoints {
		if ep.Active {
			out = append(out, ep)
		}
	}
	return out
}

// SetStreamID records the stream id assigned to an endpoint.
func (d *Device) SetStreamID(id uint8, streamID uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ep := d.find(id)
	if ep == nil {
		return ErrEndpointNotFound
	}
	ep.StreamID = streamID
	return nil
}

// Activate selects an endpoint for the current session with its
// negotiated configuration.
func (d *Device) Activate(id uint8, cfg codec.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ep := d.find(id)
	if ep == nil {
		return ErrEndpointNotFound
	}
	ep.Active = true
	ep.Codec = cfg
	ep.Op = OpNone
	return nil
}

// SetOp records the procedure step last requested for an endpoint.
func (d *Device) SetOp(id uint8, op Op) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ep := d.find(id)
	if ep == nil {
		return ErrEndpointNotFound
	}
	ep.Op = op
	return nil
}

// SetActiveOp records op on every active endpoint.
func (d *Device) SetActiveOp(op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.endpoints {
		if d.endpoints[i].Active {
			d.endpoints[i].Op = op
		}
	}
}

// DeactivateAll clears the session selection of every endpoint and
// returns the stream ids that were active.
func (d *Device) DeactivateAll() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []uint32
	for i := range d.endpoints {
		ep := &d.endpoints[i]
		if ep.Active && ep.StreamID != 0 {
			ids = append(ids, ep.StreamID)
		}
		ep.Active = false
		ep.Op = OpNone
		ep.Codec = codec.Config{}
	}
	return ids
}

// HasActiveRole reports whether an active endpoint of role exists.
func (d *Device) HasActiveRole(role codec.Role) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, ep := range d.endpoints {
		if ep.Active && ep.Role == role {
			return true
		}
	}
	return false
}

func (d *Device) find(id uint8) *Endpoint {
	for i := range d.endpoints {
		if d.endpoints[i].ID == id {
			return &d.endpoints[i]
		}
	}
	return nil
}

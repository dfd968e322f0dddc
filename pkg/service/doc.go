// Package service is the host-side LE Audio client control plane.
//
// A Service owns the group registry, the per-device connection machines,
// the stream table, the CIS id pool and one offload handshake per device.
// It sits between a client (the exported API) and a lower protocol layer
// (the Controller interface), and hands started streams to an AudioSink.
//
// # Service Loop
//
// Every registry mutation and every machine transition runs on a single
// loop goroutine. API calls post a closure to a bounded FIFO queue and
// wait for its error, so callers always get a synchronous status.
// Controller events go to an unbounded inbox and return immediately, so a
// controller may report back from inside a request. The loop drains the
// inbox before each request. Read-only queries such as
// ConnectionState and Devices copy fields under the group and device
// locks without going through the loop.
//
// Example usage:
//
//	svc, err := service.NewService(service.DefaultConfig(), ctrl, audio)
//	if err != nil {
//		return err
//	}
//	svc.RegisterCallbacks(service.Callbacks{
//		ConnectionStateChanged: func(addr bdaddr.Addr, st service.LinkState) { ... },
//	})
//	svc.Start(ctx)
//	defer svc.Stop()
//
//	svc.Connect(addr)
//	// after ConnectionStateChanged(addr, LinkConnected):
//	svc.ConnectAudio(addr, codec.ContextConversational)
//
// # Connection Machine
//
// Each device moves through CLOSED, OPENING, OPENED, STARTED and CLOSING:
//   - CLOSED: connect asks the controller for a link; link up enters OPENING
//   - OPENING: connect-audio selects endpoints, allocates streams and
//     requests codec configuration, entering OPENED
//   - OPENED: codec and QoS completions advance the group barrier; the
//     member completing it issues the group-wide request; enabling enters
//     STARTED
//   - STARTED: started streams bring audio up; disabling removes the
//     device's streams and enters CLOSING
//   - CLOSING: released streams stop audio; releasing enters CLOSED
//
// Events a state does not accept are discarded without side effects.
// Entering CLOSED releases the device's CIS id, streams and offload state
// and reports the disconnection.
//
// # Offload
//
// With Config.OffloadEnabled, a started stream does not bring audio up
// directly. Once every active endpoint of the group is streaming, a vendor
// start command is sent and audio is brought up for the whole group when
// it is acknowledged. An unanswered command is abandoned after
// Config.OffloadTimeout.
//
// # Callbacks
//
// Observers registered with RegisterCallbacks are called on a dedicated
// goroutine in the order the loop produced the notifications. Callbacks
// may call back into the API.
package service

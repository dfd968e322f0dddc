// Package device models a remote LE Audio device as seen by the host.
//
// A [Device] carries the capability table and usage-context bitmasks the
// device published, its audio stream endpoints (ASEs), and the connection
// state driven by the service's per-device state machine.
//
// # Locking
//
// Every Device has its own RWMutex guarding its fields. Accessors take the
// lock for the duration of a field read or copy and never call other
// accessors while holding it. The service loop is the only writer; other
// goroutines may read concurrently. Slices are always returned as copies.
package device

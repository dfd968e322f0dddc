// Package log records a machine-readable trace of the LE Audio control
// plane.
//
// The trace is separate from operational logging (slog). It captures every
// command sent to the controller, every controller notification, every
// state transition and every offload handshake step so a session can be
// replayed and inspected after the fact.
//
// # Basic Usage
//
//	// Development: trace to the console through slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Field capture: binary trace file
//	fl, _ := log.NewFileLogger("/var/log/leaudio/session.lalog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
// Each Event carries exactly one payload:
//   - Command: a request issued to the controller (CommandEvent)
//   - Notification: an event reported by the controller (NotificationEvent)
//   - StateChange: a device, endpoint, group or offload transition
//   - Offload: one step of the vendor command handshake (OffloadEvent)
//   - Error: a failure at any layer
//
// # File Format
//
// Trace files are a stream of CBOR maps with integer keys and use the
// .lalog extension. The leaudio-log tool views, filters and exports them.
package log

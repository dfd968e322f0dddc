// Package offload drives the vendor-specific handshake that routes LE
// Audio streams through a hardware offload path.
//
// Each device has one [Controller]. A controller is Idle, AwaitingStart or
// AwaitingStop. Entering an awaiting state dispatches a vendor command and
// arms a timer; the timer exists exactly while the controller is awaiting.
//
// # Handshake
//
//   - RequestStart while AwaitingStart is a no-op.
//   - RequestStop while AwaitingStart abandons the start.
//   - Complete with the outstanding command id returns to Idle and cancels
//     the timer. Completions for any other id are ignored.
//   - On timer expiry the owner is called with a token; passing that token
//     to Expire returns to Idle. A stale token is ignored, so a timer that
//     fired just before a completion cannot clear a newer request.
//
// Requests are never resubmitted.
//
// # Payload
//
// [DefaultBuilder] packs the per-role stream routing into a vendor HCI
// command. Role index 0 is sink and index 1 is source, with at most
// [MaxStreamsPerRole] streams per role.
package offload

// Package codec implements LC3 codec parameter selection for LE Audio
// stream endpoints.
//
// A remote device publishes capability records (PACs) per role. Each
// record describes the sampling frequencies, frame durations and octet
// range the device accepts, plus optional metadata naming the usage
// contexts it prefers the record for. The [Negotiator] picks a concrete
// [Config] for one endpoint from a static preset table.
//
// # Preset Classes
//
// Usage contexts are grouped into three classes, each with an ordered
// list of candidate presets:
//
//   - voice: conversational-like contexts, {16_2, 8_2, 24_2}
//   - media: MEDIA, {32_2, 24_2, 16_2}
//   - live: UNSPECIFIED, GAME, LIVE, {16_2, 24_2, 32_2}
//
// The order can be overridden with a [PresetOrder].
//
// # Selection
//
// Negotiation runs two passes over the role-matching capability records.
// The first pass only considers records whose preferred-context metadata
// includes the requested context. The second pass falls back to the
// device's available-context bitmask for the role. Within a pass the
// first preset that satisfies frequency, octet range and duration wins.
// There is no scoring.
package codec

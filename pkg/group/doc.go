// Package group implements the device/group registry and the group barrier
// synchronizer.
//
// # Arena Ownership
//
// The [Registry] owns every [Group], and every Group owns its member
// devices. Devices hold no reference to their group; the group of a device
// is found through the registry. The registry API moves a device between
// groups in a single step and refuses to add a device that is already
// owned by a group, so a device belongs to exactly one group at any time.
//
// # Default Group
//
// Group id 0 is the default group. It holds devices that are not (yet)
// identified as members of a coordinated set. It is created with the
// registry and cannot be deleted.
//
// # Barrier
//
// Coordinated-set groups advance their endpoints through codec, QoS and
// enable steps in lockstep. [CompletedByOp] and [CompletedByState] are
// pure functions over a [Snapshot] of the group's active endpoints. The
// registry wraps them with a per-group latch: once a group completed an
// op it stays complete until its membership changes or a new audio
// session is requested.
//
// # Locking
//
// Lock order is registry, then group, then device. Membership changes hold
// the registry write lock; lookups hold the registry read lock.
package group

// Package csip coordinates coordinated-set groups.
//
// Coordinated Set Identification events from the controller are the only
// driver of group creation and destruction. The [Coordinator] applies
// them to the group registry and reports membership, discovery and lock
// changes to a [Listener]. Client requests for discovery, locking and
// explicit membership go through the coordinator as well, so every
// membership change produces exactly one notification.
//
// The coordinator is not safe for concurrent use. The service calls it
// from its service loop only.
package csip

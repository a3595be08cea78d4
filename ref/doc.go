// Package ref provides manual reference counting for explicitly releasable resources.
//
// A Slot owns exactly one value and the function that releases it. A Handle is a
// per-holder token on a Slot: creating or cloning a handle adds one reference,
// closing it drops one. The release function runs exactly once, when the last
// handle is closed.
//
// Handles that become unreachable without being closed are reclaimed in the
// background, using either runtime finalizers (ReclaimFinalizer, default) or
// cleanups drained by a dedicated worker goroutine (ReclaimPhantom), see
// SetReclamation. Both report forgotten handles to the listener installed with
// SetUnclosedListener and never release a reference twice.
package ref

// Package tabs maps stable opaque handles to live browser objects.
//
// Tools and tasks never hold a playwright page or context directly; they
// hold a Handle and dereference it through the Registry at each use. A
// handle for a tab or window that has since been destroyed dereferences to
// "not found" rather than a dangling reference, so code resuming after a
// suspension point can always re-check liveness and fail with a
// "went away" result instead of crashing.
//
// The Registry also announces tab-strip mutations to observers. The
// create-tab tool relies on this: a new tab's identity is only known once
// its insertion is observed, and the observation races against the owning
// window being closed first.
package tabs

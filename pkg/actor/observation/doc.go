// Package observation captures annotated snapshots of a live page and
// provides the post-invoke stabilization waiter.
//
// A Snapshot is taken at planning time: interactive elements are tagged
// in-page with stable node markers and their geometry is recorded, so a
// later action can name its target by node id and the pipeline can
// re-validate that target against the live page immediately before acting.
//
// The DelayController runs after a tool has acted, waiting for the page to
// settle (load state plus a short quiet period) before the turn completes,
// so the next observation sees the effect of the action rather than a page
// mid-transition.
package observation

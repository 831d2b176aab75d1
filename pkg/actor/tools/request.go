package tools

import (
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// ToolRequest is an immutable description of "what to do to what target".
// A request is consumed exactly once by CreateTool.
type ToolRequest interface {
	// CreateTool instantiates the tool that will execute this request.
	// The tool is nil if and only if the result is non-OK.
	CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult)

	// JournalEvent returns the trace label for this request kind.
	JournalEvent() string

	// URLForJournal returns best-effort context for journal entries; empty
	// when not applicable or the target is already gone.
	URLForJournal() string

	// TabHandle returns the targeted tab, or the null handle for requests
	// that are not tab-scoped.
	TabHandle() tabs.Handle

	// AddsTabToObservationSet reports whether a successful invocation
	// should register its tab with the owning task.
	AddsTabToObservationSet() bool
}

// Point is a viewport coordinate.
type Point struct {
	X float64
	Y float64
}

// PageTarget addresses an element inside a tab's document, either by a
// snapshot node id or by a raw viewport coordinate. Exactly one of the two
// forms is set.
type PageTarget struct {
	node       observation.NodeID
	coordinate *Point
}

// NodeTarget addresses the element captured under the given node id.
func NodeTarget(id observation.NodeID) PageTarget {
	return PageTarget{node: id}
}

// CoordinateTarget addresses whatever element lies at the given viewport
// coordinate.
func CoordinateTarget(x, y float64) PageTarget {
	return PageTarget{coordinate: &Point{X: x, Y: y}}
}

// IsNode reports whether the target is a node id.
func (t PageTarget) IsNode() bool {
	return t.coordinate == nil
}

// Node returns the node id; only meaningful when IsNode is true.
func (t PageTarget) Node() observation.NodeID {
	return t.node
}

// Coordinate returns the coordinate; only meaningful when IsNode is false.
func (t PageTarget) Coordinate() Point {
	if t.coordinate == nil {
		return Point{}
	}
	return *t.coordinate
}

// tabScoped is the base for requests targeting a whole tab.
type tabScoped struct {
	tab tabs.Handle
}

// TabHandle returns the targeted tab.
func (r tabScoped) TabHandle() tabs.Handle {
	return r.tab
}

// AddsTabToObservationSet defaults to true for tab-scoped requests.
func (r tabScoped) AddsTabToObservationSet() bool {
	return true
}

// URLForJournal is empty unless a variant knows a static URL.
func (r tabScoped) URLForJournal() string {
	return ""
}

// pageScoped is the base for requests targeting a node or coordinate inside
// a tab's document.
type pageScoped struct {
	tabScoped
	target PageTarget
}

// Target returns the in-page target.
func (r pageScoped) Target() PageTarget {
	return r.target
}

package tools

import (
	"fmt"

	"github.com/fatalapps/pageactor/pkg/actor/journal"
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// pageAction is the variant-specific part of a page tool: static parameter
// checks plus the actual effect against the live page.
type pageAction interface {
	// validate checks parameters and target shape without touching the
	// live page.
	validate(target PageTarget) result.ActionResult

	// apply performs the effect on the tab at the resolved target.
	apply(tab *tabs.Tab, target PageTarget) result.ActionResult
}

// PageTool executes page-scoped requests: it re-validates the snapshot
// target against the live page at time of use, then hands the effect to
// the variant's action.
type PageTool struct {
	toolBase
	tab    tabs.Handle
	target PageTarget
	action pageAction

	// set once TimeOfUseValidation passes
	timeOfUseDone bool
	liveTab       *tabs.Tab
}

func newPageTool(taskID task.ID, delegate Delegate, event string, tab tabs.Handle, target PageTarget, action pageAction) *PageTool {
	return &PageTool{
		toolBase: newToolBase(taskID, delegate, event),
		tab:      tab,
		target:   target,
		action:   action,
	}
}

// Validate checks the variant's parameters and the shape of the target.
func (t *PageTool) Validate(cb result.Callback) {
	if t.tab.IsNull() {
		t.post(cb, result.Errorf(result.CodeInvalidRequest, "%s requires a tab target", t.event))
		return
	}
	if t.target.IsNode() && t.target.Node() <= 0 {
		t.post(cb, result.Errorf(result.CodeInvalidRequest, "%s has no target node", t.event))
		return
	}
	t.post(cb, t.action.validate(t.target))
}

// TimeOfUseValidation re-checks the target against the live page using the
// planning-time snapshot. Synchronous; a non-OK result means Invoke never
// runs.
func (t *PageTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		return result.Errorf(result.CodeTabWentAway, "tab %d is no longer present", t.tab)
	}

	t.delegate.Journal().Log(tab.URL(), t.taskID, journal.TrackActor,
		"TimeOfUseValidation", fmt.Sprintf("TabHandle:%d %s", t.tab, t.event))

	if last != nil {
		if r := t.checkSnapshot(tab, last); !result.IsOk(r) {
			return r
		}
	}

	if t.target.IsNode() {
		present, err := observation.LiveNodePresent(tab, t.target.Node())
		if err != nil {
			return result.Errorf(result.CodeFrameWentAway, "%v", err)
		}
		if !present {
			return result.Errorf(result.CodeInvalidNodeID,
				"node %d is no longer in the page", t.target.Node())
		}
	}

	t.timeOfUseDone = true
	t.liveTab = tab
	return result.Ok()
}

// checkSnapshot validates the target against the captured page content and
// confirms the live document is still the captured one.
func (t *PageTool) checkSnapshot(tab *tabs.Tab, last *observation.Snapshot) result.ActionResult {
	if t.target.IsNode() {
		node, ok := last.Node(t.target.Node())
		if !ok {
			return result.Errorf(result.CodeInvalidNodeID,
				"node %d not found in last observation", t.target.Node())
		}
		if node.Disabled {
			return result.Errorf(result.CodeElementDisabled,
				"node %d is disabled", t.target.Node())
		}
		if !node.Visible {
			return result.Errorf(result.CodeElementOffscreen,
				"node %d is not visible", t.target.Node())
		}
	} else {
		p := t.target.Coordinate()
		if !last.InViewport(p.X, p.Y) {
			return result.Errorf(result.CodeCoordinatesOutOfBounds,
				"(%v, %v) is outside the captured viewport", p.X, p.Y)
		}
		if _, ok := last.NodeAt(p.X, p.Y); !ok {
			return result.Errorf(result.CodeObservedStateMismatch,
				"no observed element at (%v, %v)", p.X, p.Y)
		}
	}

	liveDoc, err := observation.LiveDocumentID(tab)
	if err != nil {
		return result.Errorf(result.CodeFrameWentAway, "%v", err)
	}
	if liveDoc != "" && liveDoc != last.DocumentID {
		return result.Errorf(result.CodeObservedStateMismatch,
			"document changed since observation")
	}
	return result.Ok()
}

// Invoke performs the effect. Requires a passed TimeOfUseValidation.
func (t *PageTool) Invoke(cb result.Callback) {
	if !t.timeOfUseDone {
		t.post(cb, result.Errorf(result.CodeInvalidState,
			"%s invoked before time-of-use validation", t.event))
		return
	}
	// Re-check liveness: the tab may have gone away between validation and
	// this loop turn.
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		t.post(cb, result.Errorf(result.CodeTabWentAway, "tab %d went away", t.tab))
		return
	}
	t.post(cb, t.action.apply(tab, t.target))
}

// UpdateTaskBeforeInvoke registers the target tab as touched.
func (t *PageTool) UpdateTaskBeforeInvoke(owner *task.ActorTask, cb result.Callback) {
	t.addTabToTask(owner, t.tab, cb)
}

// UpdateTaskAfterInvoke has nothing to add for page tools.
func (t *PageTool) UpdateTaskAfterInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// ObservationDelayer waits on the acted-on tab; page effects are expected
// to change visible state.
func (t *PageTool) ObservationDelayer() *observation.DelayController {
	if !t.timeOfUseDone || t.liveTab == nil {
		return nil
	}
	return observation.NewDelayController(t.liveTab, t.delegate.ObservationSettleDelay())
}

// DebugString renders the tool for logs.
func (t *PageTool) DebugString() string {
	if t.target.IsNode() {
		return fmt.Sprintf("PageTool:%s tab=%d node=%d", t.event, t.tab, t.target.Node())
	}
	p := t.target.Coordinate()
	return fmt.Sprintf("PageTool:%s tab=%d at=(%v,%v)", t.event, t.tab, p.X, p.Y)
}

// nodeSelector addresses a captured node in the live page.
func nodeSelector(id observation.NodeID) string {
	return observation.NodeSelector(id)
}

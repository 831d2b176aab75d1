package tools

import (
	"fmt"

	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// HistoryDirection selects which way a history request traverses.
type HistoryDirection int

const (
	// HistoryBack moves to the previous session-history entry.
	HistoryBack HistoryDirection = iota

	// HistoryForward moves to the next session-history entry.
	HistoryForward
)

// String returns the direction's trace label.
func (d HistoryDirection) String() string {
	if d == HistoryBack {
		return "HistoryBack"
	}
	return "HistoryForward"
}

// HistoryRequest traverses a tab's session history by one entry.
type HistoryRequest struct {
	tabScoped
	Direction HistoryDirection
}

// NewHistoryRequest builds a history request.
func NewHistoryRequest(tab tabs.Handle, direction HistoryDirection) *HistoryRequest {
	return &HistoryRequest{tabScoped: tabScoped{tab: tab}, Direction: direction}
}

// CreateTool instantiates the executing tool.
func (r *HistoryRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	if r.tab.IsNull() {
		return nil, result.Errorf(result.CodeInvalidRequest, "history traversal requires a tab target")
	}
	if r.Direction != HistoryBack && r.Direction != HistoryForward {
		return nil, result.Errorf(result.CodeInvalidRequest, "invalid history direction %d", r.Direction)
	}
	return &HistoryTool{
		toolBase:  newToolBase(taskID, delegate, r.JournalEvent()),
		tab:       r.tab,
		direction: r.Direction,
	}, result.Ok()
}

// JournalEvent returns the trace label.
func (r *HistoryRequest) JournalEvent() string {
	return r.Direction.String()
}

// HistoryTool traverses session history.
type HistoryTool struct {
	toolBase
	tab       tabs.Handle
	direction HistoryDirection
	liveTab   *tabs.Tab
}

// Validate checks that an entry exists in the requested direction. The
// check reads the tab's history counters, not the live page.
func (t *HistoryTool) Validate(cb result.Callback) {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		t.post(cb, result.Errorf(result.CodeTabWentAway, "tab %d is no longer present", t.tab))
		return
	}
	t.post(cb, t.checkEntry(tab))
}

// TimeOfUseValidation re-checks tab liveness and that the entry still
// exists (an intervening navigation may have truncated forward history).
func (t *HistoryTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		return result.Errorf(result.CodeTabWentAway, "tab %d is no longer present", t.tab)
	}
	if r := t.checkEntry(tab); !result.IsOk(r) {
		return r
	}
	t.liveTab = tab
	return result.Ok()
}

func (t *HistoryTool) checkEntry(tab *tabs.Tab) result.ActionResult {
	if t.direction == HistoryBack && !tab.CanGoBack() {
		return result.Errorf(result.CodeHistoryNoBackEntries,
			"no earlier session-history entry")
	}
	if t.direction == HistoryForward && !tab.CanGoForward() {
		return result.Errorf(result.CodeHistoryNoForwardEntries,
			"no later session-history entry")
	}
	return result.Ok()
}

// Invoke traverses the history entry.
func (t *HistoryTool) Invoke(cb result.Callback) {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		t.post(cb, result.Errorf(result.CodeTabWentAway, "tab %d went away", t.tab))
		return
	}
	if r := t.checkEntry(tab); !result.IsOk(r) {
		t.post(cb, r)
		return
	}

	committedURL := tab.URL()
	if page := tab.Page(); page != nil {
		var err error
		if t.direction == HistoryBack {
			_, err = page.GoBack()
		} else {
			_, err = page.GoForward()
		}
		if err != nil {
			t.post(cb, result.Errorf(result.CodeError, "history traversal failed: %v", err))
			return
		}
		committedURL = page.URL()
	}

	var err error
	if t.direction == HistoryBack {
		err = tab.DidGoBack(committedURL)
	} else {
		err = tab.DidGoForward(committedURL)
	}
	if err != nil {
		t.post(cb, result.Errorf(result.CodeError, "history bookkeeping failed: %v", err))
		return
	}
	t.post(cb, result.Ok())
}

// UpdateTaskBeforeInvoke registers the tab as touched.
func (t *HistoryTool) UpdateTaskBeforeInvoke(owner *task.ActorTask, cb result.Callback) {
	t.addTabToTask(owner, t.tab, cb)
}

// UpdateTaskAfterInvoke has nothing to add.
func (t *HistoryTool) UpdateTaskAfterInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// ObservationDelayer waits for the restored page to settle.
func (t *HistoryTool) ObservationDelayer() *observation.DelayController {
	if t.liveTab == nil {
		return nil
	}
	return observation.NewDelayController(t.liveTab, t.delegate.ObservationSettleDelay())
}

// DebugString renders the tool for logs.
func (t *HistoryTool) DebugString() string {
	return fmt.Sprintf("HistoryTool tab=%d direction=%s", t.tab, t.direction)
}

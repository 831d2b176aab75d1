package tools

import (
	"fmt"

	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// ScriptRequest evaluates a script in a tab's document.
type ScriptRequest struct {
	tabScoped
	Script string
}

// NewScriptRequest builds a script request.
func NewScriptRequest(tab tabs.Handle, script string) *ScriptRequest {
	return &ScriptRequest{tabScoped: tabScoped{tab: tab}, Script: script}
}

// CreateTool instantiates the executing tool.
func (r *ScriptRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	if r.tab.IsNull() {
		return nil, result.Errorf(result.CodeInvalidRequest, "script requires a tab target")
	}
	return &ScriptTool{
		toolBase: newToolBase(taskID, delegate, r.JournalEvent()),
		tab:      r.tab,
		script:   r.Script,
	}, result.Ok()
}

// JournalEvent returns the trace label.
func (r *ScriptRequest) JournalEvent() string {
	return "Script"
}

// ScriptTool evaluates page script.
type ScriptTool struct {
	toolBase
	tab     tabs.Handle
	script  string
	liveTab *tabs.Tab
}

// Validate rejects empty scripts.
func (t *ScriptTool) Validate(cb result.Callback) {
	if t.script == "" {
		t.post(cb, result.Errorf(result.CodeInvalidRequest, "script request is empty"))
		return
	}
	t.post(cb, result.Ok())
}

// TimeOfUseValidation checks tab liveness and that the document is still
// the one the script was planned against.
func (t *ScriptTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		return result.Errorf(result.CodeTabWentAway, "tab %d is no longer present", t.tab)
	}
	if last != nil {
		liveDoc, err := observation.LiveDocumentID(tab)
		if err != nil {
			return result.Errorf(result.CodeFrameWentAway, "%v", err)
		}
		if liveDoc != "" && liveDoc != last.DocumentID {
			return result.Errorf(result.CodeObservedStateMismatch,
				"document changed since observation")
		}
	}
	t.liveTab = tab
	return result.Ok()
}

// Invoke evaluates the script.
func (t *ScriptTool) Invoke(cb result.Callback) {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		t.post(cb, result.Errorf(result.CodeTabWentAway, "tab %d went away", t.tab))
		return
	}
	if page := tab.Page(); page != nil {
		if _, err := page.Evaluate(t.script); err != nil {
			t.post(cb, result.Errorf(result.CodeScriptFailed, "script failed: %v", err))
			return
		}
	}
	t.post(cb, result.Ok())
}

// UpdateTaskBeforeInvoke registers the tab as touched.
func (t *ScriptTool) UpdateTaskBeforeInvoke(owner *task.ActorTask, cb result.Callback) {
	t.addTabToTask(owner, t.tab, cb)
}

// UpdateTaskAfterInvoke has nothing to add.
func (t *ScriptTool) UpdateTaskAfterInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// ObservationDelayer waits for script side effects to settle.
func (t *ScriptTool) ObservationDelayer() *observation.DelayController {
	if t.liveTab == nil {
		return nil
	}
	return observation.NewDelayController(t.liveTab, t.delegate.ObservationSettleDelay())
}

// DebugString renders the tool for logs.
func (t *ScriptTool) DebugString() string {
	return fmt.Sprintf("ScriptTool tab=%d len=%d", t.tab, len(t.script))
}

package tools

import (
	"fmt"
	"time"

	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// MaxWaitDuration bounds how long a single wait request may pause a task.
const MaxWaitDuration = 30 * time.Second

// WaitRequest pauses the action sequence for a fixed duration. It targets
// nothing and touches no tab.
type WaitRequest struct {
	Duration time.Duration
}

// NewWaitRequest builds a wait request.
func NewWaitRequest(d time.Duration) *WaitRequest {
	return &WaitRequest{Duration: d}
}

// CreateTool instantiates the executing tool.
func (r *WaitRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	return &WaitTool{
		toolBase: newToolBase(taskID, delegate, r.JournalEvent()),
		duration: r.Duration,
	}, result.Ok()
}

// JournalEvent returns the trace label.
func (r *WaitRequest) JournalEvent() string {
	return "Wait"
}

// URLForJournal is not applicable for waits.
func (r *WaitRequest) URLForJournal() string {
	return ""
}

// TabHandle returns the null handle; waits are not tab-scoped.
func (r *WaitRequest) TabHandle() tabs.Handle {
	return tabs.NullHandle
}

// AddsTabToObservationSet is false; a wait touches nothing.
func (r *WaitRequest) AddsTabToObservationSet() bool {
	return false
}

// WaitTool delays completion by its duration. The timeout is intrinsic to
// the tool, not a controller feature.
type WaitTool struct {
	toolBase
	duration time.Duration
}

// Validate bounds the duration.
func (t *WaitTool) Validate(cb result.Callback) {
	if t.duration <= 0 {
		t.post(cb, result.Errorf(result.CodeInvalidRequest, "wait duration must be positive"))
		return
	}
	if t.duration > MaxWaitDuration {
		t.post(cb, result.Errorf(result.CodeInvalidRequest,
			"wait duration %v exceeds maximum %v", t.duration, MaxWaitDuration))
		return
	}
	t.post(cb, result.Ok())
}

// TimeOfUseValidation always passes; a wait has no target to drift.
func (t *WaitTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	return result.Ok()
}

// Invoke resumes cb after the duration elapses.
func (t *WaitTool) Invoke(cb result.Callback) {
	t.delegate.Loop().PostDelayed(func() {
		cb(result.Ok())
	}, t.duration)
}

// UpdateTaskBeforeInvoke has nothing to register.
func (t *WaitTool) UpdateTaskBeforeInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// UpdateTaskAfterInvoke has nothing to register.
func (t *WaitTool) UpdateTaskAfterInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// ObservationDelayer is nil; waiting changes no visible state.
func (t *WaitTool) ObservationDelayer() *observation.DelayController {
	return nil
}

// DebugString renders the tool for logs.
func (t *WaitTool) DebugString() string {
	return fmt.Sprintf("WaitTool duration=%v", t.duration)
}

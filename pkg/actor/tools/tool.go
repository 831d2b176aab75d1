package tools

import (
	"time"

	"github.com/fatalapps/pageactor/pkg/actor/journal"
	"github.com/fatalapps/pageactor/pkg/actor/login"
	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/policy"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// Tool is a per-invocation executor. The controller drives it through
// Validate, TimeOfUseValidation, Invoke, and the task-update hooks, in that
// order; each callback-taking operation invokes its callback exactly once.
type Tool interface {
	// Validate performs cheap correctness checks independent of timing:
	// well-formed parameters, legal combinations. It never touches the live
	// page.
	Validate(cb result.Callback)

	// TimeOfUseValidation synchronously re-checks the tool's target against
	// the live page, using the snapshot that was current when the action
	// was planned. A non-OK result prevents Invoke from ever running.
	TimeOfUseValidation(last *observation.Snapshot) result.ActionResult

	// Invoke performs the actual effect.
	Invoke(cb result.Callback)

	// UpdateTaskBeforeInvoke registers targets known before the effect runs
	// as touched by the owning task.
	UpdateTaskBeforeInvoke(t *task.ActorTask, cb result.Callback)

	// UpdateTaskAfterInvoke registers targets only discoverable after the
	// effect (for example a freshly created tab).
	UpdateTaskAfterInvoke(t *task.ActorTask, cb result.Callback)

	// ObservationDelayer returns the post-invoke stabilization waiter, or
	// nil when the effect has no visual settle requirement.
	ObservationDelayer() *observation.DelayController

	// JournalEvent returns the trace label for this tool.
	JournalEvent() string

	// DebugString renders the tool for logs. No side effects.
	DebugString() string
}

// Delegate supplies the environment services tools need but do not own.
type Delegate interface {
	Registry() *tabs.Registry
	Journal() *journal.Journal
	Loop() *loop.Loop
	CredentialService() login.CredentialService
	SitePolicy() *policy.SitePolicy
	ObservationSettleDelay() time.Duration
}

// toolBase carries the identity and environment common to all tools.
type toolBase struct {
	taskID   task.ID
	delegate Delegate
	event    string
}

func newToolBase(taskID task.ID, delegate Delegate, event string) toolBase {
	return toolBase{taskID: taskID, delegate: delegate, event: event}
}

// JournalEvent returns the tool's trace label.
func (b *toolBase) JournalEvent() string {
	return b.event
}

// post delivers r to cb on a future loop turn, preserving the async
// contract even for synchronously known results.
func (b *toolBase) post(cb result.Callback, r result.ActionResult) {
	b.delegate.Loop().Post(func() {
		cb(r)
	})
}

// addTabToTask forwards the continuation through the task's bookkeeping.
func (b *toolBase) addTabToTask(t *task.ActorTask, h tabs.Handle, cb result.Callback) {
	t.AddTab(h, cb)
}

// noTaskUpdate resumes cb with OK without touching the task.
func (b *toolBase) noTaskUpdate(cb result.Callback) {
	b.post(cb, result.Ok())
}

// Package controller drives one tool through its full lifecycle:
// create, validate, stage, time-of-use re-validation, invoke, stabilize,
// complete.
//
// The controller is a strict state machine. A turn begins with
// CreateToolAndValidate, which stages a tool without acting, and finishes
// either there (on failure) or after a later Invoke call. Every failure
// and success path funnels through one exit, so the caller's completion
// callback fires exactly once per turn no matter which phase failed.
//
// At most one turn is active per controller at any time. Continuations are
// bound through the controller's loop token, so a controller destroyed
// mid-flight leaves its pending continuations as no-ops.
package controller

import (
	"fmt"

	"github.com/fatalapps/pageactor/pkg/actor/journal"
	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/task"
	"github.com/fatalapps/pageactor/pkg/actor/tools"
)

// activeState bundles everything belonging to the turn in flight. The
// single-flight invariant is that at most one of these exists per
// controller.
type activeState struct {
	tool            tools.Tool
	callback        result.Callback
	entry           *journal.PendingAsyncEntry
	lastObservation *observation.Snapshot
	delayer         *observation.DelayController
}

// ToolController orchestrates one tool turn at a time for its owning task.
type ToolController struct {
	owner    *task.ActorTask
	delegate tools.Delegate

	state  State
	active *activeState
	token  *loop.Token
}

// New creates an idle controller for the given task.
func New(owner *task.ActorTask, delegate tools.Delegate) *ToolController {
	return &ToolController{
		owner:    owner,
		delegate: delegate,
		state:    StateInit,
		token:    loop.NewToken(),
	}
}

// State returns the controller's current state.
func (c *ToolController) State() State {
	return c.state
}

// Destroy invalidates the controller. Pending continuations become no-ops
// rather than resuming against a dead controller, and an in-flight turn's
// journal entry is closed as cancelled. The stored completion callback is
// dropped with the turn; callers that need a terminal result on
// cancellation synthesize it themselves (the execution engine does).
func (c *ToolController) Destroy() {
	c.token.Invalidate()
	if c.active == nil {
		return
	}
	if c.active.delayer != nil {
		c.active.delayer.Release()
	}
	c.active.entry.EndEntry(result.Errorf(result.CodeCancelled,
		"controller destroyed mid-turn").DebugString())
	c.active = nil
	c.state = StateReady
}

// CreateToolAndValidate starts a turn: it instantiates the request's tool,
// validates it, performs pre-invoke task bookkeeping, and reports OK with
// the tool staged but not yet invoked. On any failure the turn completes
// immediately and the controller returns to READY.
//
// Legal only from INIT or READY; calling it mid-turn fails the new request
// without disturbing the turn in flight.
func (c *ToolController) CreateToolAndValidate(req tools.ToolRequest, last *observation.Snapshot, cb result.Callback) {
	if !canStartTurn(c.state) || c.active != nil {
		c.journal().Log(req.URLForJournal(), c.owner.ID(), journal.TrackActor,
			"ToolController.CreateToolAndValidate",
			fmt.Sprintf("rejected: turn already active in state %s", c.state))
		c.post(cb, result.Errorf(result.CodeInvalidState,
			"controller busy in state %s", c.state))
		return
	}

	if err := c.setState(StateCreating); err != nil {
		c.post(cb, result.Errorf(result.CodeInvalidState, "%v", err))
		return
	}

	tool, res := req.CreateTool(c.owner.ID(), c.delegate)
	if !result.IsOk(res) {
		// Construction-time rejection: no ActiveState is ever populated.
		c.journal().Log(req.URLForJournal(), c.owner.ID(), journal.TrackActor,
			"ToolController.CreateTool", "failed: "+res.DebugString())
		if err := c.setState(StateReady); err != nil {
			res = result.Errorf(result.CodeInvalidState, "%v", err)
		}
		c.post(cb, res)
		return
	}

	c.active = &activeState{
		tool:     tool,
		callback: cb,
		entry: c.journal().CreatePendingAsyncEntry(req.URLForJournal(),
			c.owner.ID(), journal.TrackActor, req.JournalEvent(), tool.DebugString()),
		lastObservation: last,
	}

	if err := c.setState(StateValidating); err != nil {
		c.completeToolRequest(result.Errorf(result.CodeInvalidState, "%v", err))
		return
	}
	tool.Validate(c.resume("Validate", c.didFinishValidate))
}

// Invoke performs the staged tool's effect. Legal only from INVOKABLE. The
// supplied callback replaces the stored completion callback for the rest
// of the turn.
func (c *ToolController) Invoke(cb result.Callback) {
	if c.state != StateInvokable || c.active == nil {
		c.journal().Log("", c.owner.ID(), journal.TrackActor,
			"ToolController.Invoke",
			fmt.Sprintf("rejected: no staged tool in state %s", c.state))
		c.post(cb, result.Errorf(result.CodeInvalidState,
			"no staged tool to invoke in state %s", c.state))
		return
	}
	c.active.callback = cb

	if err := c.setState(StatePreInvoke); err != nil {
		c.completeToolRequest(result.Errorf(result.CodeInvalidState, "%v", err))
		return
	}

	res := c.active.tool.TimeOfUseValidation(c.active.lastObservation)
	if !result.IsOk(res) {
		// Distinct journal entry: stale-plan failures are diagnosed
		// separately from ordinary validation failures.
		c.journal().Log("", c.owner.ID(), journal.TrackActor,
			"ToolController.TimeOfUseValidationFailed", res.DebugString())
		c.completeToolRequest(res)
		return
	}

	if err := c.setState(StateInvoking); err != nil {
		c.completeToolRequest(result.Errorf(result.CodeInvalidState, "%v", err))
		return
	}
	// Capture the delayer before acting; after the effect the tool's target
	// may already be unreachable.
	c.active.delayer = c.active.tool.ObservationDelayer()
	c.active.tool.Invoke(c.resume("Invoke", c.didFinishToolInvoke))
}

func (c *ToolController) didFinishValidate(res result.ActionResult) {
	if !result.IsOk(res) {
		c.completeToolRequest(res)
		return
	}
	if err := c.setState(StatePostValidate); err != nil {
		c.completeToolRequest(result.Errorf(result.CodeInvalidState, "%v", err))
		return
	}
	c.active.tool.UpdateTaskBeforeInvoke(c.owner, c.resume("UpdateTaskBeforeInvoke", c.didFinishPreInvokeTaskUpdate))
}

func (c *ToolController) didFinishPreInvokeTaskUpdate(res result.ActionResult) {
	if !result.IsOk(res) {
		c.completeToolRequest(res)
		return
	}
	if err := c.setState(StateInvokable); err != nil {
		c.completeToolRequest(result.Errorf(result.CodeInvalidState, "%v", err))
		return
	}
	// The tool is staged, not acted: report OK so the caller can gate the
	// actual invocation on external approval. The stored callback is spent;
	// Invoke supplies the next one.
	cb := c.active.callback
	c.active.callback = nil
	c.post(cb, result.Ok())
}

func (c *ToolController) didFinishToolInvoke(res result.ActionResult) {
	if !result.IsOk(res) {
		c.completeToolRequest(res)
		return
	}
	if c.active.delayer != nil {
		c.active.delayer.Wait(c.loop(), c.token, c.didFinishObservationDelay)
		return
	}
	c.didFinishObservationDelay()
}

func (c *ToolController) didFinishObservationDelay() {
	if c.active == nil {
		// Possible only if the turn was torn down while the delayer was in
		// flight; the released delayer should have swallowed this.
		c.journal().Log("", c.owner.ID(), journal.TrackActor,
			"ToolController.ObservationDelay", "resumed without active turn")
		return
	}
	if err := c.setState(StatePostInvoke); err != nil {
		c.completeToolRequest(result.Errorf(result.CodeInvalidState, "%v", err))
		return
	}
	c.active.tool.UpdateTaskAfterInvoke(c.owner, c.resume("UpdateTaskAfterInvoke", c.completeToolRequest))
}

// completeToolRequest is the single exit for every turn: release the
// delayer, close the journal entry, deliver the callback exactly once, and
// destroy the active state.
func (c *ToolController) completeToolRequest(res result.ActionResult) {
	if c.active == nil {
		c.journal().Log("", c.owner.ID(), journal.TrackActor,
			"ToolController.Complete", "no active turn: "+res.DebugString())
		return
	}
	if err := c.setState(StateReady); err != nil {
		// READY is reachable from every state in the table; failing here
		// means the table itself is wrong. Record and force idle.
		c.journal().Log("", c.owner.ID(), journal.TrackActor,
			"ToolController.Complete", err.Error())
		c.state = StateReady
	}
	c.releaseActive(res)
}

// releaseActive tears down the active state and delivers the stored
// callback with res.
func (c *ToolController) releaseActive(res result.ActionResult) {
	active := c.active
	c.active = nil

	if active.delayer != nil {
		active.delayer.Release()
	}
	active.entry.EndEntry(res.DebugString())
	if active.callback != nil {
		c.post(active.callback, res)
	}
}

// resume wraps a continuation with the liveness checks every phase
// boundary needs: the controller must not have been destroyed and the
// turn must still be active.
func (c *ToolController) resume(phase string, fn func(result.ActionResult)) result.Callback {
	return func(res result.ActionResult) {
		if !c.token.Valid() {
			return
		}
		if c.active == nil {
			c.journal().Log("", c.owner.ID(), journal.TrackActor,
				"ToolController."+phase, "continuation without active turn")
			return
		}
		fn(res)
	}
}

// setState transitions the state machine, journaling the change. Illegal
// transitions are errors in every build configuration.
func (c *ToolController) setState(to State) error {
	if err := checkTransition(c.state, to); err != nil {
		return err
	}
	c.journal().Log("", c.owner.ID(), journal.TrackActor,
		"ToolController.StateChange", fmt.Sprintf("%s -> %s", c.state, to))
	c.state = to
	return nil
}

func (c *ToolController) journal() *journal.Journal {
	return c.delegate.Journal()
}

func (c *ToolController) loop() *loop.Loop {
	return c.delegate.Loop()
}

// post delivers res to cb on a future loop turn, guarded by the
// controller's token.
func (c *ToolController) post(cb result.Callback, res result.ActionResult) {
	if cb == nil {
		return
	}
	c.loop().PostWithToken(c.token, func() {
		cb(res)
	})
}

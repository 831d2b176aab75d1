// Package engine executes ordered sequences of tool requests for a task.
//
// The engine is the multi-action layer above the single-turn
// ToolController: it runs each request of a sequence through one
// controller, serially, with pre-flight safety checks between actions.
// Batches never overlap — a second Act call while one is in flight fails
// with ActionInProgress — and concurrency across tasks is one engine per
// task, so controller turns never interleave within a task.
package engine

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fatalapps/pageactor/pkg/actor/controller"
	"github.com/fatalapps/pageactor/pkg/actor/journal"
	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/metrics"
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/task"
	"github.com/fatalapps/pageactor/pkg/actor/tools"
)

// State is a phase of the engine's per-sequence lifecycle.
type State int

const (
	// StateInit is the state before the first Act call.
	StateInit State = iota

	// StateStartAction covers per-action pre-flight checks.
	StateStartAction

	// StateCreateAndVerify covers the controller's create-and-validate
	// phase.
	StateCreateAndVerify

	// StateToolInvoke covers the controller's invoke phase.
	StateToolInvoke

	// StateComplete is the terminal state of every sequence.
	StateComplete
)

// String returns the state's journal label.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateStartAction:
		return "START_ACTION"
	case StateCreateAndVerify:
		return "CREATE_AND_VERIFY"
	case StateToolInvoke:
		return "TOOL_INVOKE"
	case StateComplete:
		return "COMPLETE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var stateTransitions = map[State][]State{
	StateInit:            {StateStartAction, StateComplete},
	StateStartAction:     {StateCreateAndVerify, StateComplete},
	StateCreateAndVerify: {StateToolInvoke, StateComplete},
	StateToolInvoke:      {StateStartAction, StateComplete},
	StateComplete:        {StateStartAction},
}

// ActCallback receives the sequence's final result. When a specific action
// failed, failedIndex identifies it; a nil index means the failure was not
// attributable to one action (or the sequence succeeded).
type ActCallback func(res result.ActionResult, failedIndex *int)

// Engine runs action sequences for one task.
type Engine struct {
	owner    *task.ActorTask
	delegate tools.Delegate
	ctrl     *controller.ToolController
	metrics  *metrics.Metrics

	state           State
	sequence        []tools.ToolRequest
	nextIndex       int
	lastObservation *observation.Snapshot

	actCallback     ActCallback
	actStart        time.Time
	externalFailure *result.Code

	token *loop.Token
}

// New creates an engine for the given task. metrics may be nil.
func New(owner *task.ActorTask, delegate tools.Delegate, m *metrics.Metrics) *Engine {
	return &Engine{
		owner:    owner,
		delegate: delegate,
		ctrl:     controller.New(owner, delegate),
		metrics:  m,
		state:    StateInit,
		token:    loop.NewToken(),
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	return e.state
}

// Controller exposes the underlying tool controller, mainly for tests and
// callers that want to gate single actions on approval.
func (e *Engine) Controller() *controller.ToolController {
	return e.ctrl
}

// DidObserveContext installs the page snapshot subsequent actions validate
// against.
func (e *Engine) DidObserveContext(s *observation.Snapshot) {
	e.lastObservation = s
}

// LastObservation returns the currently installed snapshot.
func (e *Engine) LastObservation() *observation.Snapshot {
	return e.lastObservation
}

// Act executes the requests in order, reporting one final result. The
// callback fires exactly once, on a later loop turn, even when the
// sequence is rejected outright.
func (e *Engine) Act(requests []tools.ToolRequest, cb ActCallback) {
	if len(requests) == 0 {
		e.post(cb, result.Errorf(result.CodeInvalidRequest, "empty action sequence"), nil)
		return
	}
	if len(e.sequence) > 0 {
		e.journal().Log(requests[0].URLForJournal(), e.owner.ID(), journal.TrackActor,
			"Act Failed", "Unable to perform action: task already has action in progress")
		e.post(cb, result.Errorf(result.CodeActionInProgress,
			"task already has action in progress"), nil)
		return
	}

	e.owner.SetState(task.StateActing)
	e.sequence = requests
	e.nextIndex = 0
	e.actCallback = cb
	e.actStart = time.Now()
	e.externalFailure = nil

	e.loop().PostWithToken(e.token, e.kickOffNextAction)
}

// CancelOngoingActions aborts the in-flight sequence with the given code.
// The current controller turn is destroyed; its continuations become
// no-ops.
func (e *Engine) CancelOngoingActions(code result.Code) {
	if len(e.sequence) == 0 {
		return
	}
	e.ctrl.Destroy()
	e.ctrl = controller.New(e.owner, e.delegate)
	e.completeActions(result.Error(code), nil)
}

// FailCurrentTool injects an external failure reason for the tool
// currently invoking. It only takes effect while an invoke is in flight;
// the stored reason overrides the tool's own result.
func (e *Engine) FailCurrentTool(code result.Code) {
	if e.state != StateToolInvoke {
		return
	}
	e.externalFailure = &code
}

func (e *Engine) kickOffNextAction() {
	e.setState(StateStartAction)

	req := e.sequence[e.nextIndex]
	if !req.TabHandle().IsNull() {
		if res := e.safetyChecks(req); !result.IsOk(res) {
			idx := e.nextIndex
			e.journal().Log(req.URLForJournal(), e.owner.ID(), journal.TrackActor,
				"Act Failed", res.DebugString())
			e.completeActions(res, &idx)
			return
		}
	}
	e.executeNextAction()
}

// safetyChecks gates tab-scoped actions on tab liveness, origin stability
// since the last observation, and site policy.
func (e *Engine) safetyChecks(req tools.ToolRequest) result.ActionResult {
	tab, ok := e.delegate.Registry().Tab(req.TabHandle())
	if !ok {
		return result.Errorf(result.CodeTabWentAway, "the tab is no longer present")
	}

	if e.lastObservation != nil && e.lastObservation.URL != "" {
		if !sameOrigin(e.lastObservation.URL, tab.URL()) {
			return result.Errorf(result.CodeCrossOriginNavigation,
				"acting after cross-origin navigation occurred")
		}
	}

	if sp := e.delegate.SitePolicy(); sp != nil && !sp.MayActOnTab(tab) {
		return result.Errorf(result.CodeURLBlocked, "URL blocked for actions")
	}
	return result.Ok()
}

func (e *Engine) executeNextAction() {
	req := e.sequence[e.nextIndex]
	e.nextIndex++

	e.setState(StateCreateAndVerify)
	e.ctrl.CreateToolAndValidate(req, e.lastObservation, e.resume(e.postToolCreate))
}

func (e *Engine) postToolCreate(res result.ActionResult) {
	if !result.IsOk(res) {
		idx := e.inProgressIndex()
		e.completeActions(res, &idx)
		return
	}
	e.setState(StateToolInvoke)
	e.ctrl.Invoke(e.resume(e.finishedToolInvoke))
}

func (e *Engine) finishedToolInvoke(res result.ActionResult) {
	if reason := e.externalFailure; reason != nil {
		e.externalFailure = nil
		idx := e.inProgressIndex()
		e.completeActions(result.Error(*reason), &idx)
		return
	}
	if !result.IsOk(res) {
		idx := e.inProgressIndex()
		e.completeActions(res, &idx)
		return
	}

	if e.nextIndex >= len(e.sequence) {
		e.completeActions(result.Ok(), nil)
		return
	}
	e.kickOffNextAction()
}

// completeActions is the single exit for a sequence: record metrics,
// journal failures, deliver the callback, and reset for the next Act.
func (e *Engine) completeActions(res result.ActionResult, failedIndex *int) {
	e.setState(StateComplete)

	action := "sequence"
	if failedIndex != nil && *failedIndex < len(e.sequence) {
		action = e.sequence[*failedIndex].JournalEvent()
		if !result.IsOk(res) {
			e.journal().Log(e.sequence[*failedIndex].URLForJournal(), e.owner.ID(),
				journal.TrackActor, "Act Failed", res.DebugString())
		}
	}
	e.metrics.RecordResult(action, res.Code)
	e.metrics.ObserveDuration(time.Since(e.actStart))

	cb := e.actCallback
	e.actCallback = nil
	e.sequence = nil
	e.nextIndex = 0

	// Invalidate continuations from the finished sequence; fresh token for
	// the next one.
	e.token.Invalidate()
	e.token = loop.NewToken()

	e.post(cb, res, failedIndex)
}

func (e *Engine) inProgressIndex() int {
	if e.nextIndex == 0 {
		return 0
	}
	return e.nextIndex - 1
}

func (e *Engine) setState(to State) {
	legal := false
	for _, s := range stateTransitions[e.state] {
		if s == to {
			legal = true
			break
		}
	}
	e.journal().Log("", e.owner.ID(), journal.TrackActor,
		"ExecutionEngine.StateChange", fmt.Sprintf("%s -> %s", e.state, to))
	if !legal {
		e.journal().Log("", e.owner.ID(), journal.TrackActor,
			"ExecutionEngine.StateChange",
			fmt.Sprintf("illegal transition %s -> %s", e.state, to))
	}
	e.state = to
}

// resume wraps a continuation with the engine's token so callbacks from a
// cancelled sequence are dropped.
func (e *Engine) resume(fn func(result.ActionResult)) result.Callback {
	token := e.token
	return func(res result.ActionResult) {
		if !token.Valid() {
			return
		}
		fn(res)
	}
}

func (e *Engine) post(cb ActCallback, res result.ActionResult, failedIndex *int) {
	if cb == nil {
		return
	}
	e.loop().Post(func() {
		cb(res, failedIndex)
	})
}

func (e *Engine) journal() *journal.Journal {
	return e.delegate.Journal()
}

func (e *Engine) loop() *loop.Loop {
	return e.delegate.Loop()
}

func sameOrigin(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatalapps/pageactor/pkg/actor/journal"
	"github.com/fatalapps/pageactor/pkg/actor/login"
	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/policy"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
	"github.com/fatalapps/pageactor/pkg/actor/tools"
)

type engineDelegate struct {
	registry   *tabs.Registry
	journ      *journal.Journal
	eventLoop  *loop.Loop
	sitePolicy *policy.SitePolicy
}

func newEngineDelegate(t *testing.T, blocklist []string) *engineDelegate {
	t.Helper()
	sp, err := policy.New(blocklist)
	require.NoError(t, err)
	return &engineDelegate{
		registry:   tabs.NewRegistry(),
		journ:      journal.New(),
		eventLoop:  loop.New(),
		sitePolicy: sp,
	}
}

func (d *engineDelegate) Registry() *tabs.Registry                   { return d.registry }
func (d *engineDelegate) Journal() *journal.Journal                  { return d.journ }
func (d *engineDelegate) Loop() *loop.Loop                           { return d.eventLoop }
func (d *engineDelegate) CredentialService() login.CredentialService { return nil }
func (d *engineDelegate) SitePolicy() *policy.SitePolicy             { return d.sitePolicy }
func (d *engineDelegate) ObservationSettleDelay() time.Duration      { return time.Millisecond }

// seqTool records its invocation through a shared trace so tests can check
// cross-action ordering. holdInvoke parks the invoke callback instead of
// posting it, so tests can interrupt an in-flight action.
type seqTool struct {
	delegate tools.Delegate
	name     string
	trace    *[]string

	validateRes result.ActionResult
	invokeRes   result.ActionResult
	holdInvoke  bool

	invoked int
	held    result.Callback
}

func (s *seqTool) post(cb result.Callback, r result.ActionResult) {
	s.delegate.Loop().Post(func() { cb(r) })
}

func (s *seqTool) Validate(cb result.Callback) { s.post(cb, s.validateRes) }

func (s *seqTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	return result.Ok()
}

func (s *seqTool) Invoke(cb result.Callback) {
	s.invoked++
	if s.trace != nil {
		*s.trace = append(*s.trace, s.name)
	}
	if s.holdInvoke {
		s.held = cb
		return
	}
	s.post(cb, s.invokeRes)
}

func (s *seqTool) UpdateTaskBeforeInvoke(t *task.ActorTask, cb result.Callback) {
	s.post(cb, result.Ok())
}

func (s *seqTool) UpdateTaskAfterInvoke(t *task.ActorTask, cb result.Callback) {
	s.post(cb, result.Ok())
}

func (s *seqTool) ObservationDelayer() *observation.DelayController { return nil }
func (s *seqTool) JournalEvent() string                             { return s.name }
func (s *seqTool) DebugString() string                              { return s.name }

type seqRequest struct {
	tool *seqTool
	tab  tabs.Handle
}

func (r *seqRequest) CreateTool(taskID task.ID, delegate tools.Delegate) (tools.Tool, result.ActionResult) {
	r.tool.delegate = delegate
	return r.tool, result.Ok()
}

func (r *seqRequest) JournalEvent() string         { return r.tool.name }
func (r *seqRequest) URLForJournal() string        { return "" }
func (r *seqRequest) TabHandle() tabs.Handle       { return r.tab }
func (r *seqRequest) AddsTabToObservationSet() bool { return false }

func okRequest(name string, trace *[]string) *seqRequest {
	return &seqRequest{
		tool: &seqTool{
			name:        name,
			trace:       trace,
			validateRes: result.Ok(),
			invokeRes:   result.Ok(),
		},
		tab: tabs.NullHandle,
	}
}

func newEngineFixture(t *testing.T) (*engineDelegate, *task.ActorTask, *Engine) {
	t.Helper()
	d := newEngineDelegate(t, nil)
	owner := task.New(task.NewID(), d.eventLoop)
	return d, owner, New(owner, d, nil)
}

// act drives a sequence to completion and returns the terminal result.
func act(t *testing.T, d *engineDelegate, e *Engine, reqs []tools.ToolRequest) (result.ActionResult, *int) {
	t.Helper()
	var got *result.ActionResult
	var idx *int
	e.Act(reqs, func(res result.ActionResult, failedIndex *int) {
		got = &res
		idx = failedIndex
	})
	d.eventLoop.RunUntilIdle()
	require.NotNil(t, got, "sequence never completed")
	return *got, idx
}

func TestActEmptySequenceIsRejected(t *testing.T) {
	d, _, e := newEngineFixture(t)

	res, idx := act(t, d, e, nil)
	assert.Equal(t, result.CodeInvalidRequest, res.Code)
	assert.Nil(t, idx)
}

func TestActRunsActionsInOrder(t *testing.T) {
	d, owner, e := newEngineFixture(t)
	var trace []string
	reqs := []tools.ToolRequest{
		okRequest("first", &trace),
		okRequest("second", &trace),
		okRequest("third", &trace),
	}

	res, idx := act(t, d, e, reqs)
	require.True(t, result.IsOk(res), res.DebugString())
	assert.Nil(t, idx)
	assert.Equal(t, []string{"first", "second", "third"}, trace)
	assert.Equal(t, task.StateActing, owner.State())
	assert.Equal(t, StateComplete, e.State())
}

func TestActWhileSequenceInFlightIsRejected(t *testing.T) {
	d, _, e := newEngineFixture(t)
	var trace []string

	var firstRes *result.ActionResult
	e.Act([]tools.ToolRequest{okRequest("first", &trace)},
		func(res result.ActionResult, _ *int) { firstRes = &res })

	var secondRes *result.ActionResult
	e.Act([]tools.ToolRequest{okRequest("second", &trace)},
		func(res result.ActionResult, _ *int) { secondRes = &res })

	d.eventLoop.RunUntilIdle()

	require.NotNil(t, firstRes)
	assert.True(t, result.IsOk(*firstRes), "overlap must not disturb the first sequence")
	require.NotNil(t, secondRes)
	assert.Equal(t, result.CodeActionInProgress, secondRes.Code)
	assert.Equal(t, []string{"first"}, trace)
}

func TestInvokeFailureReportsFailedIndex(t *testing.T) {
	d, _, e := newEngineFixture(t)
	var trace []string
	bad := okRequest("second", &trace)
	bad.tool.invokeRes = result.Errorf(result.CodeFrameWentAway, "frame gone")
	reqs := []tools.ToolRequest{
		okRequest("first", &trace),
		bad,
		okRequest("third", &trace),
	}

	res, idx := act(t, d, e, reqs)
	assert.Equal(t, result.CodeFrameWentAway, res.Code)
	require.NotNil(t, idx)
	assert.Equal(t, 1, *idx)
	assert.Equal(t, []string{"first", "second"}, trace,
		"actions after a failure must not run")
}

func TestValidateFailureReportsFailedIndex(t *testing.T) {
	d, _, e := newEngineFixture(t)
	var trace []string
	bad := okRequest("first", &trace)
	bad.tool.validateRes = result.Errorf(result.CodeInvalidRequest, "bad parameters")

	res, idx := act(t, d, e, []tools.ToolRequest{bad, okRequest("second", &trace)})
	assert.Equal(t, result.CodeInvalidRequest, res.Code)
	require.NotNil(t, idx)
	assert.Equal(t, 0, *idx)
	assert.Empty(t, trace)
}

func newEngineTab(t *testing.T, d *engineDelegate, url string) *tabs.Tab {
	t.Helper()
	w := d.registry.OpenWindow(nil)
	tab, err := tabs.NewDetachedTab(d.registry, w.Handle(), url)
	require.NoError(t, err)
	return tab
}

func TestSafetyCheckRejectsMissingTab(t *testing.T) {
	d, owner, e := newEngineFixture(t)
	_ = owner
	tab := newEngineTab(t, d, "https://example.com/")
	req := okRequest("click", nil)
	req.tab = tab.Handle()
	d.registry.RemoveTab(tab.Handle())

	res, idx := act(t, d, e, []tools.ToolRequest{req})
	assert.Equal(t, result.CodeTabWentAway, res.Code)
	require.NotNil(t, idx)
	assert.Equal(t, 0, *idx)
	assert.Zero(t, req.tool.invoked)
}

func TestSafetyCheckRejectsCrossOriginDrift(t *testing.T) {
	d, _, e := newEngineFixture(t)
	tab := newEngineTab(t, d, "https://other.example/")
	req := okRequest("click", nil)
	req.tab = tab.Handle()

	e.DidObserveContext(&observation.Snapshot{URL: "https://example.com/page"})

	res, idx := act(t, d, e, []tools.ToolRequest{req})
	assert.Equal(t, result.CodeCrossOriginNavigation, res.Code)
	require.NotNil(t, idx)
	assert.Zero(t, req.tool.invoked)
}

func TestSafetyCheckAllowsSameOrigin(t *testing.T) {
	d, _, e := newEngineFixture(t)
	tab := newEngineTab(t, d, "https://example.com/other")
	req := okRequest("click", nil)
	req.tab = tab.Handle()

	e.DidObserveContext(&observation.Snapshot{URL: "https://example.com/page"})

	res, _ := act(t, d, e, []tools.ToolRequest{req})
	assert.True(t, result.IsOk(res), res.DebugString())
}

func TestSafetyCheckRejectsBlockedSite(t *testing.T) {
	d := newEngineDelegate(t, []string{"blocked.example"})
	owner := task.New(task.NewID(), d.eventLoop)
	e := New(owner, d, nil)
	tab := newEngineTab(t, d, "https://blocked.example/")
	req := okRequest("click", nil)
	req.tab = tab.Handle()

	res, idx := act(t, d, e, []tools.ToolRequest{req})
	assert.Equal(t, result.CodeURLBlocked, res.Code)
	require.NotNil(t, idx)
	assert.Zero(t, req.tool.invoked)
}

func TestCancelOngoingActions(t *testing.T) {
	d, _, e := newEngineFixture(t)
	held := okRequest("slow", nil)
	held.tool.holdInvoke = true

	var got *result.ActionResult
	calls := 0
	e.Act([]tools.ToolRequest{held}, func(res result.ActionResult, _ *int) {
		got = &res
		calls++
	})
	d.eventLoop.RunUntilIdle()
	require.Nil(t, got, "held invoke must keep the sequence in flight")
	require.NotNil(t, held.tool.held)

	e.CancelOngoingActions(result.CodeCancelled)
	d.eventLoop.RunUntilIdle()
	require.NotNil(t, got)
	assert.Equal(t, result.CodeCancelled, got.Code)

	// The parked continuation from the cancelled turn is a no-op now.
	held.tool.held(result.Ok())
	d.eventLoop.RunUntilIdle()
	assert.Equal(t, 1, calls)

	// The engine is reusable after cancellation.
	res, _ := act(t, d, e, []tools.ToolRequest{okRequest("next", nil)})
	assert.True(t, result.IsOk(res), res.DebugString())
}

func TestCancelWithoutSequenceIsNoOp(t *testing.T) {
	d, _, e := newEngineFixture(t)
	e.CancelOngoingActions(result.CodeCancelled)
	d.eventLoop.RunUntilIdle()

	res, _ := act(t, d, e, []tools.ToolRequest{okRequest("only", nil)})
	assert.True(t, result.IsOk(res), res.DebugString())
}

func TestFailCurrentToolOverridesResult(t *testing.T) {
	d, _, e := newEngineFixture(t)
	held := okRequest("slow", nil)
	held.tool.holdInvoke = true

	var got *result.ActionResult
	var idx *int
	e.Act([]tools.ToolRequest{held}, func(res result.ActionResult, failedIndex *int) {
		got = &res
		idx = failedIndex
	})
	d.eventLoop.RunUntilIdle()
	require.Equal(t, StateToolInvoke, e.State())

	e.FailCurrentTool(result.CodeTabWentAway)
	held.tool.held(result.Ok())
	d.eventLoop.RunUntilIdle()

	require.NotNil(t, got)
	assert.Equal(t, result.CodeTabWentAway, got.Code,
		"the injected failure overrides the tool's own result")
	require.NotNil(t, idx)
	assert.Equal(t, 0, *idx)
}

func TestFailCurrentToolIgnoredWhenIdle(t *testing.T) {
	d, _, e := newEngineFixture(t)
	e.FailCurrentTool(result.CodeTabWentAway)

	res, _ := act(t, d, e, []tools.ToolRequest{okRequest("only", nil)})
	assert.True(t, result.IsOk(res), res.DebugString())
}

func TestLastObservationRoundTrip(t *testing.T) {
	_, _, e := newEngineFixture(t)
	assert.Nil(t, e.LastObservation())

	s := &observation.Snapshot{URL: "https://example.com/"}
	e.DidObserveContext(s)
	assert.Same(t, s, e.LastObservation())
}

func TestEngineIsReusableAcrossSequences(t *testing.T) {
	d, _, e := newEngineFixture(t)
	for i := 0; i < 3; i++ {
		res, idx := act(t, d, e, []tools.ToolRequest{okRequest("only", nil)})
		require.True(t, result.IsOk(res), res.DebugString())
		assert.Nil(t, idx)
	}
}

package controller

import (
	"context"
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

// fakeDelegate is the minimal environment for driving a controller.
type fakeDelegate struct {
	registry    *tabs.Registry
	journ       *journal.Journal
	eventLoop   *loop.Loop
	credentials login.CredentialService
	sitePolicy  *policy.SitePolicy
}

func newFakeDelegate(t *testing.T) *fakeDelegate {
	t.Helper()
	sp, err := policy.New(nil)
	require.NoError(t, err)
	return &fakeDelegate{
		registry:   tabs.NewRegistry(),
		journ:      journal.New(),
		eventLoop:  loop.New(),
		sitePolicy: sp,
	}
}

func (d *fakeDelegate) Registry() *tabs.Registry                   { return d.registry }
func (d *fakeDelegate) Journal() *journal.Journal                  { return d.journ }
func (d *fakeDelegate) Loop() *loop.Loop                           { return d.eventLoop }
func (d *fakeDelegate) CredentialService() login.CredentialService { return d.credentials }
func (d *fakeDelegate) SitePolicy() *policy.SitePolicy             { return d.sitePolicy }
func (d *fakeDelegate) ObservationSettleDelay() time.Duration      { return time.Millisecond }

// fakeTool is a scriptable tool: each phase returns its configured result
// and records that it ran.
type fakeTool struct {
	delegate tools.Delegate

	validateRes result.ActionResult
	touRes      result.ActionResult
	invokeRes   result.ActionResult
	delayTab    *tabs.Tab

	validated bool
	touRan    bool
	touPassed bool
	invoked   int
}

func newFakeTool(d tools.Delegate) *fakeTool {
	return &fakeTool{
		delegate:    d,
		validateRes: result.Ok(),
		touRes:      result.Ok(),
		invokeRes:   result.Ok(),
	}
}

func (f *fakeTool) post(cb result.Callback, r result.ActionResult) {
	f.delegate.Loop().Post(func() { cb(r) })
}

func (f *fakeTool) Validate(cb result.Callback) {
	f.validated = true
	f.post(cb, f.validateRes)
}

func (f *fakeTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	f.touRan = true
	if result.IsOk(f.touRes) {
		f.touPassed = true
	}
	return f.touRes
}

func (f *fakeTool) Invoke(cb result.Callback) {
	f.invoked++
	f.post(cb, f.invokeRes)
}

func (f *fakeTool) UpdateTaskBeforeInvoke(t *task.ActorTask, cb result.Callback) {
	f.post(cb, result.Ok())
}

func (f *fakeTool) UpdateTaskAfterInvoke(t *task.ActorTask, cb result.Callback) {
	f.post(cb, result.Ok())
}

func (f *fakeTool) ObservationDelayer() *observation.DelayController {
	if f.delayTab == nil || !f.touPassed {
		return nil
	}
	return observation.NewDelayController(f.delayTab, time.Millisecond)
}

func (f *fakeTool) JournalEvent() string { return "FakeAction" }
func (f *fakeTool) DebugString() string  { return "FakeTool" }

// fakeRequest hands out a pre-built tool, or fails tool creation.
type fakeRequest struct {
	tool      tools.Tool
	createRes result.ActionResult
}

func (r *fakeRequest) CreateTool(taskID task.ID, delegate tools.Delegate) (tools.Tool, result.ActionResult) {
	if !result.IsOk(r.createRes) {
		return nil, r.createRes
	}
	return r.tool, result.Ok()
}

func (r *fakeRequest) JournalEvent() string            { return "FakeAction" }
func (r *fakeRequest) URLForJournal() string           { return "" }
func (r *fakeRequest) TabHandle() tabs.Handle          { return tabs.NullHandle }
func (r *fakeRequest) AddsTabToObservationSet() bool   { return false }

func newFixture(t *testing.T) (*fakeDelegate, *task.ActorTask, *ToolController, *fakeTool, *fakeRequest) {
	t.Helper()
	d := newFakeDelegate(t)
	owner := task.New(task.NewID(), d.eventLoop)
	ctrl := New(owner, d)
	tool := newFakeTool(d)
	req := &fakeRequest{tool: tool, createRes: result.Ok()}
	return d, owner, ctrl, tool, req
}

// stage drives CreateToolAndValidate to completion and returns the staging
// result.
func stage(t *testing.T, d *fakeDelegate, ctrl *ToolController, req tools.ToolRequest) result.ActionResult {
	t.Helper()
	var got *result.ActionResult
	ctrl.CreateToolAndValidate(req, nil, func(res result.ActionResult) { got = &res })
	d.eventLoop.RunUntilIdle()
	require.NotNil(t, got, "staging never completed")
	return *got
}

func invoke(t *testing.T, d *fakeDelegate, ctrl *ToolController) result.ActionResult {
	t.Helper()
	var got *result.ActionResult
	ctrl.Invoke(func(res result.ActionResult) { got = &res })
	d.eventLoop.RunUntilIdle()
	require.NotNil(t, got, "invoke never completed")
	return *got
}

func TestStagingReportsOkWithoutActing(t *testing.T) {
	d, _, ctrl, tool, req := newFixture(t)

	res := stage(t, d, ctrl, req)
	require.True(t, result.IsOk(res), res.DebugString())

	assert.Equal(t, StateInvokable, ctrl.State())
	assert.True(t, tool.validated)
	assert.Zero(t, tool.invoked, "staging must not invoke the tool")
	assert.False(t, tool.touRan, "time-of-use validation belongs to the invoke phase")
}

func TestInvokeCompletesTurn(t *testing.T) {
	d, _, ctrl, tool, req := newFixture(t)
	require.True(t, result.IsOk(stage(t, d, ctrl, req)))

	res := invoke(t, d, ctrl)
	require.True(t, result.IsOk(res), res.DebugString())

	assert.Equal(t, StateReady, ctrl.State())
	assert.True(t, tool.touRan)
	assert.Equal(t, 1, tool.invoked)

	// The async journal entry must be closed.
	entries := d.journ.Entries()
	var begin, end int
	for _, e := range entries {
		if e.Event == "FakeAction" && e.Phase == "begin" {
			begin++
		}
		if e.Event == "FakeAction" && e.Phase == "end" {
			end++
		}
	}
	assert.Equal(t, 1, begin)
	assert.Equal(t, 1, end)
}

func TestToolCreationFailureCompletesImmediately(t *testing.T) {
	d, _, ctrl, _, req := newFixture(t)
	req.createRes = result.Errorf(result.CodeToolCreationFailed, "cannot build")

	res := stage(t, d, ctrl, req)
	assert.Equal(t, result.CodeToolCreationFailed, res.Code)
	assert.Equal(t, StateReady, ctrl.State())

	// No async entry was ever opened for the failed construction.
	for _, e := range d.journ.Entries() {
		assert.NotEqual(t, "begin", e.Phase)
	}
}

func TestValidationFailureCompletesTurn(t *testing.T) {
	d, _, ctrl, tool, req := newFixture(t)
	tool.validateRes = result.Errorf(result.CodeInvalidRequest, "bad parameters")

	res := stage(t, d, ctrl, req)
	assert.Equal(t, result.CodeInvalidRequest, res.Code)
	assert.Equal(t, StateReady, ctrl.State())
	assert.Zero(t, tool.invoked)

	// The async entry is closed with the failure.
	entries := d.journ.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, "end", last.Phase)
	assert.Contains(t, last.Message, "InvalidRequest")
}

func TestTimeOfUseFailurePreventsInvoke(t *testing.T) {
	d, _, ctrl, tool, req := newFixture(t)
	tool.touRes = result.Errorf(result.CodeObservedStateMismatch, "page changed")
	require.True(t, result.IsOk(stage(t, d, ctrl, req)))

	res := invoke(t, d, ctrl)
	assert.Equal(t, result.CodeObservedStateMismatch, res.Code)
	assert.Zero(t, tool.invoked, "a failed time-of-use check must prevent the effect")
	assert.Equal(t, StateReady, ctrl.State())

	var found bool
	for _, e := range d.journ.Entries() {
		if e.Event == "ToolController.TimeOfUseValidationFailed" {
			found = true
		}
	}
	assert.True(t, found, "stale-plan failures get their own journal event")
}

func TestInvokeFailureCompletesTurn(t *testing.T) {
	d, _, ctrl, tool, req := newFixture(t)
	tool.invokeRes = result.Errorf(result.CodeError, "effect failed")
	require.True(t, result.IsOk(stage(t, d, ctrl, req)))

	res := invoke(t, d, ctrl)
	assert.Equal(t, result.CodeError, res.Code)
	assert.Equal(t, StateReady, ctrl.State())
}

func TestSecondRequestWhileTurnActiveIsRejected(t *testing.T) {
	d, _, ctrl, _, req := newFixture(t)
	require.True(t, result.IsOk(stage(t, d, ctrl, req)))

	other := &fakeRequest{tool: newFakeTool(d), createRes: result.Ok()}
	var got *result.ActionResult
	ctrl.CreateToolAndValidate(other, nil, func(res result.ActionResult) { got = &res })
	d.eventLoop.RunUntilIdle()

	require.NotNil(t, got)
	assert.Equal(t, result.CodeInvalidState, got.Code)

	// The original staged turn is untouched and still completes.
	res := invoke(t, d, ctrl)
	assert.True(t, result.IsOk(res), res.DebugString())
}

func TestInvokeWithoutStagedToolIsRejected(t *testing.T) {
	d, _, ctrl, _, _ := newFixture(t)

	res := invoke(t, d, ctrl)
	assert.Equal(t, result.CodeInvalidState, res.Code)
}

func TestControllerIsReusableAcrossTurns(t *testing.T) {
	d, _, ctrl, _, req := newFixture(t)

	for i := 0; i < 3; i++ {
		require.True(t, result.IsOk(stage(t, d, ctrl, req)))
		require.True(t, result.IsOk(invoke(t, d, ctrl)))
		assert.Equal(t, StateReady, ctrl.State())
	}
}

func TestStagingCallbackFiresExactlyOnce(t *testing.T) {
	d, _, ctrl, _, req := newFixture(t)

	calls := 0
	ctrl.CreateToolAndValidate(req, nil, func(result.ActionResult) { calls++ })
	d.eventLoop.RunUntilIdle()
	assert.Equal(t, 1, calls)

	calls = 0
	ctrl.Invoke(func(result.ActionResult) { calls++ })
	d.eventLoop.RunUntilIdle()
	assert.Equal(t, 1, calls)
}

func TestDestroyMidTurnClosesJournalAndDropsCallbacks(t *testing.T) {
	d, _, ctrl, _, req := newFixture(t)
	require.True(t, result.IsOk(stage(t, d, ctrl, req)))

	ctrl.Destroy()
	assert.Equal(t, StateReady, ctrl.State())

	entries := d.journ.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, "end", last.Phase)
	assert.Contains(t, last.Message, "Cancelled")

	// A destroyed controller never resumes anything, including rejections.
	called := false
	ctrl.Invoke(func(result.ActionResult) { called = true })
	d.eventLoop.RunUntilIdle()
	assert.False(t, called)
}

func TestDelayerGatesCompletion(t *testing.T) {
	d, _, ctrl, tool, req := newFixture(t)
	w := d.registry.OpenWindow(nil)
	tab, err := tabs.NewDetachedTab(d.registry, w.Handle(), "https://example.com")
	require.NoError(t, err)
	tool.delayTab = tab

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.eventLoop.Run(ctx)

	staged := make(chan result.ActionResult, 1)
	d.eventLoop.Post(func() {
		ctrl.CreateToolAndValidate(req, nil, func(res result.ActionResult) { staged <- res })
	})
	select {
	case res := <-staged:
		require.True(t, result.IsOk(res))
	case <-time.After(time.Second):
		t.Fatal("staging never completed")
	}

	done := make(chan result.ActionResult, 1)
	d.eventLoop.Post(func() {
		ctrl.Invoke(func(res result.ActionResult) { done <- res })
	})
	select {
	case res := <-done:
		assert.True(t, result.IsOk(res), res.DebugString())
	case <-time.After(time.Second):
		t.Fatal("turn never completed after the settle delay")
	}
}

package tools

import (
	"fmt"
	"sync"

	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// CreateTabRequest opens a new tab in a window. The new tab's identity is
// only known once its insertion into the tab strip is observed.
type CreateTabRequest struct {
	Window     tabs.WindowHandle
	Foreground bool
}

// NewCreateTabRequest builds a create-tab request.
func NewCreateTabRequest(window tabs.WindowHandle, foreground bool) *CreateTabRequest {
	return &CreateTabRequest{Window: window, Foreground: foreground}
}

// CreateTool instantiates the executing tool.
func (r *CreateTabRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	if r.Window == tabs.NullWindowHandle {
		return nil, result.Errorf(result.CodeInvalidRequest, "create-tab requires a window target")
	}
	return &CreateTabTool{
		toolBase:   newToolBase(taskID, delegate, r.JournalEvent()),
		window:     r.Window,
		foreground: r.Foreground,
	}, result.Ok()
}

// JournalEvent returns the trace label.
func (r *CreateTabRequest) JournalEvent() string {
	return "CreateTab"
}

// URLForJournal is not applicable before the tab exists.
func (r *CreateTabRequest) URLForJournal() string {
	return ""
}

// TabHandle is null; the target tab does not exist yet.
func (r *CreateTabRequest) TabHandle() tabs.Handle {
	return tabs.NullHandle
}

// AddsTabToObservationSet is true: the created tab joins the task's set,
// registered after invocation once its identity is known.
func (r *CreateTabRequest) AddsTabToObservationSet() bool {
	return true
}

// CreateTabTool opens a tab and completes only once the tab-strip
// insertion is observed, racing against the owning window being destroyed
// first. Whichever event arrives first determines the outcome.
type CreateTabTool struct {
	toolBase
	window     tabs.WindowHandle
	foreground bool

	mu      sync.Mutex
	pending result.Callback
	created tabs.Handle
}

// Validate checks nothing beyond construction; window liveness is a timing
// concern left to invocation.
func (t *CreateTabTool) Validate(cb result.Callback) {
	t.post(cb, result.Ok())
}

// TimeOfUseValidation requires the window to still exist.
func (t *CreateTabTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	if _, ok := t.delegate.Registry().Window(t.window); !ok {
		return result.Errorf(result.CodeWindowWentAway, "window %d is no longer present", t.window)
	}
	return result.Ok()
}

// Invoke subscribes to tab-strip events, then asks the window for a new
// tab. Completion comes from whichever fires first: the insertion of our
// tab or the close of the window.
func (t *CreateTabTool) Invoke(cb result.Callback) {
	t.mu.Lock()
	t.pending = cb
	t.mu.Unlock()

	registry := t.delegate.Registry()
	registry.AddObserver(t)

	window, ok := registry.Window(t.window)
	if !ok {
		t.finish(result.Errorf(result.CodeWindowWentAway, "window %d went away", t.window))
		return
	}

	if _, err := window.OpenTab(t.foreground); err != nil {
		// The observer may already have completed the turn (for example a
		// WindowClosed raced ahead of the open failure); finish is a no-op
		// then.
		if window.Closed() {
			t.finish(result.Errorf(result.CodeWindowWentAway, "window %d went away", t.window))
		} else {
			t.finish(result.Errorf(result.CodeError, "failed to create tab: %v", err))
		}
	}
	// On success the TabInserted observation has already driven finish.
}

// TabInserted completes the turn when the new tab appears in our window.
func (t *CreateTabTool) TabInserted(tab *tabs.Tab) {
	if tab.WindowHandle() != t.window {
		return
	}
	t.mu.Lock()
	t.created = tab.Handle()
	t.mu.Unlock()
	t.finish(result.Ok())
}

// TabRemoved is not interesting to tab creation.
func (t *CreateTabTool) TabRemoved(handle tabs.Handle) {}

// WindowClosed completes the turn with failure when our window dies first.
func (t *CreateTabTool) WindowClosed(handle tabs.WindowHandle) {
	if handle != t.window {
		return
	}
	t.finish(result.Errorf(result.CodeWindowWentAway, "window %d went away", t.window))
}

// finish delivers the pending callback exactly once and unsubscribes.
func (t *CreateTabTool) finish(r result.ActionResult) {
	t.mu.Lock()
	cb := t.pending
	t.pending = nil
	t.mu.Unlock()
	if cb == nil {
		return
	}
	t.delegate.Registry().RemoveObserver(t)
	t.post(cb, r)
}

// CreatedTab returns the handle of the tab this tool created, null until
// invocation succeeds.
func (t *CreateTabTool) CreatedTab() tabs.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.created
}

// UpdateTaskBeforeInvoke has nothing to register; the tab does not exist
// yet.
func (t *CreateTabTool) UpdateTaskBeforeInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// UpdateTaskAfterInvoke registers the tab discovered during invocation.
func (t *CreateTabTool) UpdateTaskAfterInvoke(owner *task.ActorTask, cb result.Callback) {
	created := t.CreatedTab()
	if created.IsNull() {
		t.post(cb, result.Errorf(result.CodeError, "no tab was created"))
		return
	}
	t.addTabToTask(owner, created, cb)
}

// ObservationDelayer waits on the new tab when one was created.
func (t *CreateTabTool) ObservationDelayer() *observation.DelayController {
	created := t.CreatedTab()
	if created.IsNull() {
		return nil
	}
	tab, ok := t.delegate.Registry().Tab(created)
	if !ok {
		return nil
	}
	return observation.NewDelayController(tab, t.delegate.ObservationSettleDelay())
}

// DebugString renders the tool for logs.
func (t *CreateTabTool) DebugString() string {
	return fmt.Sprintf("CreateTabTool window=%d foreground=%t", t.window, t.foreground)
}

// ActivateTabRequest brings a tab to the foreground.
type ActivateTabRequest struct {
	tabScoped
}

// NewActivateTabRequest builds an activate-tab request.
func NewActivateTabRequest(tab tabs.Handle) *ActivateTabRequest {
	return &ActivateTabRequest{tabScoped: tabScoped{tab: tab}}
}

// CreateTool instantiates the executing tool.
func (r *ActivateTabRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	if r.tab.IsNull() {
		return nil, result.Errorf(result.CodeInvalidRequest, "activate-tab requires a tab target")
	}
	return &tabStripTool{
		toolBase: newToolBase(taskID, delegate, r.JournalEvent()),
		tab:      r.tab,
		addsTab:  true,
		act: func(tab *tabs.Tab, registry *tabs.Registry) result.ActionResult {
			if page := tab.Page(); page != nil {
				if err := page.BringToFront(); err != nil {
					return result.Errorf(result.CodeError, "failed to activate tab: %v", err)
				}
			}
			return result.Ok()
		},
	}, result.Ok()
}

// JournalEvent returns the trace label.
func (r *ActivateTabRequest) JournalEvent() string {
	return "ActivateTab"
}

// CloseTabRequest closes a tab.
type CloseTabRequest struct {
	tabScoped
}

// NewCloseTabRequest builds a close-tab request.
func NewCloseTabRequest(tab tabs.Handle) *CloseTabRequest {
	return &CloseTabRequest{tabScoped: tabScoped{tab: tab}}
}

// CreateTool instantiates the executing tool.
func (r *CloseTabRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	if r.tab.IsNull() {
		return nil, result.Errorf(result.CodeInvalidRequest, "close-tab requires a tab target")
	}
	return &tabStripTool{
		toolBase: newToolBase(taskID, delegate, r.JournalEvent()),
		tab:      r.tab,
		act: func(tab *tabs.Tab, registry *tabs.Registry) result.ActionResult {
			if page := tab.Page(); page != nil {
				if err := page.Close(); err != nil {
					return result.Errorf(result.CodeError, "failed to close tab: %v", err)
				}
			}
			registry.RemoveTab(tab.Handle())
			return result.Ok()
		},
	}, result.Ok()
}

// AddsTabToObservationSet is false; the tab is going away.
func (r *CloseTabRequest) AddsTabToObservationSet() bool {
	return false
}

// JournalEvent returns the trace label.
func (r *CloseTabRequest) JournalEvent() string {
	return "CloseTab"
}

// tabStripTool covers the tab-strip mutations whose target is known up
// front: activate and close.
type tabStripTool struct {
	toolBase
	tab     tabs.Handle
	addsTab bool
	act     func(*tabs.Tab, *tabs.Registry) result.ActionResult
}

// Validate has nothing static to check beyond construction.
func (t *tabStripTool) Validate(cb result.Callback) {
	t.post(cb, result.Ok())
}

// TimeOfUseValidation requires the tab to still exist.
func (t *tabStripTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	if _, ok := t.delegate.Registry().Tab(t.tab); !ok {
		return result.Errorf(result.CodeTabWentAway, "tab %d is no longer present", t.tab)
	}
	return result.Ok()
}

// Invoke performs the tab-strip mutation.
func (t *tabStripTool) Invoke(cb result.Callback) {
	registry := t.delegate.Registry()
	tab, ok := registry.Tab(t.tab)
	if !ok {
		t.post(cb, result.Errorf(result.CodeTabWentAway, "tab %d went away", t.tab))
		return
	}
	t.post(cb, t.act(tab, registry))
}

// UpdateTaskBeforeInvoke registers the tab when the mutation keeps it
// alive.
func (t *tabStripTool) UpdateTaskBeforeInvoke(owner *task.ActorTask, cb result.Callback) {
	if !t.addsTab {
		t.noTaskUpdate(cb)
		return
	}
	t.addTabToTask(owner, t.tab, cb)
}

// UpdateTaskAfterInvoke has nothing to add.
func (t *tabStripTool) UpdateTaskAfterInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// ObservationDelayer is nil; tab-strip mutations have no page settle
// requirement.
func (t *tabStripTool) ObservationDelayer() *observation.DelayController {
	return nil
}

// DebugString renders the tool for logs.
func (t *tabStripTool) DebugString() string {
	return fmt.Sprintf("%s tab=%d", t.event, t.tab)
}

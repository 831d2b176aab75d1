package tools

import (
	"fmt"
	"net/url"

	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// NavigateRequest loads a URL in a tab.
type NavigateRequest struct {
	tabScoped
	URL string
}

// NewNavigateRequest builds a navigate request.
func NewNavigateRequest(tab tabs.Handle, rawURL string) *NavigateRequest {
	return &NavigateRequest{tabScoped: tabScoped{tab: tab}, URL: rawURL}
}

// CreateTool instantiates the executing tool.
func (r *NavigateRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	if r.tab.IsNull() {
		return nil, result.Errorf(result.CodeInvalidRequest, "navigate requires a tab target")
	}
	return &NavigateTool{
		toolBase: newToolBase(taskID, delegate, r.JournalEvent()),
		tab:      r.tab,
		url:      r.URL,
	}, result.Ok()
}

// JournalEvent returns the trace label.
func (r *NavigateRequest) JournalEvent() string {
	return "Navigate"
}

// URLForJournal returns the destination URL.
func (r *NavigateRequest) URLForJournal() string {
	return r.URL
}

// NavigateTool loads a URL, consulting site policy first.
type NavigateTool struct {
	toolBase
	tab tabs.Handle
	url string

	timeOfUseDone bool
	liveTab       *tabs.Tab
}

// Validate checks the URL's shape and the site-policy blocklist. Neither
// touches the live page.
func (t *NavigateTool) Validate(cb result.Callback) {
	u, err := url.Parse(t.url)
	if err != nil || u.Scheme == "" || u.Host == "" {
		t.post(cb, result.Errorf(result.CodeInvalidRequest, "invalid URL %q", t.url))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		t.post(cb, result.Errorf(result.CodeInvalidRequest,
			"unsupported URL scheme %q", u.Scheme))
		return
	}
	if sp := t.delegate.SitePolicy(); sp != nil && !sp.MayActOnURL(t.url) {
		t.post(cb, result.Errorf(result.CodeURLBlocked, "URL blocked for actions: %s", t.url))
		return
	}
	t.post(cb, result.Ok())
}

// TimeOfUseValidation only needs the tab to still exist; navigation does
// not depend on captured page content.
func (t *NavigateTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		return result.Errorf(result.CodeTabWentAway, "tab %d is no longer present", t.tab)
	}
	t.timeOfUseDone = true
	t.liveTab = tab
	return result.Ok()
}

// Invoke performs the navigation and commits it to the tab's session
// history.
func (t *NavigateTool) Invoke(cb result.Callback) {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		t.post(cb, result.Errorf(result.CodeTabWentAway, "tab %d went away", t.tab))
		return
	}
	if page := tab.Page(); page != nil {
		if _, err := page.Goto(t.url); err != nil {
			t.post(cb, result.Errorf(result.CodeError, "navigation failed: %v", err))
			return
		}
	}
	tab.CommitNavigation(t.url)
	t.post(cb, result.Ok())
}

// UpdateTaskBeforeInvoke registers the tab as touched.
func (t *NavigateTool) UpdateTaskBeforeInvoke(owner *task.ActorTask, cb result.Callback) {
	t.addTabToTask(owner, t.tab, cb)
}

// UpdateTaskAfterInvoke has nothing to add.
func (t *NavigateTool) UpdateTaskAfterInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// ObservationDelayer waits for the destination page to settle.
func (t *NavigateTool) ObservationDelayer() *observation.DelayController {
	if t.liveTab == nil {
		return nil
	}
	return observation.NewDelayController(t.liveTab, t.delegate.ObservationSettleDelay())
}

// DebugString renders the tool for logs.
func (t *NavigateTool) DebugString() string {
	return fmt.Sprintf("NavigateTool tab=%d url=%s", t.tab, t.url)
}

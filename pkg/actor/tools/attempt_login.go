package tools

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/fatalapps/pageactor/pkg/actor/login"
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// AttemptLoginRequest fills stored credentials into the tab's login form.
type AttemptLoginRequest struct {
	tabScoped
}

// NewAttemptLoginRequest builds an attempt-login request.
func NewAttemptLoginRequest(tab tabs.Handle) *AttemptLoginRequest {
	return &AttemptLoginRequest{tabScoped: tabScoped{tab: tab}}
}

// CreateTool instantiates the executing tool.
func (r *AttemptLoginRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	if r.tab.IsNull() {
		return nil, result.Errorf(result.CodeInvalidRequest, "attempt-login requires a tab target")
	}
	if delegate.CredentialService() == nil {
		return nil, result.Errorf(result.CodeToolCreationFailed, "no credential service available")
	}
	return &LoginTool{
		toolBase: newToolBase(taskID, delegate, r.JournalEvent()),
		tab:      r.tab,
	}, result.Ok()
}

// JournalEvent returns the trace label.
func (r *AttemptLoginRequest) JournalEvent() string {
	return "AttemptLogin"
}

// LoginTool looks up credentials for the tab's origin and fills them into
// the page's login form. The credential lookup is itself asynchronous, so
// Invoke completes on a later loop turn.
type LoginTool struct {
	toolBase
	tab     tabs.Handle
	liveTab *tabs.Tab

	mu   sync.Mutex
	done bool
}

// Validate has nothing static to check.
func (t *LoginTool) Validate(cb result.Callback) {
	t.post(cb, result.Ok())
}

// TimeOfUseValidation checks tab liveness.
func (t *LoginTool) TimeOfUseValidation(last *observation.Snapshot) result.ActionResult {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		return result.Errorf(result.CodeTabWentAway, "tab %d is no longer present", t.tab)
	}
	t.liveTab = tab
	return result.Ok()
}

// Invoke resolves credentials for the tab's origin, then fills the form.
func (t *LoginTool) Invoke(cb result.Callback) {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		t.post(cb, result.Errorf(result.CodeTabWentAway, "tab %d went away", t.tab))
		return
	}

	origin := originOf(tab.URL())
	t.delegate.CredentialService().ListCredentials(origin, func(creds []login.Credential, err error) {
		if errors.Is(err, login.ErrBusy) {
			t.finish(cb, result.Errorf(result.CodeServiceBusy, "credential service busy"))
			return
		}
		if err != nil {
			t.finish(cb, result.Errorf(result.CodeError, "credential lookup failed: %v", err))
			return
		}
		if len(creds) == 0 {
			t.finish(cb, result.Errorf(result.CodeNoCredentials,
				"no credentials for %s", origin))
			return
		}
		t.finish(cb, t.fillForm(creds[0]))
	})
}

// fillForm types the credential into the page's username and password
// fields.
func (t *LoginTool) fillForm(cred login.Credential) result.ActionResult {
	tab, ok := t.delegate.Registry().Tab(t.tab)
	if !ok {
		return result.Errorf(result.CodeTabWentAway, "tab %d went away", t.tab)
	}
	page := tab.Page()
	if page == nil {
		return result.Ok()
	}
	userField := page.Locator(`input[type="email"], input[type="text"][name*="user"], input[autocomplete="username"]`).First()
	if err := userField.Fill(cred.Username); err != nil {
		return result.Errorf(result.CodeError, "failed to fill username: %v", err)
	}
	passField := page.Locator(`input[type="password"]`).First()
	if err := passField.Fill(cred.Password); err != nil {
		return result.Errorf(result.CodeError, "failed to fill password: %v", err)
	}
	return result.Ok()
}

// finish delivers r exactly once, even if the credential service misbehaves
// and calls back twice.
func (t *LoginTool) finish(cb result.Callback, r result.ActionResult) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	t.mu.Unlock()
	t.post(cb, r)
}

// UpdateTaskBeforeInvoke registers the tab as touched.
func (t *LoginTool) UpdateTaskBeforeInvoke(owner *task.ActorTask, cb result.Callback) {
	t.addTabToTask(owner, t.tab, cb)
}

// UpdateTaskAfterInvoke has nothing to add.
func (t *LoginTool) UpdateTaskAfterInvoke(owner *task.ActorTask, cb result.Callback) {
	t.noTaskUpdate(cb)
}

// ObservationDelayer waits for the filled form to settle.
func (t *LoginTool) ObservationDelayer() *observation.DelayController {
	if t.liveTab == nil {
		return nil
	}
	return observation.NewDelayController(t.liveTab, t.delegate.ObservationSettleDelay())
}

// DebugString renders the tool for logs.
func (t *LoginTool) DebugString() string {
	return fmt.Sprintf("LoginTool tab=%d", t.tab)
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

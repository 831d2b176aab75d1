package tabs

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Tab is a live tab: a playwright page plus the session-history bookkeeping
// the pipeline needs for history validation. A Tab is only reachable
// through the registry; once removed, existing pointers stay safe to read
// but the handle no longer dereferences.
type Tab struct {
	handle Handle
	window WindowHandle
	page   playwright.Page

	mu           sync.Mutex
	lastURL      string
	historyIndex int
	historyLen   int
}

// Handle returns the tab's stable handle.
func (t *Tab) Handle() Handle {
	return t.handle
}

// WindowHandle returns the handle of the owning window.
func (t *Tab) WindowHandle() WindowHandle {
	return t.window
}

// Page returns the underlying playwright page. May be nil for tabs created
// without a live browser (tests).
func (t *Tab) Page() playwright.Page {
	return t.page
}

// URL returns the tab's last committed URL, preferring the live page when
// one is attached.
func (t *Tab) URL() string {
	if t.page != nil {
		if u := t.page.URL(); u != "" {
			return u
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastURL
}

// CommitNavigation records a new committed navigation, truncating any
// forward history the way a real session history does.
func (t *Tab) CommitNavigation(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastURL = url
	t.historyIndex++
	t.historyLen = t.historyIndex + 1
}

// CanGoBack reports whether an earlier session-history entry exists.
func (t *Tab) CanGoBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.historyIndex > 0
}

// CanGoForward reports whether a later session-history entry exists.
func (t *Tab) CanGoForward() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.historyIndex+1 < t.historyLen
}

// DidGoBack records a completed back navigation.
func (t *Tab) DidGoBack(url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.historyIndex == 0 {
		return fmt.Errorf("no back entry")
	}
	t.historyIndex--
	t.lastURL = url
	return nil
}

// DidGoForward records a completed forward navigation.
func (t *Tab) DidGoForward(url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.historyIndex+1 >= t.historyLen {
		return fmt.Errorf("no forward entry")
	}
	t.historyIndex++
	t.lastURL = url
	return nil
}

// NewDetachedTab creates a tab with no live page, registered under the
// given registry and window. Intended for tests that exercise the pipeline
// without a browser.
func NewDetachedTab(r *Registry, wh WindowHandle, url string) (*Tab, error) {
	t, err := r.AttachTab(wh, nil)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.lastURL = url
	t.mu.Unlock()
	return t, nil
}

package tabs

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Handle is a stable opaque identifier for a tab. The zero value is the
// null handle and never refers to a live tab.
type Handle int32

// NullHandle is the handle carried by requests that are not tab-scoped.
const NullHandle Handle = 0

// IsNull reports whether the handle is the null handle.
func (h Handle) IsNull() bool {
	return h == NullHandle
}

// WindowHandle is a stable opaque identifier for a browser window. The zero
// value is the null handle.
type WindowHandle int32

// NullWindowHandle never refers to a live window.
const NullWindowHandle WindowHandle = 0

// TabStripObserver receives tab-strip and window lifecycle events.
// Callbacks fire synchronously under the registry's own sequencing; keep
// them cheap and post real work onto the loop.
type TabStripObserver interface {
	// TabInserted fires when a new tab is added to a window.
	TabInserted(tab *Tab)

	// TabRemoved fires when a tab is destroyed. The handle is already dead
	// when the callback runs.
	TabRemoved(handle Handle)

	// WindowClosed fires when a window and all of its tabs are destroyed.
	WindowClosed(handle WindowHandle)
}

// Registry owns the handle space for tabs and windows.
type Registry struct {
	mu         sync.RWMutex
	nextTab    Handle
	nextWindow WindowHandle
	tabs       map[Handle]*Tab
	windows    map[WindowHandle]*Window
	observers  []TabStripObserver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tabs:    make(map[Handle]*Tab),
		windows: make(map[WindowHandle]*Window),
	}
}

// AddObserver subscribes obs to tab-strip events.
func (r *Registry) AddObserver(obs TabStripObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

// RemoveObserver unsubscribes obs. Removing an observer that was never added
// is a no-op.
func (r *Registry) RemoveObserver(obs TabStripObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.observers {
		if o == obs {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Tab dereferences a tab handle. ok is false if the handle is null or the
// tab has been destroyed.
func (r *Registry) Tab(h Handle) (*Tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tabs[h]
	return t, ok
}

// Window dereferences a window handle. ok is false if the handle is null or
// the window has been closed.
func (r *Registry) Window(h WindowHandle) (*Window, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.windows[h]
	return w, ok
}

// OpenWindow registers a new window backed by the given browser context.
// The context may be nil in tests; window operations that need it will
// fail with an explicit error.
func (r *Registry) OpenWindow(bctx playwright.BrowserContext) *Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextWindow++
	w := &Window{
		handle:   r.nextWindow,
		registry: r,
		bctx:     bctx,
	}
	r.windows[w.handle] = w
	return w
}

// AttachTab registers an externally created page as a tab of window wh and
// announces its insertion. Returns an error if the window is gone.
func (r *Registry) AttachTab(wh WindowHandle, page playwright.Page) (*Tab, error) {
	r.mu.Lock()
	if _, ok := r.windows[wh]; !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("window %d is no longer present", wh)
	}
	r.nextTab++
	t := &Tab{
		handle: r.nextTab,
		window: wh,
		page:   page,
	}
	if page != nil {
		t.lastURL = page.URL()
	}
	r.tabs[t.handle] = t
	observers := r.snapshotObserversLocked()
	r.mu.Unlock()

	for _, obs := range observers {
		obs.TabInserted(t)
	}
	return t, nil
}

// RemoveTab destroys a tab and announces its removal. Removing a dead
// handle is a no-op.
func (r *Registry) RemoveTab(h Handle) {
	r.mu.Lock()
	_, ok := r.tabs[h]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.tabs, h)
	observers := r.snapshotObserversLocked()
	r.mu.Unlock()

	for _, obs := range observers {
		obs.TabRemoved(h)
	}
}

// CloseWindow destroys a window and every tab in it, announcing each tab
// removal followed by the window close.
func (r *Registry) CloseWindow(h WindowHandle) {
	r.mu.Lock()
	w, ok := r.windows[h]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.windows, h)
	var removed []Handle
	for th, t := range r.tabs {
		if t.window == h {
			removed = append(removed, th)
			delete(r.tabs, th)
		}
	}
	observers := r.snapshotObserversLocked()
	r.mu.Unlock()

	w.markClosed()
	for _, th := range removed {
		for _, obs := range observers {
			obs.TabRemoved(th)
		}
	}
	for _, obs := range observers {
		obs.WindowClosed(h)
	}
}

func (r *Registry) snapshotObserversLocked() []TabStripObserver {
	out := make([]TabStripObserver, len(r.observers))
	copy(out, r.observers)
	return out
}

package tabs

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Window is a live browser window, backed by a playwright browser context.
// All tab creation flows through the window so insertions are announced to
// registry observers.
type Window struct {
	handle   WindowHandle
	registry *Registry
	bctx     playwright.BrowserContext

	mu     sync.Mutex
	closed bool

	// newPage overrides page creation in tests. When nil, pages come from
	// the playwright browser context.
	newPage func() (playwright.Page, error)
}

// Handle returns the window's stable handle.
func (w *Window) Handle() WindowHandle {
	return w.handle
}

// Closed reports whether the window has been closed.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// OpenTab creates a new tab in this window and announces its insertion.
// When foreground is true the new page is brought to front.
func (w *Window) OpenTab(foreground bool) (*Tab, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, fmt.Errorf("window %d is closed", w.handle)
	}
	creator := w.newPage
	w.mu.Unlock()

	var page playwright.Page
	var err error
	switch {
	case creator != nil:
		page, err = creator()
	case w.bctx != nil:
		page, err = w.bctx.NewPage()
	default:
		// No live browser attached; produce a detached tab.
		page, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	tab, err := w.registry.AttachTab(w.handle, page)
	if err != nil {
		return nil, err
	}
	if foreground && page != nil {
		if err := page.BringToFront(); err != nil {
			return tab, fmt.Errorf("failed to foreground tab: %w", err)
		}
	}
	return tab, nil
}

// SetPageFactoryForTesting replaces how OpenTab creates pages.
func (w *Window) SetPageFactoryForTesting(fn func() (playwright.Page, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.newPage = fn
}

func (w *Window) markClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

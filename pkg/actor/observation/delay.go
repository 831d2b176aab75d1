package observation

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
)

// DefaultSettleDelay is the quiet period appended after the page reaches a
// stable load state.
const DefaultSettleDelay = 100 * time.Millisecond

// DelayController waits for a page to stabilize after a tool has acted on
// it. Wait resolves exactly once; Release detaches the controller so a
// pending wait resolves without effect.
type DelayController struct {
	tab    *tabs.Tab
	settle time.Duration

	mu       sync.Mutex
	released bool
	waited   bool
}

// NewDelayController creates a waiter for the given tab. A zero settle
// duration means DefaultSettleDelay.
func NewDelayController(tab *tabs.Tab, settle time.Duration) *DelayController {
	if settle == 0 {
		settle = DefaultSettleDelay
	}
	return &DelayController{tab: tab, settle: settle}
}

// Wait blocks off-loop until the page settles, then posts cb through the
// token. Calling Wait more than once is an error surfaced by ignoring the
// later calls.
func (d *DelayController) Wait(l *loop.Loop, token *loop.Token, cb func()) {
	d.mu.Lock()
	if d.waited {
		d.mu.Unlock()
		return
	}
	d.waited = true
	d.mu.Unlock()

	go func() {
		d.waitForSettle()
		l.PostWithToken(token, func() {
			d.mu.Lock()
			released := d.released
			d.mu.Unlock()
			if released {
				return
			}
			cb()
		})
	}()
}

// Release detaches the controller. A wait still in flight resolves as a
// no-op.
func (d *DelayController) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
}

func (d *DelayController) waitForSettle() {
	if page := d.tab.Page(); page != nil {
		// Best effort: a page that never goes network-idle should not hang
		// the turn, so load-state errors and timeouts are ignored.
		_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateLoad,
			Timeout: playwright.Float(5000),
		})
	}
	time.Sleep(d.settle)
}

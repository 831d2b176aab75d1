package tools

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// MouseButton selects which button a click dispatches.
type MouseButton string

const (
	MouseButtonLeft   MouseButton = "left"
	MouseButtonRight  MouseButton = "right"
	MouseButtonMiddle MouseButton = "middle"
)

// ClickRequest clicks an element or coordinate inside a tab's document.
type ClickRequest struct {
	pageScoped
	Button MouseButton
	Count  int
}

// NewClickRequest builds a click request. Zero Button means left; zero
// Count means a single click.
func NewClickRequest(tab tabs.Handle, target PageTarget, button MouseButton, count int) *ClickRequest {
	if button == "" {
		button = MouseButtonLeft
	}
	if count == 0 {
		count = 1
	}
	return &ClickRequest{
		pageScoped: pageScoped{tabScoped: tabScoped{tab: tab}, target: target},
		Button:     button,
		Count:      count,
	}
}

// CreateTool instantiates the executing tool.
func (r *ClickRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	return newPageTool(taskID, delegate, r.JournalEvent(), r.tab, r.target,
		&clickAction{button: r.Button, count: r.Count}), result.Ok()
}

// JournalEvent returns the trace label.
func (r *ClickRequest) JournalEvent() string {
	return "Click"
}

type clickAction struct {
	button MouseButton
	count  int
}

func (a *clickAction) validate(target PageTarget) result.ActionResult {
	switch a.button {
	case MouseButtonLeft, MouseButtonRight, MouseButtonMiddle:
	default:
		return result.Errorf(result.CodeInvalidRequest, "invalid mouse button %q", a.button)
	}
	if a.count < 1 || a.count > 3 {
		return result.Errorf(result.CodeInvalidRequest, "click count %d out of range", a.count)
	}
	return result.Ok()
}

func (a *clickAction) apply(tab *tabs.Tab, target PageTarget) result.ActionResult {
	page := tab.Page()
	if page == nil {
		return result.Errorf(result.CodeFrameWentAway, "tab %d has no live page", tab.Handle())
	}

	button := playwright.MouseButton(string(a.button))
	if target.IsNode() {
		selector := nodeSelector(target.Node())
		err := page.Locator(selector).Click(playwright.LocatorClickOptions{
			Button:     &button,
			ClickCount: playwright.Int(a.count),
		})
		if err != nil {
			return result.Errorf(result.CodeInvalidNodeID,
				"failed to click node %d: %v", target.Node(), err)
		}
		return result.Ok()
	}

	p := target.Coordinate()
	err := page.Mouse().Click(p.X, p.Y, playwright.MouseClickOptions{
		Button:     &button,
		ClickCount: playwright.Int(a.count),
	})
	if err != nil {
		return result.Errorf(result.CodeError,
			"failed to click at (%v, %v): %v", p.X, p.Y, err)
	}
	return result.Ok()
}

func (a *clickAction) String() string {
	return fmt.Sprintf("click button=%s count=%d", a.button, a.count)
}

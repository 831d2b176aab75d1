package tools

import (
	"github.com/playwright-community/playwright-go"

	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// TypeRequest types text into an element. When PressEnter is set, a
// trailing Enter keypress is dispatched even if the text is empty, so a
// bare "confirm" submission is expressible.
type TypeRequest struct {
	pageScoped
	Text       string
	PressEnter bool
	Clear      bool
}

// NewTypeRequest builds a type request. Clear controls whether the field is
// emptied before typing.
func NewTypeRequest(tab tabs.Handle, target PageTarget, text string, pressEnter, clear bool) *TypeRequest {
	return &TypeRequest{
		pageScoped: pageScoped{tabScoped: tabScoped{tab: tab}, target: target},
		Text:       text,
		PressEnter: pressEnter,
		Clear:      clear,
	}
}

// CreateTool instantiates the executing tool.
func (r *TypeRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	return newPageTool(taskID, delegate, r.JournalEvent(), r.tab, r.target,
		&typeAction{text: r.Text, pressEnter: r.PressEnter, clear: r.Clear}), result.Ok()
}

// JournalEvent returns the trace label.
func (r *TypeRequest) JournalEvent() string {
	return "Type"
}

type typeAction struct {
	text       string
	pressEnter bool
	clear      bool
}

func (a *typeAction) validate(target PageTarget) result.ActionResult {
	if a.text == "" && !a.clear && !a.pressEnter {
		return result.Errorf(result.CodeInvalidRequest,
			"type request with no text, no clear, and no confirm key does nothing")
	}
	return result.Ok()
}

func (a *typeAction) apply(tab *tabs.Tab, target PageTarget) result.ActionResult {
	page := tab.Page()
	if page == nil {
		return result.Errorf(result.CodeFrameWentAway, "tab %d has no live page", tab.Handle())
	}
	if !target.IsNode() {
		// Focus whatever is at the coordinate, then type through the
		// keyboard.
		p := target.Coordinate()
		if err := page.Mouse().Click(p.X, p.Y); err != nil {
			return result.Errorf(result.CodeError, "failed to focus (%v, %v): %v", p.X, p.Y, err)
		}
		if a.text != "" {
			if err := page.Keyboard().Type(a.text); err != nil {
				return result.Errorf(result.CodeError, "failed to type: %v", err)
			}
		}
		if a.pressEnter {
			if err := page.Keyboard().Press("Enter"); err != nil {
				return result.Errorf(result.CodeError, "failed to press Enter: %v", err)
			}
		}
		return result.Ok()
	}

	locator := page.Locator(nodeSelector(target.Node()))
	if a.clear {
		if err := locator.Fill(""); err != nil {
			return result.Errorf(result.CodeInvalidNodeID,
				"failed to clear node %d: %v", target.Node(), err)
		}
	}
	if a.text != "" {
		if err := locator.PressSequentially(a.text, playwright.LocatorPressSequentiallyOptions{}); err != nil {
			return result.Errorf(result.CodeInvalidNodeID,
				"failed to type into node %d: %v", target.Node(), err)
		}
	}
	// The confirm key is dispatched even for empty text.
	if a.pressEnter {
		if err := locator.Press("Enter"); err != nil {
			return result.Errorf(result.CodeError, "failed to press Enter: %v", err)
		}
	}
	return result.Ok()
}

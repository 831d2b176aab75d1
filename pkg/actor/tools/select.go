package tools

import (
	"github.com/playwright-community/playwright-go"

	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// SelectRequest chooses an option in a select element by value.
type SelectRequest struct {
	pageScoped
	Value string
}

// NewSelectRequest builds a select request.
func NewSelectRequest(tab tabs.Handle, target PageTarget, value string) *SelectRequest {
	return &SelectRequest{
		pageScoped: pageScoped{tabScoped: tabScoped{tab: tab}, target: target},
		Value:      value,
	}
}

// CreateTool instantiates the executing tool.
func (r *SelectRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	return newPageTool(taskID, delegate, r.JournalEvent(), r.tab, r.target,
		&selectAction{value: r.Value}), result.Ok()
}

// JournalEvent returns the trace label.
func (r *SelectRequest) JournalEvent() string {
	return "Select"
}

type selectAction struct {
	value string
}

func (a *selectAction) validate(target PageTarget) result.ActionResult {
	if a.value == "" {
		return result.Errorf(result.CodeInvalidRequest, "select request has no value")
	}
	if !target.IsNode() {
		return result.Errorf(result.CodeInvalidRequest, "select requires a node target")
	}
	return result.Ok()
}

func (a *selectAction) apply(tab *tabs.Tab, target PageTarget) result.ActionResult {
	page := tab.Page()
	if page == nil {
		return result.Errorf(result.CodeFrameWentAway, "tab %d has no live page", tab.Handle())
	}
	_, err := page.Locator(nodeSelector(target.Node())).SelectOption(playwright.SelectOptionValues{
		Values: &[]string{a.value},
	})
	if err != nil {
		return result.Errorf(result.CodeInvalidNodeID,
			"failed to select %q in node %d: %v", a.value, target.Node(), err)
	}
	return result.Ok()
}

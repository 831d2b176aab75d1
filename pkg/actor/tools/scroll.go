package tools

import (
	"fmt"

	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// ScrollRequest scrolls the document or an element by a pixel offset.
// Exactly one axis offset may be non-zero; the direction is derived from
// the offset's sign.
type ScrollRequest struct {
	pageScoped
	OffsetX float64
	OffsetY float64
}

// NewScrollRequest builds a scroll request.
func NewScrollRequest(tab tabs.Handle, target PageTarget, offsetX, offsetY float64) *ScrollRequest {
	return &ScrollRequest{
		pageScoped: pageScoped{tabScoped: tabScoped{tab: tab}, target: target},
		OffsetX:    offsetX,
		OffsetY:    offsetY,
	}
}

// CreateTool instantiates the executing tool.
func (r *ScrollRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	return newPageTool(taskID, delegate, r.JournalEvent(), r.tab, r.target,
		&scrollAction{dx: r.OffsetX, dy: r.OffsetY}), result.Ok()
}

// JournalEvent returns the trace label.
func (r *ScrollRequest) JournalEvent() string {
	return "Scroll"
}

type scrollAction struct {
	dx float64
	dy float64
}

func (a *scrollAction) validate(target PageTarget) result.ActionResult {
	if a.dx != 0 && a.dy != 0 {
		return result.Errorf(result.CodeInvalidRequest,
			"scroll offsets are mutually exclusive: got x=%v y=%v", a.dx, a.dy)
	}
	if a.dx == 0 && a.dy == 0 {
		return result.Errorf(result.CodeInvalidRequest, "scroll request has zero offset")
	}
	return result.Ok()
}

func (a *scrollAction) apply(tab *tabs.Tab, target PageTarget) result.ActionResult {
	page := tab.Page()
	if page == nil {
		return result.Errorf(result.CodeFrameWentAway, "tab %d has no live page", tab.Handle())
	}

	if target.IsNode() {
		script := fmt.Sprintf(`(el) => el.scrollBy(%v, %v)`, a.dx, a.dy)
		if _, err := page.Locator(nodeSelector(target.Node())).Evaluate(script, nil); err != nil {
			return result.Errorf(result.CodeInvalidNodeID,
				"failed to scroll node %d: %v", target.Node(), err)
		}
		return result.Ok()
	}

	p := target.Coordinate()
	if err := page.Mouse().Move(p.X, p.Y); err != nil {
		return result.Errorf(result.CodeError, "failed to position mouse: %v", err)
	}
	if err := page.Mouse().Wheel(a.dx, a.dy); err != nil {
		return result.Errorf(result.CodeError, "failed to scroll: %v", err)
	}
	return result.Ok()
}

package tools

import (
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// DragRequest presses at the target, moves to the release point, and
// releases. The release point is a viewport coordinate.
type DragRequest struct {
	pageScoped
	Release Point
}

// NewDragRequest builds a drag-and-release request.
func NewDragRequest(tab tabs.Handle, target PageTarget, release Point) *DragRequest {
	return &DragRequest{
		pageScoped: pageScoped{tabScoped: tabScoped{tab: tab}, target: target},
		Release:    release,
	}
}

// CreateTool instantiates the executing tool.
func (r *DragRequest) CreateTool(taskID task.ID, delegate Delegate) (Tool, result.ActionResult) {
	return newPageTool(taskID, delegate, r.JournalEvent(), r.tab, r.target,
		&dragAction{release: r.Release}), result.Ok()
}

// JournalEvent returns the trace label.
func (r *DragRequest) JournalEvent() string {
	return "DragAndRelease"
}

type dragAction struct {
	release Point
}

func (a *dragAction) validate(target PageTarget) result.ActionResult {
	if a.release.X < 0 || a.release.Y < 0 {
		return result.Errorf(result.CodeInvalidRequest,
			"drag release point (%v, %v) is negative", a.release.X, a.release.Y)
	}
	return result.Ok()
}

func (a *dragAction) apply(tab *tabs.Tab, target PageTarget) result.ActionResult {
	page := tab.Page()
	if page == nil {
		return result.Errorf(result.CodeFrameWentAway, "tab %d has no live page", tab.Handle())
	}

	start := target.Coordinate()
	if target.IsNode() {
		box, err := page.Locator(nodeSelector(target.Node())).BoundingBox()
		if err != nil || box == nil {
			return result.Errorf(result.CodeInvalidNodeID,
				"failed to locate node %d for drag", target.Node())
		}
		start = Point{X: box.X + box.Width/2, Y: box.Y + box.Height/2}
	}

	mouse := page.Mouse()
	if err := mouse.Move(start.X, start.Y); err != nil {
		return result.Errorf(result.CodeError, "drag move failed: %v", err)
	}
	if err := mouse.Down(); err != nil {
		return result.Errorf(result.CodeError, "drag press failed: %v", err)
	}
	if err := mouse.Move(a.release.X, a.release.Y); err != nil {
		// Release the button even when the move fails so the page is not
		// left mid-drag.
		_ = mouse.Up()
		return result.Errorf(result.CodeError, "drag move failed: %v", err)
	}
	if err := mouse.Up(); err != nil {
		return result.Errorf(result.CodeError, "drag release failed: %v", err)
	}
	return result.Ok()
}

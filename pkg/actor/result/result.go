// Package result defines ActionResult, the uniform success/failure value
// produced by every phase of the tool-execution pipeline.
//
// Failures are values, never panics: every phase of tool creation,
// validation, and invocation reports its outcome as an ActionResult, and
// callers use IsOk as the sole success predicate. The Code set is closed;
// new failure kinds get a new code rather than overloading CodeError.
package result

import "fmt"

// Code classifies the outcome of a pipeline phase.
type Code int

const (
	// CodeOk indicates success.
	CodeOk Code = iota

	// CodeError is a generic failure with no more specific classification.
	CodeError

	// CodeInvalidRequest indicates a malformed or unsupported request.
	CodeInvalidRequest

	// CodeToolCreationFailed indicates the request could not produce a tool.
	CodeToolCreationFailed

	// CodeTabWentAway indicates the target tab no longer exists.
	CodeTabWentAway

	// CodeFrameWentAway indicates the target document/frame no longer exists.
	CodeFrameWentAway

	// CodeWindowWentAway indicates the target browser window was closed.
	CodeWindowWentAway

	// CodeTaskWentAway indicates the owning task ended before the tool ran.
	CodeTaskWentAway

	// CodeInvalidNodeID indicates the targeted DOM node is not present.
	CodeInvalidNodeID

	// CodeElementDisabled indicates the targeted element cannot be interacted
	// with because it is disabled.
	CodeElementDisabled

	// CodeElementOffscreen indicates the targeted element is outside the
	// visible viewport.
	CodeElementOffscreen

	// CodeCoordinatesOutOfBounds indicates a coordinate target lies outside
	// the viewport.
	CodeCoordinatesOutOfBounds

	// CodeURLBlocked indicates site policy forbids acting on the URL.
	CodeURLBlocked

	// CodeCrossOriginNavigation indicates the page navigated cross-origin
	// between planning and acting.
	CodeCrossOriginNavigation

	// CodeHistoryNoBackEntries indicates there is no earlier session-history
	// entry to go back to.
	CodeHistoryNoBackEntries

	// CodeHistoryNoForwardEntries indicates there is no later session-history
	// entry to go forward to.
	CodeHistoryNoForwardEntries

	// CodeObservedStateMismatch indicates time-of-use validation found the
	// live page no longer matches the snapshot the action was planned
	// against.
	CodeObservedStateMismatch

	// CodeNoCredentials indicates no stored credentials exist for the target
	// origin.
	CodeNoCredentials

	// CodeServiceBusy indicates an external service already has a request in
	// flight.
	CodeServiceBusy

	// CodeScriptFailed indicates page script evaluation raised an error.
	CodeScriptFailed

	// CodeInvalidState indicates a lifecycle method was called in a state
	// where it is not legal.
	CodeInvalidState

	// CodeActionInProgress indicates a new action was submitted while a
	// previous one is still executing.
	CodeActionInProgress

	// CodeCancelled indicates the action was cancelled before completing.
	CodeCancelled
)

// String returns the stable name of the code, suitable for journals,
// metrics labels, and debug output.
func (c Code) String() string {
	switch c {
	case CodeOk:
		return "Ok"
	case CodeError:
		return "Error"
	case CodeInvalidRequest:
		return "InvalidRequest"
	case CodeToolCreationFailed:
		return "ToolCreationFailed"
	case CodeTabWentAway:
		return "TabWentAway"
	case CodeFrameWentAway:
		return "FrameWentAway"
	case CodeWindowWentAway:
		return "WindowWentAway"
	case CodeTaskWentAway:
		return "TaskWentAway"
	case CodeInvalidNodeID:
		return "InvalidNodeID"
	case CodeElementDisabled:
		return "ElementDisabled"
	case CodeElementOffscreen:
		return "ElementOffscreen"
	case CodeCoordinatesOutOfBounds:
		return "CoordinatesOutOfBounds"
	case CodeURLBlocked:
		return "URLBlocked"
	case CodeCrossOriginNavigation:
		return "CrossOriginNavigation"
	case CodeHistoryNoBackEntries:
		return "HistoryNoBackEntries"
	case CodeHistoryNoForwardEntries:
		return "HistoryNoForwardEntries"
	case CodeObservedStateMismatch:
		return "ObservedStateMismatch"
	case CodeNoCredentials:
		return "NoCredentials"
	case CodeServiceBusy:
		return "ServiceBusy"
	case CodeScriptFailed:
		return "ScriptFailed"
	case CodeInvalidState:
		return "InvalidState"
	case CodeActionInProgress:
		return "ActionInProgress"
	case CodeCancelled:
		return "Cancelled"
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// ActionResult is the outcome of one pipeline phase: a status code plus a
// human-readable message. It is an immutable value; construct new results
// rather than mutating existing ones.
type ActionResult struct {
	Code    Code
	Message string
}

// Ok returns a successful result.
func Ok() ActionResult {
	return ActionResult{Code: CodeOk}
}

// Error returns a failed result with the given code and no message.
func Error(code Code) ActionResult {
	return ActionResult{Code: code}
}

// Errorf returns a failed result with the given code and a formatted message.
func Errorf(code Code, format string, args ...any) ActionResult {
	return ActionResult{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsOk reports whether the result represents success. It is the sole
// success predicate used across the pipeline.
func IsOk(r ActionResult) bool {
	return r.Code == CodeOk
}

// DebugString renders the result for journals and logs.
func (r ActionResult) DebugString() string {
	if r.Message == "" {
		return r.Code.String()
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Callback is a single-shot continuation receiving the final result of an
// async phase. Every phase contract in the pipeline guarantees it is
// invoked exactly once, possibly on a later turn of the event loop.
type Callback func(ActionResult)

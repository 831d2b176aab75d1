package controller

import "fmt"

// State is a phase of the controller's lifecycle for one tool turn.
type State int

const (
	// StateInit is the state of a freshly constructed controller.
	StateInit State = iota

	// StateReady is the idle state between turns and the terminal state of
	// every turn.
	StateReady

	// StateCreating covers ToolRequest.CreateTool.
	StateCreating

	// StateValidating covers Tool.Validate.
	StateValidating

	// StatePostValidate covers Tool.UpdateTaskBeforeInvoke.
	StatePostValidate

	// StateInvokable means the tool is staged: validated and bookkept but
	// not yet acted. Only Invoke is legal here.
	StateInvokable

	// StatePreInvoke covers Tool.TimeOfUseValidation.
	StatePreInvoke

	// StateInvoking covers Tool.Invoke and the observation delay.
	StateInvoking

	// StatePostInvoke covers Tool.UpdateTaskAfterInvoke.
	StatePostInvoke
)

// String returns the state's journal label.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateReady:
		return "READY"
	case StateCreating:
		return "CREATING"
	case StateValidating:
		return "VALIDATING"
	case StatePostValidate:
		return "POST_VALIDATE"
	case StateInvokable:
		return "INVOKABLE"
	case StatePreInvoke:
		return "PRE_INVOKE"
	case StateInvoking:
		return "INVOKING"
	case StatePostInvoke:
		return "POST_INVOKE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions is the legal transition table. Every non-READY state except
// POST_INVOKE may fall back directly to READY on failure; only INIT and
// READY admit a new turn.
var transitions = map[State][]State{
	StateInit:         {StateCreating},
	StateReady:        {StateCreating},
	StateCreating:     {StateValidating, StateReady},
	StateValidating:   {StatePostValidate, StateReady},
	StatePostValidate: {StateInvokable, StateReady},
	StateInvokable:    {StatePreInvoke, StateReady},
	StatePreInvoke:    {StateInvoking, StateReady},
	StateInvoking:     {StatePostInvoke, StateReady},
	StatePostInvoke:   {StateReady},
}

// checkTransition returns an error for transitions absent from the table.
// The check runs in every build configuration, not only under debugging.
func checkTransition(from, to State) error {
	for _, legal := range transitions[from] {
		if legal == to {
			return nil
		}
	}
	return fmt.Errorf("illegal state transition %s -> %s", from, to)
}

// canStartTurn reports whether a new CreateToolAndValidate call is legal.
func canStartTurn(s State) bool {
	return s == StateInit || s == StateReady
}

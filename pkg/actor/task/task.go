// Package task defines ActorTask, the higher-level unit of work that owns
// tool executions and tracks which tabs they have touched.
//
// A task outlives many individual tool turns. Tools register the tabs they
// act on so that later observations cover everything the task has
// interacted with.
package task

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
)

// ID is a stable opaque task identifier. It stays meaningful even after the
// task itself ends.
type ID string

// NewID allocates a fresh task identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// State describes where a task is in its lifecycle.
type State int

const (
	// StateCreated means the task exists but has not acted yet.
	StateCreated State = iota

	// StateActing means the task has at least one action in flight.
	StateActing

	// StateFinished means the task ended and accepts no further actions.
	StateFinished
)

// ActorTask tracks the tabs touched over a task's lifetime. All mutation
// happens on the event loop; the mutex only guards cross-goroutine reads
// by observability tooling.
type ActorTask struct {
	id   ID
	loop *loop.Loop

	mu    sync.Mutex
	state State
	tabs  map[tabs.Handle]struct{}
}

// New creates a task in the Created state.
func New(id ID, l *loop.Loop) *ActorTask {
	return &ActorTask{
		id:   id,
		loop: l,
		tabs: make(map[tabs.Handle]struct{}),
	}
}

// ID returns the task's identifier.
func (t *ActorTask) ID() ID {
	return t.id
}

// State returns the task's current lifecycle state.
func (t *ActorTask) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState moves the task to a new lifecycle state.
func (t *ActorTask) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// AddTab registers a tab as touched by this task and resumes cb on the next
// loop turn. The bookkeeping itself is synchronous; the posted callback
// keeps the caller's phase boundary a real suspension point.
func (t *ActorTask) AddTab(h tabs.Handle, cb result.Callback) {
	if h.IsNull() {
		t.loop.Post(func() {
			cb(result.Errorf(result.CodeError, "cannot add null tab handle to task"))
		})
		return
	}
	t.mu.Lock()
	t.tabs[h] = struct{}{}
	t.mu.Unlock()

	t.loop.Post(func() {
		cb(result.Ok())
	})
}

// Tabs returns a snapshot of the touched-tab set.
func (t *ActorTask) Tabs() []tabs.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]tabs.Handle, 0, len(t.tabs))
	for h := range t.tabs {
		out = append(out, h)
	}
	return out
}

// HasTab reports whether the task has touched the given tab.
func (t *ActorTask) HasTab(h tabs.Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tabs[h]
	return ok
}

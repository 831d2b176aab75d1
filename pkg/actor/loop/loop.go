// Package loop provides the single-threaded cooperative scheduler the
// tool-execution pipeline runs on.
//
// All controller and tool state is owned by one goroutine: the one running
// Loop.Run (or, in tests, driving RunUntilIdle). Async phases hand control
// back by posting their continuation onto the loop instead of calling it
// inline, so every phase boundary is a suspension point and no two
// continuations ever run concurrently.
//
// Tokens model the "don't resurrect a dead owner" guarantee: a continuation
// posted through a token becomes a no-op once the token is invalidated,
// so destroying a controller mid-flight cannot lead to a callback firing
// against stale state.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a serial task queue. Post is safe from any goroutine; queued
// functions execute one at a time, in order, on the goroutine driving the
// loop.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	running atomic.Bool
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn to run on a future turn of the loop. It never runs fn
// inline.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// PostDelayed enqueues fn to run after at least d has elapsed. The delay is
// measured off-loop; fn still executes on the loop goroutine.
func (l *Loop) PostDelayed(fn func(), d time.Duration) {
	if d <= 0 {
		l.Post(fn)
		return
	}
	timer := time.AfterFunc(d, func() {
		l.Post(fn)
	})
	_ = timer
}

// PostWithToken enqueues fn guarded by token: if the token has been
// invalidated by the time the loop reaches it, fn is dropped.
func (l *Loop) PostWithToken(token *Token, fn func()) {
	l.Post(func() {
		if !token.Valid() {
			return
		}
		fn()
	})
}

// Run executes queued tasks until ctx is cancelled. Only one Run (or
// RunUntilIdle driver) may be active at a time.
func (l *Loop) Run(ctx context.Context) {
	if !l.running.CompareAndSwap(false, true) {
		panic("loop: Run called while already running")
	}
	defer l.running.Store(false)

	for {
		if !l.drain() {
			return
		}
		select {
		case <-ctx.Done():
			l.close()
			return
		case <-l.wake:
		}
	}
}

// RunUntilIdle executes queued tasks, including tasks posted by those tasks,
// until the queue is empty. It is the unit-test driver; production code
// uses Run.
func (l *Loop) RunUntilIdle() {
	if !l.running.CompareAndSwap(false, true) {
		panic("loop: RunUntilIdle called while already running")
	}
	defer l.running.Store(false)
	l.drain()
}

// drain runs queued tasks until the queue is empty. Returns false once the
// loop is closed.
func (l *Loop) drain() bool {
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return false
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return true
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
	}
}

func (l *Loop) close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
}

// Token is an invalidatable guard bound into posted continuations. The zero
// value is not usable; create tokens with NewToken.
type Token struct {
	valid atomic.Bool
}

// NewToken returns a valid token.
func NewToken() *Token {
	t := &Token{}
	t.valid.Store(true)
	return t
}

// Valid reports whether continuations guarded by the token may still run.
func (t *Token) Valid() bool {
	return t.valid.Load()
}

// Invalidate permanently disarms the token. Continuations already queued
// under it become no-ops.
func (t *Token) Invalidate() {
	t.valid.Store(false)
}

package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
)

func TestNewIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func TestNewTaskStartsCreated(t *testing.T) {
	tk := New(NewID(), loop.New())
	assert.Equal(t, StateCreated, tk.State())
	assert.Empty(t, tk.Tabs())
}

func TestSetState(t *testing.T) {
	tk := New(NewID(), loop.New())
	tk.SetState(StateActing)
	assert.Equal(t, StateActing, tk.State())
	tk.SetState(StateFinished)
	assert.Equal(t, StateFinished, tk.State())
}

func TestAddTab(t *testing.T) {
	l := loop.New()
	tk := New(NewID(), l)

	var got *result.ActionResult
	tk.AddTab(tabs.Handle(7), func(res result.ActionResult) {
		got = &res
	})

	assert.Nil(t, got, "callback must be posted, not run inline")
	l.RunUntilIdle()

	require.NotNil(t, got)
	assert.True(t, result.IsOk(*got))
	assert.True(t, tk.HasTab(tabs.Handle(7)))
	assert.Equal(t, []tabs.Handle{7}, tk.Tabs())
}

func TestAddTabIsIdempotent(t *testing.T) {
	l := loop.New()
	tk := New(NewID(), l)

	tk.AddTab(tabs.Handle(7), func(result.ActionResult) {})
	tk.AddTab(tabs.Handle(7), func(result.ActionResult) {})
	l.RunUntilIdle()

	assert.Len(t, tk.Tabs(), 1)
}

func TestAddNullTabFails(t *testing.T) {
	l := loop.New()
	tk := New(NewID(), l)

	var got *result.ActionResult
	tk.AddTab(tabs.NullHandle, func(res result.ActionResult) {
		got = &res
	})
	l.RunUntilIdle()

	require.NotNil(t, got)
	assert.Equal(t, result.CodeError, got.Code)
	assert.False(t, tk.HasTab(tabs.NullHandle))
}

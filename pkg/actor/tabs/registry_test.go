package tabs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver captures tab-strip events in order.
type recordingObserver struct {
	inserted []Handle
	removed  []Handle
	closed   []WindowHandle
	events   []string
}

func (o *recordingObserver) TabInserted(tab *Tab) {
	o.inserted = append(o.inserted, tab.Handle())
	o.events = append(o.events, "insert")
}

func (o *recordingObserver) TabRemoved(h Handle) {
	o.removed = append(o.removed, h)
	o.events = append(o.events, "remove")
}

func (o *recordingObserver) WindowClosed(h WindowHandle) {
	o.closed = append(o.closed, h)
	o.events = append(o.events, "window-closed")
}

func TestNullHandles(t *testing.T) {
	assert.True(t, NullHandle.IsNull())
	assert.False(t, Handle(1).IsNull())

	r := NewRegistry()
	_, ok := r.Tab(NullHandle)
	assert.False(t, ok, "null handle must never dereference")
	_, ok = r.Window(NullWindowHandle)
	assert.False(t, ok)
}

func TestHandlesAreStableAndUnique(t *testing.T) {
	r := NewRegistry()
	w := r.OpenWindow(nil)

	t1, err := NewDetachedTab(r, w.Handle(), "https://a.test/")
	require.NoError(t, err)
	t2, err := NewDetachedTab(r, w.Handle(), "https://b.test/")
	require.NoError(t, err)

	assert.NotEqual(t, t1.Handle(), t2.Handle())

	got, ok := r.Tab(t1.Handle())
	require.True(t, ok)
	assert.Same(t, t1, got)

	// Handles are never reused after removal.
	r.RemoveTab(t1.Handle())
	_, ok = r.Tab(t1.Handle())
	assert.False(t, ok, "removed handle must stop dereferencing")

	t3, err := NewDetachedTab(r, w.Handle(), "https://c.test/")
	require.NoError(t, err)
	assert.NotEqual(t, t1.Handle(), t3.Handle())
}

func TestAttachTabToClosedWindowFails(t *testing.T) {
	r := NewRegistry()
	w := r.OpenWindow(nil)
	r.CloseWindow(w.Handle())

	_, err := NewDetachedTab(r, w.Handle(), "")
	assert.Error(t, err)
}

func TestObserverSeesInsertAndRemove(t *testing.T) {
	r := NewRegistry()
	obs := &recordingObserver{}
	r.AddObserver(obs)

	w := r.OpenWindow(nil)
	tab, err := NewDetachedTab(r, w.Handle(), "")
	require.NoError(t, err)

	require.Len(t, obs.inserted, 1)
	assert.Equal(t, tab.Handle(), obs.inserted[0])

	r.RemoveTab(tab.Handle())
	require.Len(t, obs.removed, 1)
	assert.Equal(t, tab.Handle(), obs.removed[0])

	// Removing a dead handle fires nothing.
	r.RemoveTab(tab.Handle())
	assert.Len(t, obs.removed, 1)
}

func TestCloseWindowRemovesTabsThenWindow(t *testing.T) {
	r := NewRegistry()
	obs := &recordingObserver{}
	r.AddObserver(obs)

	w := r.OpenWindow(nil)
	t1, err := NewDetachedTab(r, w.Handle(), "")
	require.NoError(t, err)
	t2, err := NewDetachedTab(r, w.Handle(), "")
	require.NoError(t, err)

	r.CloseWindow(w.Handle())

	assert.ElementsMatch(t, []Handle{t1.Handle(), t2.Handle()}, obs.removed)
	require.Len(t, obs.closed, 1)
	assert.Equal(t, w.Handle(), obs.closed[0])
	// All tab removals announce before the window close.
	assert.Equal(t, []string{"insert", "insert", "remove", "remove", "window-closed"}, obs.events)

	assert.True(t, w.Closed())
	_, ok := r.Window(w.Handle())
	assert.False(t, ok)
	_, ok = r.Tab(t1.Handle())
	assert.False(t, ok)
}

func TestRemoveObserver(t *testing.T) {
	r := NewRegistry()
	obs := &recordingObserver{}
	r.AddObserver(obs)
	r.RemoveObserver(obs)

	w := r.OpenWindow(nil)
	_, err := NewDetachedTab(r, w.Handle(), "")
	require.NoError(t, err)
	assert.Empty(t, obs.inserted)

	// Removing an observer that was never added is a no-op.
	r.RemoveObserver(&recordingObserver{})
}

func TestOpenTabOnClosedWindowFails(t *testing.T) {
	r := NewRegistry()
	w := r.OpenWindow(nil)
	r.CloseWindow(w.Handle())

	_, err := w.OpenTab(false)
	assert.Error(t, err)
}

func TestOpenTabWithoutBrowserProducesDetachedTab(t *testing.T) {
	r := NewRegistry()
	w := r.OpenWindow(nil)

	tab, err := w.OpenTab(false)
	require.NoError(t, err)
	assert.Nil(t, tab.Page())
	assert.Equal(t, w.Handle(), tab.WindowHandle())
}

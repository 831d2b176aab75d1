package tabs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistoryTab(t *testing.T) *Tab {
	t.Helper()
	r := NewRegistry()
	w := r.OpenWindow(nil)
	tab, err := NewDetachedTab(r, w.Handle(), "https://start.test/")
	require.NoError(t, err)
	return tab
}

func TestFreshTabHasNoHistory(t *testing.T) {
	tab := newHistoryTab(t)
	assert.False(t, tab.CanGoBack())
	assert.False(t, tab.CanGoForward())
	assert.Equal(t, "https://start.test/", tab.URL())
}

func TestCommitNavigationEnablesBack(t *testing.T) {
	tab := newHistoryTab(t)
	tab.CommitNavigation("https://a.test/")

	assert.True(t, tab.CanGoBack())
	assert.False(t, tab.CanGoForward())
	assert.Equal(t, "https://a.test/", tab.URL())
}

func TestBackThenForward(t *testing.T) {
	tab := newHistoryTab(t)
	tab.CommitNavigation("https://a.test/")
	tab.CommitNavigation("https://b.test/")

	require.NoError(t, tab.DidGoBack("https://a.test/"))
	assert.Equal(t, "https://a.test/", tab.URL())
	assert.True(t, tab.CanGoBack())
	assert.True(t, tab.CanGoForward())

	require.NoError(t, tab.DidGoForward("https://b.test/"))
	assert.Equal(t, "https://b.test/", tab.URL())
	assert.False(t, tab.CanGoForward())
}

func TestBackAtOldestEntryFails(t *testing.T) {
	tab := newHistoryTab(t)
	assert.Error(t, tab.DidGoBack("https://nowhere.test/"))
}

func TestForwardAtNewestEntryFails(t *testing.T) {
	tab := newHistoryTab(t)
	tab.CommitNavigation("https://a.test/")
	assert.Error(t, tab.DidGoForward("https://nowhere.test/"))
}

func TestCommitNavigationTruncatesForwardHistory(t *testing.T) {
	tab := newHistoryTab(t)
	tab.CommitNavigation("https://a.test/")
	tab.CommitNavigation("https://b.test/")
	require.NoError(t, tab.DidGoBack("https://a.test/"))
	require.True(t, tab.CanGoForward())

	// Navigating from the middle of history discards the forward entries.
	tab.CommitNavigation("https://c.test/")
	assert.False(t, tab.CanGoForward())
	assert.True(t, tab.CanGoBack())
	assert.Equal(t, "https://c.test/", tab.URL())
}

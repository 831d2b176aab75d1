package observation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveDocumentIDWithoutPage(t *testing.T) {
	tab := newDetachedTab(t)
	id, err := LiveDocumentID(tab)
	require.NoError(t, err)
	assert.Empty(t, id, "a detached tab exposes no live document")
}

func TestLiveNodePresentWithoutPage(t *testing.T) {
	// Without a live page the snapshot stays authoritative, so presence
	// checks must not fail the validation.
	tab := newDetachedTab(t)
	present, err := LiveNodePresent(tab, 3)
	require.NoError(t, err)
	assert.True(t, present)
}

func TestCaptureRequiresLivePage(t *testing.T) {
	tab := newDetachedTab(t)
	_, err := Capture(tab)
	assert.Error(t, err)
}

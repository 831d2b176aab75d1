package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

func TestScriptCreateToolRequiresTab(t *testing.T) {
	d := newTestDelegate(t)
	tool, res := NewScriptRequest(tabs.NullHandle, "1 + 1").CreateTool(task.NewID(), d)
	assert.Nil(t, tool)
	assert.Equal(t, result.CodeInvalidRequest, res.Code)
}

func TestScriptValidateRejectsEmptyScript(t *testing.T) {
	d := newTestDelegate(t)
	tab := newTestTab(t, d, "https://example.com")
	tool := buildTool(t, d, NewScriptRequest(tab.Handle(), ""))
	assert.Equal(t, result.CodeInvalidRequest, driveValidate(t, d, tool).Code)
}

func TestScriptTimeOfUseRequiresLiveTab(t *testing.T) {
	d := newTestDelegate(t)
	tab := newTestTab(t, d, "https://example.com")
	tool := buildTool(t, d, NewScriptRequest(tab.Handle(), "document.title"))

	require.True(t, result.IsOk(driveValidate(t, d, tool)))
	require.True(t, result.IsOk(tool.TimeOfUseValidation(plannedSnapshot("https://example.com"))))

	d.registry.RemoveTab(tab.Handle())
	tool = buildTool(t, d, NewScriptRequest(tab.Handle(), "document.title"))
	assert.Equal(t, result.CodeTabWentAway, tool.TimeOfUseValidation(nil).Code)
}

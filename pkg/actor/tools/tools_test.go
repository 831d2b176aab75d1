package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatalapps/pageactor/pkg/actor/journal"
	"github.com/fatalapps/pageactor/pkg/actor/login"
	"github.com/fatalapps/pageactor/pkg/actor/loop"
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/policy"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/task"
)

// testDelegate is a minimal environment for driving tools directly.
type testDelegate struct {
	registry    *tabs.Registry
	journ       *journal.Journal
	eventLoop   *loop.Loop
	credentials login.CredentialService
	sitePolicy  *policy.SitePolicy
	settle      time.Duration
}

func newTestDelegate(t *testing.T) *testDelegate {
	t.Helper()
	sp, err := policy.New(nil)
	require.NoError(t, err)
	return &testDelegate{
		registry:   tabs.NewRegistry(),
		journ:      journal.New(),
		eventLoop:  loop.New(),
		sitePolicy: sp,
		settle:     time.Millisecond,
	}
}

func (d *testDelegate) Registry() *tabs.Registry                  { return d.registry }
func (d *testDelegate) Journal() *journal.Journal                 { return d.journ }
func (d *testDelegate) Loop() *loop.Loop                          { return d.eventLoop }
func (d *testDelegate) CredentialService() login.CredentialService { return d.credentials }
func (d *testDelegate) SitePolicy() *policy.SitePolicy            { return d.sitePolicy }
func (d *testDelegate) ObservationSettleDelay() time.Duration     { return d.settle }

// newTestTab registers a detached tab in a fresh window.
func newTestTab(t *testing.T, d *testDelegate, url string) *tabs.Tab {
	t.Helper()
	w := d.registry.OpenWindow(nil)
	tab, err := tabs.NewDetachedTab(d.registry, w.Handle(), url)
	require.NoError(t, err)
	return tab
}

// buildTool runs CreateTool and requires success.
func buildTool(t *testing.T, d *testDelegate, req ToolRequest) Tool {
	t.Helper()
	tool, res := req.CreateTool(task.NewID(), d)
	require.True(t, result.IsOk(res), "CreateTool failed: %s", res.DebugString())
	require.NotNil(t, tool)
	return tool
}

// driveValidate runs Validate and drains the loop to collect the posted
// result.
func driveValidate(t *testing.T, d *testDelegate, tool Tool) result.ActionResult {
	t.Helper()
	var got *result.ActionResult
	tool.Validate(func(res result.ActionResult) {
		got = &res
	})
	require.Nil(t, got, "Validate must post its result, not run it inline")
	d.eventLoop.RunUntilIdle()
	require.NotNil(t, got, "Validate never resumed its callback")
	return *got
}

// driveInvoke runs Invoke and drains the loop to collect the posted result.
func driveInvoke(t *testing.T, d *testDelegate, tool Tool) result.ActionResult {
	t.Helper()
	var got *result.ActionResult
	tool.Invoke(func(res result.ActionResult) {
		got = &res
	})
	d.eventLoop.RunUntilIdle()
	require.NotNil(t, got, "Invoke never resumed its callback")
	return *got
}

// plannedSnapshot returns a snapshot with one clickable node (id 1), one
// disabled node (id 2), and one invisible node (id 3).
func plannedSnapshot(url string) *observation.Snapshot {
	s := observation.NewSnapshot("doc-1", url,
		observation.Rect{X: 0, Y: 0, Width: 1280, Height: 720})
	s.AddNode(observation.Node{
		ID: 1, Tag: "button", Visible: true,
		Rect: observation.Rect{X: 10, Y: 10, Width: 100, Height: 20},
	})
	s.AddNode(observation.Node{
		ID: 2, Tag: "button", Visible: true, Disabled: true,
		Rect: observation.Rect{X: 10, Y: 40, Width: 100, Height: 20},
	})
	s.AddNode(observation.Node{
		ID: 3, Tag: "button", Visible: false,
		Rect: observation.Rect{X: 10, Y: 70, Width: 100, Height: 20},
	})
	return s
}

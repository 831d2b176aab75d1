package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/tabs"
	"github.com/fatalapps/pageactor/pkg/actor/tools"
)

// Script is a YAML-described sequence of actions to run against the
// focused tab.
type Script struct {
	Actions []ScriptAction `yaml:"actions"`
}

// ScriptAction is one step of a script. Action selects the tool; the
// remaining fields are per-tool parameters.
type ScriptAction struct {
	Action string `yaml:"action"`

	// Element targeting: a node id from the last observation, or page
	// coordinates when node is absent.
	Node int     `yaml:"node"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`

	URL        string        `yaml:"url"`
	Text       string        `yaml:"text"`
	PressEnter bool          `yaml:"press_enter"`
	Clear      bool          `yaml:"clear"`
	Button     string        `yaml:"button"`
	Count      int           `yaml:"count"`
	Value      string        `yaml:"value"`
	OffsetX    float64       `yaml:"offset_x"`
	OffsetY    float64       `yaml:"offset_y"`
	ReleaseX   float64       `yaml:"release_x"`
	ReleaseY   float64       `yaml:"release_y"`
	Duration   time.Duration `yaml:"duration"`
	Script     string        `yaml:"script"`
	Foreground bool          `yaml:"foreground"`
}

// loadScript reads and parses a script file.
func loadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	if len(s.Actions) == 0 {
		return nil, fmt.Errorf("script %s has no actions", path)
	}
	return &s, nil
}

// Requests converts the script into tool requests bound to the given tab
// and window.
func (s *Script) Requests(tab tabs.Handle, window tabs.WindowHandle) ([]tools.ToolRequest, error) {
	reqs := make([]tools.ToolRequest, 0, len(s.Actions))
	for i, a := range s.Actions {
		req, err := a.request(tab, window)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (a ScriptAction) target() tools.PageTarget {
	if a.Node > 0 {
		return tools.NodeTarget(observation.NodeID(a.Node))
	}
	return tools.CoordinateTarget(a.X, a.Y)
}

func (a ScriptAction) request(tab tabs.Handle, window tabs.WindowHandle) (tools.ToolRequest, error) {
	switch a.Action {
	case "navigate":
		return tools.NewNavigateRequest(tab, a.URL), nil
	case "click":
		return tools.NewClickRequest(tab, a.target(), tools.MouseButton(a.Button), a.Count), nil
	case "type":
		return tools.NewTypeRequest(tab, a.target(), a.Text, a.PressEnter, a.Clear), nil
	case "scroll":
		return tools.NewScrollRequest(tab, a.target(), a.OffsetX, a.OffsetY), nil
	case "select":
		return tools.NewSelectRequest(tab, a.target(), a.Value), nil
	case "drag":
		return tools.NewDragRequest(tab, a.target(), tools.Point{X: a.ReleaseX, Y: a.ReleaseY}), nil
	case "back":
		return tools.NewHistoryRequest(tab, tools.HistoryBack), nil
	case "forward":
		return tools.NewHistoryRequest(tab, tools.HistoryForward), nil
	case "wait":
		return tools.NewWaitRequest(a.Duration), nil
	case "script":
		return tools.NewScriptRequest(tab, a.Script), nil
	case "attempt_login":
		return tools.NewAttemptLoginRequest(tab), nil
	case "create_tab":
		return tools.NewCreateTabRequest(window, a.Foreground), nil
	case "activate_tab":
		return tools.NewActivateTabRequest(tab), nil
	case "close_tab":
		return tools.NewCloseTabRequest(tab), nil
	case "":
		return nil, fmt.Errorf("missing action name")
	default:
		return nil, fmt.Errorf("unknown action %q", a.Action)
	}
}

// File: internal/env/miniwob/simulator.go
package miniwob

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/xkilldash9x/webgym/internal/env"
)

// ActionType is a primitive the simulator understands.
type ActionType string

const (
	ActionNone                     ActionType = "NONE"
	ActionMoveCoords               ActionType = "MOVE_COORDS"
	ActionClickCoords              ActionType = "CLICK_COORDS"
	ActionDblclickCoords           ActionType = "DBLCLICK_COORDS"
	ActionMousedownCoords          ActionType = "MOUSEDOWN_COORDS"
	ActionMouseupCoords            ActionType = "MOUSEUP_COORDS"
	ActionScrollUpCoords           ActionType = "SCROLL_UP_COORDS"
	ActionScrollDownCoords         ActionType = "SCROLL_DOWN_COORDS"
	ActionClickElement             ActionType = "CLICK_ELEMENT"
	ActionPressKey                 ActionType = "PRESS_KEY"
	ActionTypeText                 ActionType = "TYPE_TEXT"
	ActionTypeField                ActionType = "TYPE_FIELD"
	ActionFocusElementAndTypeText  ActionType = "FOCUS_ELEMENT_AND_TYPE_TEXT"
	ActionFocusElementAndTypeField ActionType = "FOCUS_ELEMENT_AND_TYPE_FIELD"
)

// AllActionTypes lists every primitive in catalog order.
var AllActionTypes = []ActionType{
	ActionNone,
	ActionMoveCoords,
	ActionClickCoords,
	ActionDblclickCoords,
	ActionMousedownCoords,
	ActionMouseupCoords,
	ActionScrollUpCoords,
	ActionScrollDownCoords,
	ActionClickElement,
	ActionPressKey,
	ActionTypeText,
	ActionTypeField,
	ActionFocusElementAndTypeText,
	ActionFocusElementAndTypeField,
}

// Command is a simulator-native action built by CreateAction.
type Command struct {
	Type   ActionType `json:"action_type"`
	Coords [2]float32 `json:"coords"`
	Ref    int        `json:"ref,omitempty"`
	Key    string     `json:"key,omitempty"`
	Text   string     `json:"text,omitempty"`
	Field  int        `json:"field,omitempty"`
}

// CommandOption sets one parameter of a Command.
type CommandOption func(*Command)

func WithCoords(left, top float64) CommandOption {
	return func(c *Command) { c.Coords = [2]float32{float32(left), float32(top)} }
}

func WithRef(ref int) CommandOption      { return func(c *Command) { c.Ref = ref } }
func WithKey(key string) CommandOption   { return func(c *Command) { c.Key = key } }
func WithText(text string) CommandOption { return func(c *Command) { c.Text = text } }
func WithField(field int) CommandOption  { return func(c *Command) { c.Field = field } }

// Options configure a simulator task.
type Options struct {
	// EpisodeMaxTime overrides the task's own time limit when positive.
	EpisodeMaxTime time.Duration
	// MaxEpisodeSteps truncates an episode after that many steps when positive.
	MaxEpisodeSteps int
	// ActionTypes restricts the primitives CreateAction accepts. Empty allows all.
	ActionTypes []ActionType
}

// Simulator is the synthetic browser-task suite the environment drives. The live
// simulator is handed to every action executable, which builds its Command
// through CreateAction.
type Simulator interface {
	Reset(ctx context.Context) (env.Observation, env.Info, error)
	CreateAction(kind ActionType, opts ...CommandOption) (Command, error)
	Step(ctx context.Context, cmd Command) (env.StepResult, error)
	Close() error
}

// NewCommand builds a Command of kind, refusing kinds outside allowed. Simulator
// implementations use it for CreateAction.
func NewCommand(kind ActionType, allowed []ActionType, opts ...CommandOption) (Command, error) {
	if !slices.Contains(AllActionTypes, kind) {
		return Command{}, fmt.Errorf("unknown action type %q", kind)
	}
	if len(allowed) > 0 && !slices.Contains(allowed, kind) {
		return Command{}, fmt.Errorf("action type %q is not enabled for this task", kind)
	}
	cmd := Command{Type: kind}
	for _, opt := range opts {
		opt(&cmd)
	}
	return cmd, nil
}

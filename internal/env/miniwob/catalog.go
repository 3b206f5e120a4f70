// File: internal/env/miniwob/catalog.go
package miniwob

import (
	"context"

	"github.com/xkilldash9x/webgym/internal/action"
)

type coordArgs struct {
	Left float64 `arg:"left"`
	Top  float64 `arg:"top"`
}

type elementArgs struct {
	Ref   int    `arg:"ref"`
	Key   string `arg:"key"`
	Text  string `arg:"text"`
	Field int    `arg:"field"`
}

var coordSchema = map[string]action.Descriptor{
	"left": action.Float.With(action.AtLeast(0)).Require(),
	"top":  action.Float.With(action.AtLeast(0)).Require(),
}

func nonNegativeInt() action.Descriptor { return action.Int.With(action.AtLeast(0)).Require() }

func requiredString() action.Descriptor { return action.String.With().Require() }

// coordAction builds an action that sends kind at the given page coordinates.
func coordAction(name, description string, kind ActionType) *action.Action[Simulator] {
	return action.MustNew(action.Definition[Simulator]{
		Name:        name,
		Description: description,
		Schema:      coordSchema,
		Func: func(_ context.Context, sim Simulator, args action.Args) (any, error) {
			var p coordArgs
			if err := action.Decode(args, nil, &p); err != nil {
				return nil, err
			}
			return sim.CreateAction(kind, WithCoords(p.Left, p.Top))
		},
	})
}

// elementAction builds an action whose parameters are a subset of ref, key, text
// and field; build maps the decoded values to command options.
func elementAction(name, description string, kind ActionType, schema map[string]action.Descriptor, build func(elementArgs) []CommandOption) *action.Action[Simulator] {
	return action.MustNew(action.Definition[Simulator]{
		Name:        name,
		Description: description,
		Schema:      schema,
		Func: func(_ context.Context, sim Simulator, args action.Args) (any, error) {
			var p elementArgs
			if err := action.Decode(args, nil, &p); err != nil {
				return nil, err
			}
			return sim.CreateAction(kind, build(p)...)
		},
	})
}

// NewSpace builds the 14-action MiniWoB catalog.
func NewSpace() (*action.Space[Simulator], error) {
	return action.NewSpace(
		action.MustNew(action.Definition[Simulator]{
			Name:        "none",
			Description: "No-op",
			Func: func(_ context.Context, sim Simulator, _ action.Args) (any, error) {
				return sim.CreateAction(ActionNone)
			},
		}),
		coordAction("move_coords", "Move the mouse to the specified coordinates", ActionMoveCoords),
		coordAction("click_coords", "Click the mouse at the specified coordinates", ActionClickCoords),
		coordAction("dbclick_coords", "Double-click the mouse at the specified coordinates", ActionDblclickCoords),
		coordAction("mousedown_coords", "Click and hold the mouse at the specified coordinates", ActionMousedownCoords),
		coordAction("mouseup_coords", "Release the mouse at the specified coordinates", ActionMouseupCoords),
		coordAction("scroll_up_coords", "Scroll up at the specified coordinates", ActionScrollUpCoords),
		coordAction("scroll_down_coords", "Scroll down at the specified coordinates", ActionScrollDownCoords),
		elementAction("click_element", "Click the element in web page", ActionClickElement,
			map[string]action.Descriptor{"ref": nonNegativeInt()},
			func(p elementArgs) []CommandOption { return []CommandOption{WithRef(p.Ref)} }),
		elementAction("press_key", "Press the key", ActionPressKey,
			map[string]action.Descriptor{"key": requiredString()},
			func(p elementArgs) []CommandOption { return []CommandOption{WithKey(p.Key)} }),
		elementAction("type_text", "Type the text", ActionTypeText,
			map[string]action.Descriptor{"text": requiredString()},
			func(p elementArgs) []CommandOption { return []CommandOption{WithText(p.Text)} }),
		elementAction("type_field", "Type the value of the given task field", ActionTypeField,
			map[string]action.Descriptor{"field": nonNegativeInt()},
			func(p elementArgs) []CommandOption { return []CommandOption{WithField(p.Field)} }),
		elementAction("focus_element_and_type_text", "Focus the element, then type the text", ActionFocusElementAndTypeText,
			map[string]action.Descriptor{"ref": nonNegativeInt(), "text": requiredString()},
			func(p elementArgs) []CommandOption { return []CommandOption{WithRef(p.Ref), WithText(p.Text)} }),
		elementAction("focus_element_and_type_field", "Focus the element, then type the value of the given task field", ActionFocusElementAndTypeField,
			map[string]action.Descriptor{"ref": nonNegativeInt(), "field": nonNegativeInt()},
			func(p elementArgs) []CommandOption { return []CommandOption{WithRef(p.Ref), WithField(p.Field)} }),
	)
}

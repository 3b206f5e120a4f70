// File: internal/env/webarena/catalog.go
package webarena

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/xkilldash9x/webgym/internal/action"
)

// locatorArgs are the parameters of element actions located by id, role/name or
// selector. Every field has a default.
type locatorArgs struct {
	Text        string `arg:"text,omitempty"`
	ElementID   string `arg:"element_id"`
	ElementRole string `arg:"element_role"`
	ElementName string `arg:"element_name"`
	PwCode      string `arg:"pw_code"`
	Nth         int    `arg:"nth"`
}

// focusArgs locate by role and name only; the role has no default.
type focusArgs struct {
	Keys        any    `arg:"keys,omitempty"`
	ElementRole string `arg:"element_role,omitempty"`
	ElementName string `arg:"element_name"`
	Nth         int    `arg:"nth"`
}

type pageArgs struct {
	PwCode     string  `arg:"pw_code"`
	URL        string  `arg:"url"`
	KeyComb    string  `arg:"key_comb"`
	Keys       any     `arg:"keys"`
	Left       float64 `arg:"left"`
	Top        float64 `arg:"top"`
	PageNumber int     `arg:"page_number"`
	Direction  string  `arg:"direction"`
	Answer     string  `arg:"answer"`
}

var (
	locatorDefaults = action.MustDefaultsOf(locatorArgs{ElementRole: "link"})
	focusDefaults   = action.MustDefaultsOf(focusArgs{})
)

func (a locatorArgs) locator() Locator {
	return Locator{ElementID: a.ElementID, ElementRole: a.ElementRole, ElementName: a.ElementName, PwCode: a.PwCode, Nth: a.Nth}
}

func (a focusArgs) locator() Locator {
	return Locator{ElementRole: a.ElementRole, ElementName: a.ElementName, Nth: a.Nth}
}

func roleField() action.Constrained   { return action.String.With(action.OneOf(Roles...)) }
func nthField() action.Constrained    { return action.Int.With(action.AtLeast(0)) }
func plainString() action.Constrained { return action.String.With() }

func keysField() action.Primitive {
	return action.Type(action.List, action.String).Of(action.Int, action.String).Require()
}

func locatorSchema() map[string]action.Descriptor {
	return map[string]action.Descriptor{
		"element_id":   plainString(),
		"element_role": roleField(),
		"element_name": plainString(),
		"pw_code":      plainString(),
		"nth":          nthField(),
	}
}

func focusSchema() map[string]action.Descriptor {
	return map[string]action.Descriptor{
		"element_role": roleField().Require(),
		"element_name": plainString(),
		"nth":          nthField(),
	}
}

// keysOf normalizes keyboard input: a string is typed as is, list items are
// either key names or key codes.
func keysOf(v any) ([]string, error) {
	switch k := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{k}, nil
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := cast.ToStringE(item)
		if err != nil {
			return nil, fmt.Errorf("keys: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

func locatorAction(name string, kind Kind, withText bool) *action.Action[action.NoSession] {
	schema := locatorSchema()
	if withText {
		schema["text"] = plainString().Require()
	}
	return action.MustNew(action.Definition[action.NoSession]{
		Name:        name,
		Description: name,
		Defaults:    locatorDefaults,
		Schema:      schema,
		Func: func(_ context.Context, _ action.NoSession, args action.Args) (any, error) {
			var p locatorArgs
			if err := action.Decode(args, locatorDefaults, &p); err != nil {
				return nil, err
			}
			cmd := Command{Kind: kind, Locator: p.locator()}
			if withText {
				cmd.Keys = []string{p.Text}
			}
			return cmd, nil
		},
	})
}

func focusAction(name string, kind Kind, withKeys bool) *action.Action[action.NoSession] {
	schema := focusSchema()
	if withKeys {
		schema["keys"] = keysField()
	}
	return action.MustNew(action.Definition[action.NoSession]{
		Name:        name,
		Description: name,
		Defaults:    focusDefaults,
		Schema:      schema,
		Func: func(_ context.Context, _ action.NoSession, args action.Args) (any, error) {
			var p focusArgs
			if err := action.Decode(args, focusDefaults, &p); err != nil {
				return nil, err
			}
			cmd := Command{Kind: kind, Locator: p.locator()}
			if withKeys {
				keys, err := keysOf(p.Keys)
				if err != nil {
					return nil, err
				}
				cmd.Keys = keys
			}
			return cmd, nil
		},
	})
}

// pageAction builds an action whose parameters all come from pageArgs; schema
// declares which of them it takes.
func pageAction(name string, kind Kind, schema map[string]action.Descriptor, build func(pageArgs, *Command) error) *action.Action[action.NoSession] {
	return action.MustNew(action.Definition[action.NoSession]{
		Name:        name,
		Description: name,
		Schema:      schema,
		Func: func(_ context.Context, _ action.NoSession, args action.Args) (any, error) {
			var p pageArgs
			if err := action.Decode(args, nil, &p); err != nil {
				return nil, err
			}
			cmd := Command{Kind: kind}
			if build != nil {
				if err := build(p, &cmd); err != nil {
					return nil, err
				}
			}
			return cmd, nil
		},
	})
}

func coordSchema() map[string]action.Descriptor {
	return map[string]action.Descriptor{
		"left": action.Float.With(action.AtLeast(0)).Require(),
		"top":  action.Float.With(action.AtLeast(0)).Require(),
	}
}

func setCoords(p pageArgs, c *Command) error {
	c.Coords = [2]float64{p.Left, p.Top}
	return nil
}

func setSelector(p pageArgs, c *Command) error {
	c.Locator = Locator{PwCode: p.PwCode}
	return nil
}

func selectorSchema() map[string]action.Descriptor {
	return map[string]action.Descriptor{"pw_code": plainString().Require()}
}

// NewSpace builds the 21-action WebArena catalog.
func NewSpace() (*action.Space[action.NoSession], error) {
	return action.NewSpace(
		pageAction("none", KindNone, nil, nil),
		pageAction("check", KindCheck, selectorSchema(), setSelector),
		locatorAction("click", KindClick, false),
		focusAction("focus", KindFocus, false),
		focusAction("focus_and_click", KindFocusAndClick, false),
		focusAction("focus_and_type", KindFocusAndType, true),
		pageAction("go_back", KindGoBack, nil, nil),
		pageAction("go_forward", KindGoForward, nil, nil),
		pageAction("goto_url", KindGotoURL,
			map[string]action.Descriptor{"url": action.String.With(action.URL()).Require()},
			func(p pageArgs, c *Command) error { c.URL = p.URL; return nil }),
		locatorAction("hover", KindHover, false),
		pageAction("key_press", KindKeyPress,
			map[string]action.Descriptor{"key_comb": plainString().Require()},
			func(p pageArgs, c *Command) error { c.KeyComb = p.KeyComb; return nil }),
		pageAction("keyboard_type", KindKeyboardType,
			map[string]action.Descriptor{"keys": keysField()},
			func(p pageArgs, c *Command) error {
				keys, err := keysOf(p.Keys)
				c.Keys = keys
				return err
			}),
		pageAction("mouse_click", KindMouseClick, coordSchema(), setCoords),
		pageAction("mouse_hover", KindMouseHover, coordSchema(), setCoords),
		pageAction("new_tab", KindNewTab, nil, nil),
		pageAction("page_close", KindPageClose, nil, nil),
		pageAction("page_focus", KindPageFocus,
			map[string]action.Descriptor{"page_number": nthField().Require()},
			func(p pageArgs, c *Command) error { c.PageNumber = p.PageNumber; return nil }),
		pageAction("scroll", KindScroll,
			map[string]action.Descriptor{"direction": action.String.With(action.OneOf("up", "down")).Require()},
			func(p pageArgs, c *Command) error { c.Direction = p.Direction; return nil }),
		pageAction("select_option", KindSelectOption, selectorSchema(), setSelector),
		pageAction("stop", KindStop,
			map[string]action.Descriptor{"answer": plainString().Require()},
			func(p pageArgs, c *Command) error { c.Answer = p.Answer; return nil }),
		locatorAction("type", KindType, true),
	)
}

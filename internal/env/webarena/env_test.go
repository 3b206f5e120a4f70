// File: internal/env/webarena/env_test.go
package webarena

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/env"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"start_url": "http://localhost:7770"}`), 0o600))
	return path
}

func callAction(t *testing.T, name string, args action.Args) (any, error) {
	t.Helper()
	space, err := NewSpace()
	require.NoError(t, err)
	a, err := space.Get(name)
	require.NoError(t, err)
	return a.Call(context.Background(), action.NoSession{}, args)
}

func TestCatalog_Order(t *testing.T) {
	space, err := NewSpace()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"none", "check", "click", "focus", "focus_and_click", "focus_and_type", "go_back", "go_forward",
		"goto_url", "hover", "key_press", "keyboard_type", "mouse_click", "mouse_hover", "new_tab",
		"page_close", "page_focus", "scroll", "select_option", "stop", "type",
	}, space.Names())
}

func TestCatalog_Commands(t *testing.T) {
	tests := []struct {
		name string
		args action.Args
		want Command
	}{
		{"none", nil, Command{Kind: KindNone}},
		{"click", nil, Command{Kind: KindClick, Locator: Locator{ElementRole: "link"}}},
		{"click", action.Args{"element_role": "button", "element_name": "Submit", "nth": 1},
			Command{Kind: KindClick, Locator: Locator{ElementRole: "button", ElementName: "Submit", Nth: 1}}},
		{"hover", action.Args{"element_id": "42"}, Command{Kind: KindHover, Locator: Locator{ElementID: "42", ElementRole: "link"}}},
		{"type", action.Args{"text": "hello", "pw_code": "#q"},
			Command{Kind: KindType, Locator: Locator{ElementRole: "link", PwCode: "#q"}, Keys: []string{"hello"}}},
		{"focus", action.Args{"element_role": "textbox"}, Command{Kind: KindFocus, Locator: Locator{ElementRole: "textbox"}}},
		{"focus_and_type", action.Args{"element_role": "searchbox", "keys": []any{"a", 13}},
			Command{Kind: KindFocusAndType, Locator: Locator{ElementRole: "searchbox"}, Keys: []string{"a", "13"}}},
		{"keyboard_type", action.Args{"keys": "abc"}, Command{Kind: KindKeyboardType, Keys: []string{"abc"}}},
		{"goto_url", action.Args{"url": "http://localhost:7770/admin"}, Command{Kind: KindGotoURL, URL: "http://localhost:7770/admin"}},
		{"key_press", action.Args{"key_comb": "Control+a"}, Command{Kind: KindKeyPress, KeyComb: "Control+a"}},
		{"mouse_click", action.Args{"left": 10, "top": 20.5}, Command{Kind: KindMouseClick, Coords: [2]float64{10, 20.5}}},
		{"page_focus", action.Args{"page_number": 2}, Command{Kind: KindPageFocus, PageNumber: 2}},
		{"scroll", action.Args{"direction": "down"}, Command{Kind: KindScroll, Direction: "down"}},
		{"select_option", action.Args{"pw_code": "select#size"}, Command{Kind: KindSelectOption, Locator: Locator{PwCode: "select#size"}}},
		{"stop", action.Args{"answer": "42"}, Command{Kind: KindStop, Answer: "42"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callAction(t, tt.name, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_Validation(t *testing.T) {
	tests := []struct {
		name string
		args action.Args
	}{
		{"goto_url", action.Args{"url": "not a url"}},
		{"goto_url", nil},
		{"scroll", action.Args{"direction": "left"}},
		{"click", action.Args{"element_role": "wizard"}},
		{"click", action.Args{"nth": -1}},
		{"focus", action.Args{"element_name": "Search"}},
		{"focus_and_type", action.Args{"element_role": "textbox"}},
		{"keyboard_type", action.Args{"keys": []any{true}}},
		{"mouse_click", action.Args{"left": 1}},
		{"mouse_hover", action.Args{"left": -1, "top": 0}},
		{"page_focus", action.Args{"page_number": -1}},
		{"type", action.Args{"element_role": "button"}},
		{"check", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callAction(t, tt.name, tt.args)
			assert.ErrorIs(t, err, action.ErrInvalidArguments)
		})
	}
}

func TestEnv_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("missing config never reaches the browser", func(t *testing.T) {
		b := &MockBrowser{}
		e, err := New(env.Identity{Name: "webarena"}, b, filepath.Join(t.TempDir(), "absent.json"), nil)
		require.NoError(t, err)
		_, _, err = e.Reset(ctx)
		assert.ErrorIs(t, err, env.ErrConfigNotFound)
		_, _, err = e.ResetConfig(ctx, filepath.Join(t.TempDir(), "also-absent.json"))
		assert.ErrorIs(t, err, env.ErrConfigNotFound)
		b.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
	})

	t.Run("no config at all", func(t *testing.T) {
		e, err := New(env.Identity{Name: "webarena"}, &MockBrowser{}, "", nil)
		require.NoError(t, err)
		_, _, err = e.Reset(ctx)
		assert.ErrorIs(t, err, env.ErrConfigNotFound)
	})

	t.Run("argument overrides default", func(t *testing.T) {
		def, other := writeConfig(t), writeConfig(t)
		b := &MockBrowser{}
		b.On("Reset", ctx, other).Return(env.Observation{"text": "page"}, env.Info{}, nil).Once()
		e, err := New(env.Identity{Name: "webarena"}, b, def, nil)
		require.NoError(t, err)
		obs, _, err := e.ResetConfig(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, "page", obs["text"])
		b.AssertExpectations(t)
	})
}

func TestEnv_Step(t *testing.T) {
	ctx := context.Background()
	cfg := writeConfig(t)
	b := &MockBrowser{}
	e, err := New(env.Identity{Name: "webarena"}, b, cfg, nil)
	require.NoError(t, err)

	_, err = e.Step(ctx, action.ByName[action.NoSession]("go_back"), nil)
	assert.ErrorIs(t, err, env.ErrNotReset)

	b.On("Reset", ctx, cfg).Return(env.Observation{}, env.Info{}, nil)
	_, _, err = e.Reset(ctx)
	require.NoError(t, err)

	b.On("Execute", ctx, Command{Kind: KindScroll, Direction: "up"}).Return(env.StepResult{Observation: env.Observation{"text": "top"}}, nil).Once()
	res, err := e.Step(ctx, action.ByName[action.NoSession]("scroll"), action.Args{"direction": "up"})
	require.NoError(t, err)
	assert.Equal(t, "top", res.Observation["text"])

	_, err = e.Step(ctx, action.ByName[action.NoSession]("scroll"), action.Args{"direction": "sideways"})
	assert.ErrorIs(t, err, action.ErrInvalidArguments)

	_, err = e.Step(ctx, action.ByName[action.NoSession]("teleport"), nil)
	assert.ErrorIs(t, err, action.ErrActionNotFound)

	b.On("Close").Return(nil).Once()
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	b.AssertExpectations(t)
}

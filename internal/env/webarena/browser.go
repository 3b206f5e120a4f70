// File: internal/env/webarena/browser.go
package webarena

import (
	"context"

	"github.com/xkilldash9x/webgym/internal/env"
)

// Kind names a browser-level action.
type Kind string

const (
	KindNone          Kind = "none"
	KindCheck         Kind = "check"
	KindClick         Kind = "click"
	KindFocus         Kind = "focus"
	KindFocusAndClick Kind = "focus_and_click"
	KindFocusAndType  Kind = "focus_and_type"
	KindGoBack        Kind = "go_back"
	KindGoForward     Kind = "go_forward"
	KindGotoURL       Kind = "goto_url"
	KindHover         Kind = "hover"
	KindKeyPress      Kind = "key_press"
	KindKeyboardType  Kind = "keyboard_type"
	KindMouseClick    Kind = "mouse_click"
	KindMouseHover    Kind = "mouse_hover"
	KindNewTab        Kind = "new_tab"
	KindPageClose     Kind = "page_close"
	KindPageFocus     Kind = "page_focus"
	KindScroll        Kind = "scroll"
	KindSelectOption  Kind = "select_option"
	KindStop          Kind = "stop"
	KindType          Kind = "type"
)

// Locator identifies an element either by id, by accessible role and name (the
// nth match), or by a selector expression.
type Locator struct {
	ElementID   string `json:"element_id,omitempty"`
	ElementRole string `json:"element_role,omitempty"`
	ElementName string `json:"element_name,omitempty"`
	PwCode      string `json:"pw_code,omitempty"`
	Nth         int    `json:"nth,omitempty"`
}

// Command is a self-contained browser action produced by an executable.
type Command struct {
	Kind       Kind       `json:"kind"`
	Locator    Locator    `json:"locator"`
	Keys       []string   `json:"keys,omitempty"`
	URL        string     `json:"url,omitempty"`
	KeyComb    string     `json:"key_comb,omitempty"`
	Coords     [2]float64 `json:"coords"`
	PageNumber int        `json:"page_number,omitempty"`
	Direction  string     `json:"direction,omitempty"`
	Answer     string     `json:"answer,omitempty"`
}

// Browser is the automation backend. Reset loads a sandbox configuration file,
// which is opaque here.
type Browser interface {
	Reset(ctx context.Context, configFile string) (env.Observation, env.Info, error)
	Execute(ctx context.Context, cmd Command) (env.StepResult, error)
	Close() error
}

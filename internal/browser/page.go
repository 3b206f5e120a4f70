// File: internal/browser/page.go
package browser

import (
	"context"

	"github.com/chromedp/cdproto/input"
)

// Page is the browser surface the benchmark backends drive. Session implements
// it over chromedp and tests substitute a mock. Every call acts on the active
// tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error

	// Evaluate runs expression in the page and decodes its result into res,
	// which may be nil.
	Evaluate(ctx context.Context, expression string, res interface{}) error
	DispatchMouse(ctx context.Context, p *input.DispatchMouseEventParams) error

	Click(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error
	// Type sends text as key events to the focused element.
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, comb KeyCombination) error

	HTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	NewTab(ctx context.Context, url string) error
	FocusTab(ctx context.Context, index int) error
	CloseTab(ctx context.Context) error
	Tabs() int
	ActiveTab() int

	Close() error
}

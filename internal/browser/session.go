// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/config"
)

const (
	blankPage    = "about:blank"
	closeTimeout = 10 * time.Second
)

// ErrSessionClosed is returned by every Session call after Close.
var ErrSessionClosed = errors.New("browser session is closed")

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Session owns one Chrome process and its tabs. The browser's initial target
// stays hidden; the tabs the caller works with are opened next to it, so
// closing the last of them never shuts the process down.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu       sync.Mutex
	tabs     []tab
	active   int
	isClosed bool
}

var _ Page = (*Session)(nil)

// NewSession launches the browser and opens one blank tab.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := uuid.New().String()
	log := logger.Named("browser").With(zap.String("session_id", sessionID))

	// The process outlives the caller's context; Close ends it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), AllocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Debugf),
	)

	// The first Run allocates the browser and must use the browser context itself.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s := &Session{
		id:            sessionID,
		logger:        log,
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
	if err := s.NewTab(ctx, blankPage); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Debug("Browser session started.")
	return s, nil
}

func (s *Session) ID() string { return s.id }

// activeContext returns the context of the tab calls act on.
func (s *Session) activeContext() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return nil, ErrSessionClosed
	}
	if len(s.tabs) == 0 {
		return nil, fmt.Errorf("browser session has no open tab")
	}
	return s.tabs[s.active].ctx, nil
}

// runActions executes chromedp actions on the active tab, bounded by both the
// tab's lifetime and ctx.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := s.activeContext()
	if err != nil {
		return err
	}
	runCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	if s.cfg.ActionTimeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, s.cfg.ActionTimeout)
		defer cancelTimeout()
	}
	return chromedp.Run(runCtx, actions...)
}

// -- Navigation --

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.runActions(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) Back(ctx context.Context) error {
	return s.runActions(ctx, chromedp.NavigateBack())
}

func (s *Session) Forward(ctx context.Context) error {
	return s.runActions(ctx, chromedp.NavigateForward())
}

// -- Scripting and input --

func (s *Session) Evaluate(ctx context.Context, expression string, res interface{}) error {
	return s.runActions(ctx, chromedp.Evaluate(expression, res))
}

func (s *Session) DispatchMouse(ctx context.Context, p *input.DispatchMouseEventParams) error {
	return s.runActions(ctx, p)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.runActions(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *Session) Focus(ctx context.Context, selector string) error {
	return s.runActions(ctx, chromedp.Focus(selector, chromedp.ByQuery))
}

// Hover scrolls the element into view and moves the pointer to its center.
func (s *Session) Hover(ctx context.Context, selector string) error {
	var center [2]float64
	err := s.runActions(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Evaluate(centerScript(selector), &center),
	)
	if err != nil {
		return fmt.Errorf("failed to locate %s: %w", selector, err)
	}
	return s.DispatchMouse(ctx, input.DispatchMouseEvent(input.MouseMoved, center[0], center[1]))
}

func (s *Session) Type(ctx context.Context, text string) error {
	return s.runActions(ctx, chromedp.KeyEvent(text))
}

func (s *Session) Press(ctx context.Context, comb KeyCombination) error {
	return s.runActions(ctx, chromedp.KeyEvent(comb.Key, chromedp.KeyModifiers(comb.Modifiers...)))
}

// -- Page state --

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.runActions(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}
	return html, nil
}

func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	err := s.runActions(ctx, chromedp.Location(&url))
	return url, err
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.runActions(ctx, chromedp.Title(&title))
	return title, err
}

// -- Tabs --

// NewTab opens url in a new tab and makes it active.
func (s *Session) NewTab(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	s.mu.Unlock()

	// The first Run creates the target and must not carry the caller's deadline.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to open tab: %w", err)
	}

	s.mu.Lock()
	s.tabs = append(s.tabs, tab{ctx: tabCtx, cancel: cancel})
	s.active = len(s.tabs) - 1
	s.mu.Unlock()

	if url == "" || url == blankPage {
		return nil
	}
	return s.Navigate(ctx, url)
}

// FocusTab activates the tab at index and brings it to the front.
func (s *Session) FocusTab(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.tabs) {
		n := len(s.tabs)
		s.mu.Unlock()
		return fmt.Errorf("tab %d does not exist (%d open)", index, n)
	}
	s.active = index
	s.mu.Unlock()
	return s.runActions(ctx, page.BringToFront())
}

// CloseTab closes the active tab and activates the last remaining one. Closing
// the only tab leaves a fresh blank tab behind.
func (s *Session) CloseTab(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if len(s.tabs) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("browser session has no open tab")
	}
	closing := s.tabs[s.active]
	s.tabs = append(s.tabs[:s.active], s.tabs[s.active+1:]...)
	s.active = len(s.tabs) - 1
	remaining := len(s.tabs)
	s.mu.Unlock()

	if err := chromedp.Cancel(closing.ctx); err != nil {
		s.logger.Debug("Tab did not close cleanly.", zap.Error(err))
	}
	closing.cancel()

	if remaining == 0 {
		return s.NewTab(ctx, blankPage)
	}
	return s.runActions(ctx, page.BringToFront())
}

func (s *Session) Tabs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

func (s *Session) ActiveTab() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close shuts the browser down. Later calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	tabs := s.tabs
	s.tabs = nil
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	for _, t := range tabs {
		t.cancel()
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.browserCtx) }()

	var err error
	select {
	case err = <-done:
	case <-time.After(closeTimeout):
		s.logger.Warn("Timed out waiting for the browser to exit.")
	}
	s.browserCancel()
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

func centerScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const r = document.querySelector(%s).getBoundingClientRect();
	return [r.left + r.width / 2, r.top + r.height / 2];
})()`, jsString(selector))
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

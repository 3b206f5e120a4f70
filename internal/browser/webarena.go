// internal/browser/webarena.go
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/config"
	"github.com/xkilldash9x/webgym/internal/env"
	"github.com/xkilldash9x/webgym/internal/env/webarena"
)

const (
	ObservationAccessibilityTree = "accessibility_tree"
	ObservationHTML              = "html"

	startURLSeparator = " |AND| "
	viewportScript    = `[window.innerWidth, window.innerHeight]`
)

// taskConfig is the part of a sandbox configuration file the browser reads.
type taskConfig struct {
	TaskID       any    `json:"task_id"`
	Intent       string `json:"intent"`
	StartURL     string `json:"start_url"`
	StorageState string `json:"storage_state"`
}

// WebArenaBrowser executes WebArena commands against a Page and renders the
// annotated page as the text observation.
type WebArenaBrowser struct {
	page   Page
	cfg    config.WebArenaConfig
	logger *zap.Logger

	mu       sync.Mutex
	snapshot *Snapshot
}

var _ webarena.Browser = (*WebArenaBrowser)(nil)

func NewWebArenaBrowser(page Page, cfg config.WebArenaConfig, logger *zap.Logger) (*WebArenaBrowser, error) {
	if page == nil {
		return nil, fmt.Errorf("webarena browser requires a page")
	}
	switch cfg.ObservationType {
	case "":
		cfg.ObservationType = ObservationAccessibilityTree
	case ObservationAccessibilityTree, ObservationHTML:
	default:
		return nil, fmt.Errorf("unsupported observation type %q", cfg.ObservationType)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebArenaBrowser{page: page, cfg: cfg, logger: logger.Named("webarena_browser")}, nil
}

// Reset opens the configured start pages, one tab each, and focuses the first.
func (b *WebArenaBrowser) Reset(ctx context.Context, configFile string) (env.Observation, env.Info, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	var task taskConfig
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}
	if task.StorageState != "" {
		b.logger.Debug("Storage state is not restored by this backend.", zap.String("storage_state", task.StorageState))
	}

	for b.page.Tabs() > 1 {
		if err := b.page.CloseTab(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to close tab: %w", err)
		}
	}

	urls := splitStartURLs(task.StartURL)
	for i, url := range urls {
		if i == 0 {
			err = b.page.Navigate(ctx, url)
		} else {
			err = b.page.NewTab(ctx, url)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if len(urls) > 1 {
		if err := b.page.FocusTab(ctx, 0); err != nil {
			return nil, nil, err
		}
	}

	obs, err := b.observe(ctx)
	if err != nil {
		return nil, nil, err
	}
	b.logger.Info("Task loaded.", zap.String("config_file", configFile), zap.Any("task_id", task.TaskID))
	return obs, env.Info{
		"config_file": configFile,
		"intent":      task.Intent,
		"task_id":     task.TaskID,
		"start_url":   task.StartURL,
	}, nil
}

func splitStartURLs(s string) []string {
	var urls []string
	for _, u := range strings.Split(s, startURLSeparator) {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Execute performs cmd. A command that fails on the page is reported through
// info["fail_error"]; only a cancelled context or a broken observation is
// returned as an error.
func (b *WebArenaBrowser) Execute(ctx context.Context, cmd webarena.Command) (env.StepResult, error) {
	if err := sleepCtx(ctx, b.cfg.SlowMo); err != nil {
		return env.StepResult{}, err
	}

	failure := ""
	if err := b.perform(ctx, cmd); err != nil {
		if ctx.Err() != nil {
			return env.StepResult{}, ctx.Err()
		}
		failure = err.Error()
		b.logger.Debug("Command failed.", zap.String("kind", string(cmd.Kind)), zap.Error(err))
	}

	if err := sleepCtx(ctx, b.cfg.SleepAfterExecution); err != nil {
		return env.StepResult{}, err
	}
	obs, err := b.observe(ctx)
	if err != nil {
		return env.StepResult{}, err
	}

	info := env.Info{"fail_error": failure, "page": obs["url"]}
	res := env.StepResult{Observation: obs, Info: info}
	if cmd.Kind == webarena.KindStop {
		res.Terminated = true
		info["answer"] = cmd.Answer
	}
	return res, nil
}

// Close closes the underlying page.
func (b *WebArenaBrowser) Close() error {
	return b.page.Close()
}

func (b *WebArenaBrowser) perform(ctx context.Context, cmd webarena.Command) error {
	switch cmd.Kind {
	case webarena.KindNone, webarena.KindStop:
		return nil
	case webarena.KindClick:
		return b.onElement(ctx, cmd.Locator, b.page.Click)
	case webarena.KindHover:
		return b.onElement(ctx, cmd.Locator, b.page.Hover)
	case webarena.KindFocus:
		return b.onElement(ctx, cmd.Locator, b.page.Focus)
	case webarena.KindFocusAndClick:
		return b.onElement(ctx, cmd.Locator, func(ctx context.Context, sel string) error {
			if err := b.page.Focus(ctx, sel); err != nil {
				return err
			}
			return b.page.Click(ctx, sel)
		})
	case webarena.KindType:
		return b.onElement(ctx, cmd.Locator, func(ctx context.Context, sel string) error {
			if err := b.page.Click(ctx, sel); err != nil {
				return err
			}
			return b.typeKeys(ctx, cmd.Keys)
		})
	case webarena.KindFocusAndType:
		return b.onElement(ctx, cmd.Locator, func(ctx context.Context, sel string) error {
			if err := b.page.Focus(ctx, sel); err != nil {
				return err
			}
			return b.typeKeys(ctx, cmd.Keys)
		})
	case webarena.KindCheck:
		return b.page.Evaluate(ctx, checkScript(cmd.Locator.PwCode), nil)
	case webarena.KindSelectOption:
		return b.page.Evaluate(ctx, selectOptionScript(cmd.Locator.PwCode), nil)
	case webarena.KindKeyboardType:
		return b.typeKeys(ctx, cmd.Keys)
	case webarena.KindKeyPress:
		comb, err := ParseKeyCombination(cmd.KeyComb)
		if err != nil {
			return err
		}
		return b.page.Press(ctx, comb)
	case webarena.KindMouseClick:
		x, y, err := b.toViewport(ctx, cmd.Coords)
		if err != nil {
			return err
		}
		return clickAt(ctx, b.page, x, y, 1)
	case webarena.KindMouseHover:
		x, y, err := b.toViewport(ctx, cmd.Coords)
		if err != nil {
			return err
		}
		return b.page.DispatchMouse(ctx, input.DispatchMouseEvent(input.MouseMoved, x, y))
	case webarena.KindScroll:
		sign := 1
		if cmd.Direction == "up" {
			sign = -1
		}
		return b.page.Evaluate(ctx, fmt.Sprintf("window.scrollBy(0, %d * window.innerHeight);", sign), nil)
	case webarena.KindGotoURL:
		return b.page.Navigate(ctx, cmd.URL)
	case webarena.KindGoBack:
		return b.page.Back(ctx)
	case webarena.KindGoForward:
		return b.page.Forward(ctx)
	case webarena.KindNewTab:
		return b.page.NewTab(ctx, blankPage)
	case webarena.KindPageClose:
		return b.page.CloseTab(ctx)
	case webarena.KindPageFocus:
		return b.page.FocusTab(ctx, cmd.PageNumber)
	default:
		return fmt.Errorf("unsupported command kind %q", cmd.Kind)
	}
}

func (b *WebArenaBrowser) onElement(ctx context.Context, loc webarena.Locator, fn func(context.Context, string) error) error {
	sel, err := b.resolve(loc)
	if err != nil {
		return err
	}
	return fn(ctx, sel)
}

// resolve turns a locator into a CSS selector. Element ids and role/name pairs
// are looked up in the last observation; pw_code is used as written.
func (b *WebArenaBrowser) resolve(loc webarena.Locator) (string, error) {
	if loc.PwCode != "" && loc.ElementID == "" {
		return loc.PwCode, nil
	}

	b.mu.Lock()
	snap := b.snapshot
	b.mu.Unlock()
	if snap == nil {
		return "", fmt.Errorf("no observation to resolve elements against")
	}

	if loc.ElementID != "" {
		if _, ok := snap.Get(loc.ElementID); !ok {
			return "", fmt.Errorf("%w: id %q", ErrElementNotFound, loc.ElementID)
		}
		return Selector(loc.ElementID), nil
	}
	el, err := snap.Find(loc.ElementRole, loc.ElementName, loc.Nth)
	if err != nil {
		return "", err
	}
	return Selector(el.ID), nil
}

// typeKeys types each entry; entries written as "<Enter>" are pressed instead.
func (b *WebArenaBrowser) typeKeys(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if len(k) > 2 && strings.HasPrefix(k, "<") && strings.HasSuffix(k, ">") {
			comb, err := ParseKeyCombination(k)
			if err != nil {
				return err
			}
			if err := b.page.Press(ctx, comb); err != nil {
				return err
			}
			continue
		}
		if err := b.page.Type(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// toViewport scales fractional coordinates to CSS pixels.
func (b *WebArenaBrowser) toViewport(ctx context.Context, coords [2]float64) (float64, float64, error) {
	if coords[0] > 1 || coords[1] > 1 {
		return 0, 0, fmt.Errorf("coordinates %v are not viewport fractions", coords)
	}
	var size [2]float64
	if err := b.page.Evaluate(ctx, viewportScript, &size); err != nil {
		return 0, 0, fmt.Errorf("failed to read viewport size: %w", err)
	}
	return coords[0] * size[0], coords[1] * size[1], nil
}

func (b *WebArenaBrowser) observe(ctx context.Context) (env.Observation, error) {
	var count int
	if err := b.page.Evaluate(ctx, annotateScript, &count); err != nil {
		return nil, fmt.Errorf("failed to annotate page: %w", err)
	}
	html, err := b.page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := ParseSnapshot(html)
	if err != nil {
		return nil, err
	}
	url, err := b.page.Location(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page url: %w", err)
	}

	b.mu.Lock()
	b.snapshot = snap
	b.mu.Unlock()

	var body string
	if b.cfg.ObservationType == ObservationHTML {
		body = truncate(html, b.cfg.MaxPageLength)
	} else {
		body = snap.Text(b.cfg.CurrentViewportOnly, b.cfg.MaxPageLength)
	}
	header := fmt.Sprintf("Tab %d (current): %s", b.page.ActiveTab(), snap.Title)
	if n := b.page.Tabs(); n > 1 {
		header += fmt.Sprintf(" [%d tabs open]", n)
	}
	return env.Observation{
		"text": header + "\n\n" + body,
		"url":  url,
	}, nil
}

func clickAt(ctx context.Context, page Page, x, y float64, count int64) error {
	press := input.DispatchMouseEvent(input.MousePressed, x, y).WithButton(input.Left).WithClickCount(count)
	if err := page.DispatchMouse(ctx, press); err != nil {
		return err
	}
	release := input.DispatchMouseEvent(input.MouseReleased, x, y).WithButton(input.Left).WithClickCount(count)
	return page.DispatchMouse(ctx, release)
}

func checkScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) throw new Error('no element matches selector');
	if (!el.checked) el.click();
})()`, jsString(selector))
}

// selectOptionScript selects the <option> matched by selector and notifies
// its select element.
func selectOptionScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const opt = document.querySelector(%s);
	if (!opt) throw new Error('no element matches selector');
	const sel = opt.closest('select');
	if (!sel) { opt.click(); return; }
	opt.selected = true;
	sel.dispatchEvent(new Event('input', {bubbles: true}));
	sel.dispatchEvent(new Event('change', {bubbles: true}));
})()`, jsString(selector))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

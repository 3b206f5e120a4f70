// File: internal/browser/miniwob.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webgym/internal/env"
	"github.com/xkilldash9x/webgym/internal/env/miniwob"
)

const (
	miniwobObserveScript = `(() => {
	const u = core.getUtterance();
	const utterance = typeof u === 'string' ? u : u.utterance;
	const fields = typeof u === 'string' ? {} : (u.fields || {});
	const elements = [];
	const walk = (n) => {
		elements.push({
			ref: n.ref, tag: n.tag, text: n.text || '', value: n.value === undefined ? '' : String(n.value),
			id: n.id || '', classes: n.classes || '', left: n.left, top: n.top, width: n.width, height: n.height,
			focused: !!n.focused,
		});
		(n.children || []).forEach(walk);
	};
	walk(core.getDOMInfo());
	return {utterance: utterance, fields: Object.entries(fields).map(([k, v]) => [k, String(v)]), dom_elements: elements};
})()`
	miniwobStatusScript = `({reward: WOB_REWARD_GLOBAL, raw_reward: WOB_RAW_REWARD_GLOBAL, done: WOB_DONE_GLOBAL, reason: String(WOB_REWARD_REASON || '')})`
	miniwobStartScript  = `core.startEpisodeReal();`

	scrollDelta = 100
)

// DOMElement is one node of a MiniWoB task's DOM.
type DOMElement struct {
	Ref     int     `json:"ref"`
	Tag     string  `json:"tag"`
	Text    string  `json:"text"`
	Value   string  `json:"value"`
	ID      string  `json:"id"`
	Classes string  `json:"classes"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Focused bool    `json:"focused"`
}

type miniwobState struct {
	Utterance   string       `json:"utterance"`
	Fields      [][2]string  `json:"fields"`
	DOMElements []DOMElement `json:"dom_elements"`
}

type miniwobStatus struct {
	Reward    float64 `json:"reward"`
	RawReward float64 `json:"raw_reward"`
	Done      bool    `json:"done"`
	Reason    string  `json:"reason"`
}

// MiniWoBSimulator runs MiniWoB tasks in a browser Page.
type MiniWoBSimulator struct {
	page    Page
	taskURL string
	allowed []miniwob.ActionType
	logger  *zap.Logger

	mu             sync.Mutex
	episodeMaxTime time.Duration
	fields         [][2]string
	started        time.Time
}

var (
	_ miniwob.Simulator    = (*MiniWoBSimulator)(nil)
	_ miniwob.EpisodeTimer = (*MiniWoBSimulator)(nil)
)

// NewMiniWoBSimulator prepares task, e.g. "miniwob/click-test-2-v1", served
// under baseURL. allowed restricts the primitives; empty allows all.
func NewMiniWoBSimulator(page Page, baseURL, task string, allowed []miniwob.ActionType, logger *zap.Logger) (*MiniWoBSimulator, error) {
	if page == nil {
		return nil, fmt.Errorf("miniwob simulator requires a page")
	}
	url, err := MiniWoBTaskURL(baseURL, task)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MiniWoBSimulator{
		page:    page,
		taskURL: url,
		allowed: allowed,
		logger:  logger.Named("miniwob_sim").With(zap.String("task", task)),
	}, nil
}

// MiniWoBTaskURL maps a registered task name to the page that serves it:
// "miniwob/click-test-2-v1" becomes "{baseURL}/click-test-2.html".
func MiniWoBTaskURL(baseURL, task string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("miniwob base url is empty")
	}
	name := task
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "-v"); i > 0 && isDigits(name[i+2:]) {
		name = name[:i]
	}
	if name == "" {
		return "", fmt.Errorf("invalid miniwob task name %q", task)
	}
	return strings.TrimRight(baseURL, "/") + "/" + name + ".html", nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SetEpisodeMaxTime overrides the task's time limit from the next Reset on.
func (m *MiniWoBSimulator) SetEpisodeMaxTime(_ context.Context, limit time.Duration) error {
	if limit < 0 {
		return fmt.Errorf("episode max time must not be negative")
	}
	m.mu.Lock()
	m.episodeMaxTime = limit
	m.mu.Unlock()
	return nil
}

// Reset loads the task page and starts a new episode.
func (m *MiniWoBSimulator) Reset(ctx context.Context) (env.Observation, env.Info, error) {
	if err := m.page.Navigate(ctx, m.taskURL); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	limit := m.episodeMaxTime
	m.mu.Unlock()
	if limit > 0 {
		script := fmt.Sprintf("core.EPISODE_MAX_TIME = %d;", limit.Milliseconds())
		if err := m.page.Evaluate(ctx, script, nil); err != nil {
			return nil, nil, fmt.Errorf("failed to set episode max time: %w", err)
		}
	}
	if err := m.page.Evaluate(ctx, miniwobStartScript, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to start episode: %w", err)
	}

	obs, err := m.observe(ctx)
	if err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	m.started = time.Now()
	m.mu.Unlock()
	m.logger.Debug("Episode started.", zap.String("utterance", fmt.Sprint(obs["utterance"])))
	return obs, env.Info{"url": m.taskURL}, nil
}

// CreateAction builds a command, refusing primitives outside the allowed set.
func (m *MiniWoBSimulator) CreateAction(kind miniwob.ActionType, opts ...miniwob.CommandOption) (miniwob.Command, error) {
	return miniwob.NewCommand(kind, m.allowed, opts...)
}

// Step performs cmd and reports the task's reward state.
func (m *MiniWoBSimulator) Step(ctx context.Context, cmd miniwob.Command) (env.StepResult, error) {
	if err := m.perform(ctx, cmd); err != nil {
		return env.StepResult{}, fmt.Errorf("failed to perform %s: %w", cmd.Type, err)
	}

	var status miniwobStatus
	if err := m.page.Evaluate(ctx, miniwobStatusScript, &status); err != nil {
		return env.StepResult{}, fmt.Errorf("failed to read episode status: %w", err)
	}

	obs, err := m.observe(ctx)
	if err != nil {
		if !status.Done {
			return env.StepResult{}, err
		}
		// A finished task may already have torn its DOM down.
		obs = env.Observation{}
	}

	m.mu.Lock()
	elapsed := time.Since(m.started)
	m.mu.Unlock()
	return env.StepResult{
		Observation: obs,
		Reward:      status.Reward,
		Terminated:  status.Done,
		Info: env.Info{
			"raw_reward": status.RawReward,
			"reason":     status.Reason,
			"elapsed":    elapsed.Seconds(),
		},
	}, nil
}

// Close closes the underlying page.
func (m *MiniWoBSimulator) Close() error {
	return m.page.Close()
}

func (m *MiniWoBSimulator) observe(ctx context.Context) (env.Observation, error) {
	var state miniwobState
	if err := m.page.Evaluate(ctx, miniwobObserveScript, &state); err != nil {
		return nil, fmt.Errorf("failed to observe task: %w", err)
	}
	m.mu.Lock()
	m.fields = state.Fields
	m.mu.Unlock()
	return env.Observation{
		"utterance":    state.Utterance,
		"fields":       state.Fields,
		"dom_elements": state.DOMElements,
	}, nil
}

func (m *MiniWoBSimulator) field(index int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.fields) {
		return "", fmt.Errorf("field %d does not exist (%d fields)", index, len(m.fields))
	}
	return m.fields[index][1], nil
}

func (m *MiniWoBSimulator) perform(ctx context.Context, cmd miniwob.Command) error {
	x, y := float64(cmd.Coords[0]), float64(cmd.Coords[1])
	switch cmd.Type {
	case miniwob.ActionNone:
		return nil
	case miniwob.ActionMoveCoords:
		return m.page.DispatchMouse(ctx, input.DispatchMouseEvent(input.MouseMoved, x, y))
	case miniwob.ActionClickCoords:
		return clickAt(ctx, m.page, x, y, 1)
	case miniwob.ActionDblclickCoords:
		if err := clickAt(ctx, m.page, x, y, 1); err != nil {
			return err
		}
		return clickAt(ctx, m.page, x, y, 2)
	case miniwob.ActionMousedownCoords:
		return m.page.DispatchMouse(ctx, input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).WithClickCount(1))
	case miniwob.ActionMouseupCoords:
		return m.page.DispatchMouse(ctx, input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).WithClickCount(1))
	case miniwob.ActionScrollUpCoords:
		return m.page.DispatchMouse(ctx, input.DispatchMouseEvent(input.MouseWheel, x, y).
			WithDeltaX(0).WithDeltaY(-scrollDelta))
	case miniwob.ActionScrollDownCoords:
		return m.page.DispatchMouse(ctx, input.DispatchMouseEvent(input.MouseWheel, x, y).
			WithDeltaX(0).WithDeltaY(scrollDelta))
	case miniwob.ActionClickElement:
		return m.clickElement(ctx, cmd.Ref)
	case miniwob.ActionPressKey:
		comb, err := ParseKeyCombination(cmd.Key)
		if err != nil {
			return err
		}
		return m.page.Press(ctx, comb)
	case miniwob.ActionTypeText:
		return m.page.Type(ctx, cmd.Text)
	case miniwob.ActionTypeField:
		text, err := m.field(cmd.Field)
		if err != nil {
			return err
		}
		return m.page.Type(ctx, text)
	case miniwob.ActionFocusElementAndTypeText:
		if err := m.clickElement(ctx, cmd.Ref); err != nil {
			return err
		}
		return m.page.Type(ctx, cmd.Text)
	case miniwob.ActionFocusElementAndTypeField:
		text, err := m.field(cmd.Field)
		if err != nil {
			return err
		}
		if err := m.clickElement(ctx, cmd.Ref); err != nil {
			return err
		}
		return m.page.Type(ctx, text)
	default:
		return fmt.Errorf("unsupported action type %q", cmd.Type)
	}
}

func (m *MiniWoBSimulator) clickElement(ctx context.Context, ref int) error {
	return m.page.Evaluate(ctx, fmt.Sprintf("core.elementClick(%d);", ref), nil)
}

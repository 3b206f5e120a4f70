package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webgym/internal/env/miniwob"
)

const testBaseURL = "http://localhost:8080/miniwob"

func TestMiniWoBTaskURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		task    string
		want    string
		wantErr bool
	}{
		{name: "registered name", base: testBaseURL, task: "miniwob/click-test-2-v1", want: testBaseURL + "/click-test-2.html"},
		{name: "trailing slash", base: testBaseURL + "/", task: "miniwob/click-test-v0", want: testBaseURL + "/click-test.html"},
		{name: "bare name", base: testBaseURL, task: "enter-text", want: testBaseURL + "/enter-text.html"},
		{name: "version-like suffix kept", base: testBaseURL, task: "use-vim", want: testBaseURL + "/use-vim.html"},
		{name: "empty base", base: "", task: "click-test", wantErr: true},
		{name: "empty task", base: testBaseURL, task: "miniwob/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MiniWoBTaskURL(tt.base, tt.task)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestSimulator(t *testing.T, allowed ...miniwob.ActionType) (*MiniWoBSimulator, *MockPage) {
	t.Helper()
	page := new(MockPage)
	sim, err := NewMiniWoBSimulator(page, testBaseURL, "miniwob/click-test-2-v1", allowed, nil)
	require.NoError(t, err)
	return sim, page
}

func expectObserve(page *MockPage, state miniwobState) *mock.Call {
	return page.On("Evaluate", mock.Anything, miniwobObserveScript, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*miniwobState) = state
		}).Return(nil)
}

func expectStatus(page *MockPage, status miniwobStatus) *mock.Call {
	return page.On("Evaluate", mock.Anything, miniwobStatusScript, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*miniwobStatus) = status
		}).Return(nil)
}

func mouseEvent(kind input.MouseType) interface{} {
	return mock.MatchedBy(func(p *input.DispatchMouseEventParams) bool { return p.Type == kind })
}

func TestMiniWoBSimulatorReset(t *testing.T) {
	ctx := context.Background()
	sim, page := newTestSimulator(t)

	require.NoError(t, sim.SetEpisodeMaxTime(ctx, 5*time.Second))
	page.On("Navigate", ctx, testBaseURL+"/click-test-2.html").Return(nil).Once()
	page.On("Evaluate", ctx, "core.EPISODE_MAX_TIME = 5000;", nil).Return(nil).Once()
	page.On("Evaluate", ctx, miniwobStartScript, nil).Return(nil).Once()
	expectObserve(page, miniwobState{
		Utterance:   "Click button ONE.",
		Fields:      [][2]string{{"target", "ONE"}},
		DOMElements: []DOMElement{{Ref: 1, Tag: "body"}, {Ref: 4, Tag: "button", Text: "ONE"}},
	}).Once()

	obs, info, err := sim.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Click button ONE.", obs["utterance"])
	assert.Equal(t, [][2]string{{"target", "ONE"}}, obs["fields"])
	assert.Len(t, obs["dom_elements"], 2)
	assert.Equal(t, testBaseURL+"/click-test-2.html", info["url"])
	page.AssertExpectations(t)
}

func TestMiniWoBSimulatorResetNavigationFailure(t *testing.T) {
	ctx := context.Background()
	sim, page := newTestSimulator(t)
	boom := errors.New("net::ERR_CONNECTION_REFUSED")
	page.On("Navigate", ctx, mock.Anything).Return(boom).Once()

	_, _, err := sim.Reset(ctx)
	assert.ErrorIs(t, err, boom)
	page.AssertNotCalled(t, "Evaluate", mock.Anything, miniwobStartScript, mock.Anything)
}

func TestMiniWoBSimulatorStep(t *testing.T) {
	ctx := context.Background()

	t.Run("click coords reports the task reward", func(t *testing.T) {
		sim, page := newTestSimulator(t)
		page.On("DispatchMouse", ctx, mouseEvent(input.MousePressed)).Return(nil).Once()
		page.On("DispatchMouse", ctx, mouseEvent(input.MouseReleased)).Return(nil).Once()
		expectStatus(page, miniwobStatus{Reward: 0.83, RawReward: 1, Done: true}).Once()
		expectObserve(page, miniwobState{Utterance: "Click button ONE."}).Once()

		cmd, err := sim.CreateAction(miniwob.ActionClickCoords, miniwob.WithCoords(40, 60))
		require.NoError(t, err)
		res, err := sim.Step(ctx, cmd)
		require.NoError(t, err)
		assert.InDelta(t, 0.83, res.Reward, 1e-9)
		assert.True(t, res.Terminated)
		assert.Equal(t, 1.0, res.Info["raw_reward"])
		page.AssertExpectations(t)
	})

	t.Run("click element goes through the task core", func(t *testing.T) {
		sim, page := newTestSimulator(t)
		page.On("Evaluate", ctx, "core.elementClick(4);", nil).Return(nil).Once()
		expectStatus(page, miniwobStatus{}).Once()
		expectObserve(page, miniwobState{Utterance: "Click button ONE."}).Once()

		cmd, err := sim.CreateAction(miniwob.ActionClickElement, miniwob.WithRef(4))
		require.NoError(t, err)
		res, err := sim.Step(ctx, cmd)
		require.NoError(t, err)
		assert.False(t, res.Terminated)
		assert.Zero(t, res.Reward)
		page.AssertExpectations(t)
	})

	t.Run("type field uses the cached field value", func(t *testing.T) {
		sim, page := newTestSimulator(t)
		sim.fields = [][2]string{{"name", "Kanesha"}, {"city", "Oslo"}}
		page.On("Evaluate", ctx, "core.elementClick(7);", nil).Return(nil).Once()
		page.On("Type", ctx, "Oslo").Return(nil).Once()
		expectStatus(page, miniwobStatus{}).Once()
		expectObserve(page, miniwobState{}).Once()

		cmd, err := sim.CreateAction(miniwob.ActionFocusElementAndTypeField, miniwob.WithRef(7), miniwob.WithField(1))
		require.NoError(t, err)
		_, err = sim.Step(ctx, cmd)
		require.NoError(t, err)
		page.AssertExpectations(t)
	})

	t.Run("type field out of range", func(t *testing.T) {
		sim, page := newTestSimulator(t)
		cmd, err := sim.CreateAction(miniwob.ActionTypeField, miniwob.WithField(3))
		require.NoError(t, err)
		_, err = sim.Step(ctx, cmd)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "field 3 does not exist")
		page.AssertNotCalled(t, "Type", mock.Anything, mock.Anything)
	})

	t.Run("press key parses the combination", func(t *testing.T) {
		sim, page := newTestSimulator(t)
		page.On("Press", ctx, KeyCombination{Key: "a", Modifiers: []input.Modifier{input.ModifierCtrl}}).Return(nil).Once()
		expectStatus(page, miniwobStatus{}).Once()
		expectObserve(page, miniwobState{}).Once()

		cmd, err := sim.CreateAction(miniwob.ActionPressKey, miniwob.WithKey("C-a"))
		require.NoError(t, err)
		_, err = sim.Step(ctx, cmd)
		require.NoError(t, err)
		page.AssertExpectations(t)
	})

	t.Run("finished task without dom", func(t *testing.T) {
		sim, page := newTestSimulator(t)
		expectStatus(page, miniwobStatus{Reward: -1, Done: true, Reason: "timeout"}).Once()
		page.On("Evaluate", ctx, miniwobObserveScript, mock.Anything).Return(errors.New("core is not defined")).Once()

		cmd, err := sim.CreateAction(miniwob.ActionNone)
		require.NoError(t, err)
		res, err := sim.Step(ctx, cmd)
		require.NoError(t, err)
		assert.True(t, res.Terminated)
		assert.Equal(t, -1.0, res.Reward)
		assert.Empty(t, res.Observation)
		assert.Equal(t, "timeout", res.Info["reason"])
	})
}

func TestMiniWoBSimulatorCreateActionRestricted(t *testing.T) {
	sim, _ := newTestSimulator(t, miniwob.ActionClickElement)
	_, err := sim.CreateAction(miniwob.ActionTypeText, miniwob.WithText("hi"))
	assert.Error(t, err)
	_, err = sim.CreateAction(miniwob.ActionClickElement, miniwob.WithRef(2))
	assert.NoError(t, err)
}

func TestMiniWoBSimulatorSetEpisodeMaxTime(t *testing.T) {
	sim, _ := newTestSimulator(t)
	assert.Error(t, sim.SetEpisodeMaxTime(context.Background(), -time.Second))
	assert.NoError(t, sim.SetEpisodeMaxTime(context.Background(), 0))
}

func TestMiniWoBSimulatorClose(t *testing.T) {
	sim, page := newTestSimulator(t)
	page.On("Close").Return(nil).Once()
	assert.NoError(t, sim.Close())
	page.AssertExpectations(t)
}

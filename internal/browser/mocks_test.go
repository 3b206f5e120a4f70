package browser

import (
	"context"

	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/mock"
)

// MockPage mocks the Page interface. Evaluate results are written through
// .Run callbacks on the res argument.
type MockPage struct {
	mock.Mock
}

var _ Page = (*MockPage)(nil)

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) Back(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) Forward(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) Evaluate(ctx context.Context, expression string, res interface{}) error {
	return m.Called(ctx, expression, res).Error(0)
}

func (m *MockPage) DispatchMouse(ctx context.Context, p *input.DispatchMouseEventParams) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPage) Click(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) Hover(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) Focus(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) Type(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockPage) Press(ctx context.Context, comb KeyCombination) error {
	return m.Called(ctx, comb).Error(0)
}

func (m *MockPage) HTML(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Location(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) NewTab(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) FocusTab(ctx context.Context, index int) error {
	return m.Called(ctx, index).Error(0)
}

func (m *MockPage) CloseTab(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) Tabs() int {
	return m.Called().Int(0)
}

func (m *MockPage) ActiveTab() int {
	return m.Called().Int(0)
}

func (m *MockPage) Close() error {
	return m.Called().Error(0)
}

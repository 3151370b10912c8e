// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/browser"
)

// -- Browser Mocks --

// MockDriver mocks browser.Driver.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) LaunchSession(ctx context.Context) (browser.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Session), args.Error(1)
}

// MockSession mocks browser.Session.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) ID() string { return m.Called().String(0) }

func (m *MockSession) NewPage(ctx context.Context) (browser.Page, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Page), args.Error(1)
}

func (m *MockSession) Close(ctx context.Context) error { return m.Called(ctx).Error(0) }

// MockPage mocks browser.Page.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Goto(ctx context.Context, url string) error { return m.Called(ctx, url).Error(0) }
func (m *MockPage) WaitForIdle(ctx context.Context) error      { return m.Called(ctx).Error(0) }

func (m *MockPage) LocateBoundingBox(ctx context.Context, selector string) (*schemas.BoundingBox, error) {
	args := m.Called(ctx, selector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.BoundingBox), args.Error(1)
}

func (m *MockPage) MoveCursor(ctx context.Context, x, y float64, steps int) error {
	return m.Called(ctx, x, y, steps).Error(0)
}

func (m *MockPage) Click(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) Focus(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) TypeChar(ctx context.Context, r rune) error { return m.Called(ctx, r).Error(0) }

func (m *MockPage) EvaluateScript(ctx context.Context, expression string) (json.RawMessage, error) {
	args := m.Called(ctx, expression)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockPage) ReadText(ctx context.Context, selector string) (string, error) {
	args := m.Called(ctx, selector)
	return args.String(0), args.Error(1)
}

func (m *MockPage) ScrollTo(ctx context.Context, y float64) error { return m.Called(ctx, y).Error(0) }

func (m *MockPage) DocumentScrollHeight(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPage) ViewportHeight(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPage) WaitMillis(ctx context.Context, ms int) error { return m.Called(ctx, ms).Error(0) }
func (m *MockPage) Close(ctx context.Context) error          { return m.Called(ctx).Error(0) }

var (
	_ browser.Driver  = (*MockDriver)(nil)
	_ browser.Session = (*MockSession)(nil)
	_ browser.Page    = (*MockPage)(nil)
)

package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/internal/browser"
	"github.com/Kisii856/task-automation-platform/internal/config"
	"github.com/Kisii856/task-automation-platform/internal/humanoid"
	"github.com/Kisii856/task-automation-platform/internal/mocks"
)

// executeCommand runs a fresh command tree and captures its output.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// stubBrowser replaces the Chrome driver with mocks and removes pacing delays.
// The returned page answers every call successfully unless the caller adds
// its own expectations first.
func stubBrowser(t *testing.T, configure func(page *mocks.MockPage)) *mocks.MockDriver {
	t.Helper()
	page := new(mocks.MockPage)
	if configure != nil {
		configure(page)
	}
	page.On("Goto", mock.Anything, mock.Anything).Return(nil).Maybe()
	page.On("WaitForIdle", mock.Anything).Return(nil).Maybe()
	page.On("ReadText", mock.Anything, mock.Anything).Return("Example Domain", nil).Maybe()
	page.On("WaitMillis", mock.Anything, mock.Anything).Return(nil).Maybe()
	page.On("Close", mock.Anything).Return(nil).Maybe()

	session := new(mocks.MockSession)
	session.On("ID").Return("session-1").Maybe()
	session.On("NewPage", mock.Anything).Return(page, nil).Maybe()
	session.On("Close", mock.Anything).Return(nil).Maybe()

	driver := new(mocks.MockDriver)
	driver.On("LaunchSession", mock.Anything).Return(session, nil).Maybe()

	origDriver, origPacer := newBrowserDriver, newPacer
	newBrowserDriver = func(config.Interface, *zap.Logger) browser.Driver { return driver }
	newPacer = func(*config.Config) *humanoid.Pacer { return humanoid.NewPacer(humanoid.ZeroPolicy, nil) }
	t.Cleanup(func() {
		newBrowserDriver, newPacer = origDriver, origPacer
	})
	return driver
}

// Package cdp implements the browser driver boundary over the Chrome DevTools
// Protocol using chromedp. Each Session is its own Chrome process; each Page
// is a tab in it.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/internal/browser"
)

const launchTimeout = 60 * time.Second

// Driver launches local Chrome processes.
type Driver struct {
	opts   Options
	logger *zap.Logger
}

var _ browser.Driver = (*Driver)(nil)

// NewDriver creates a driver. Nothing is started until LaunchSession.
func NewDriver(opts Options, logger *zap.Logger) *Driver {
	return &Driver{opts: opts.withDefaults(), logger: logger.Named("cdp")}
}

// LaunchSession starts a browser process. ctx bounds the launch only; the
// process lives until Session.Close.
func (d *Driver) LaunchSession(ctx context.Context) (browser.Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.opts.ExecAllocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(d.logger.Sugar().Debugf))

	launchCtx, cancel := context.WithTimeout(ctx, launchTimeout)
	defer cancel()
	if err := start(launchCtx, browserCtx, browserCancel); err != nil {
		allocCancel()
		return nil, fmt.Errorf("cdp: launching browser: %w", err)
	}

	s := &Session{
		id:            uuid.NewString(),
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		opts:          d.opts,
	}
	s.logger = d.logger.With(zap.String("session_id", s.id))
	s.logger.Debug("Browser launched.")
	return s, nil
}

// start performs the first Run on target, which allocates its browser or tab.
// That first Run must use target itself: the resource lives as long as the
// context it was created with. ctx only bounds how long we wait.
func start(ctx, target context.Context, cancel context.CancelFunc, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(target, actions...) }()
	select {
	case err := <-done:
		if err != nil {
			cancel()
		}
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Session is one Chrome process.
type Session struct {
	id            string
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	opts          Options
	logger        *zap.Logger

	mu     sync.Mutex
	closed bool
}

var _ browser.Session = (*Session)(nil)

func (s *Session) ID() string { return s.id }

// NewPage opens a tab sized to the configured viewport.
func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("cdp: session %s is closed", s.id)
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	openCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()
	if err := start(openCtx, tabCtx, tabCancel, viewportActions(s.opts)...); err != nil {
		return nil, fmt.Errorf("cdp: opening tab: %w", err)
	}

	p := &Page{
		ctx:    tabCtx,
		cancel: tabCancel,
		opts:   s.opts,
		logger: s.logger,
		cursor: centerOf(s.opts),
	}
	return p, nil
}

// Close shuts the browser down, waiting for it to exit or for ctx.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.browserCtx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.browserCancel()
	s.allocCancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("cdp: closing browser: %w", err)
	}
	s.logger.Debug("Browser closed.")
	return nil
}

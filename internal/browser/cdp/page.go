package cdp

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/browser"
	"github.com/Kisii856/task-automation-platform/internal/humanoid"
)

// Page is one tab. Its methods may be called from one goroutine at a time,
// which is how the engine drives it.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	cursor humanoid.Point
	closed bool
}

var _ browser.Page = (*Page)(nil)

func viewportActions(o Options) []chromedp.Action {
	return []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(o.Width), int64(o.Height), 1, false),
	}
}

func centerOf(o Options) humanoid.Point {
	return humanoid.Point{X: float64(o.Width) / 2, Y: float64(o.Height) / 2}
}

// run executes actions bounded by the tab's lifetime, the caller's ctx and timeout.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := browser.CombineContext(p.ctx, ctx)
	defer cancel()
	opCtx, opCancel := context.WithTimeout(runCtx, timeout)
	defer opCancel()

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("cdp: operation timed out after %v: %w", timeout, context.DeadlineExceeded)
	}
	if p.ctx.Err() != nil {
		return fmt.Errorf("cdp: page closed: %w", err)
	}
	return err
}

func (p *Page) evaluate(ctx context.Context, script string) (stdjson.RawMessage, error) {
	var res stdjson.RawMessage
	err := p.run(ctx, p.opts.OperationTimeout, chromedp.Evaluate(script, &res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithReturnByValue(true).WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func isNull(raw stdjson.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func (p *Page) Goto(ctx context.Context, url string) error {
	return p.run(ctx, p.opts.NavigationTimeout, chromedp.Navigate(url))
}

// WaitForIdle waits for the document to finish loading, then for the
// configured post-load quiet period.
func (p *Page) WaitForIdle(ctx context.Context) error {
	var ready bool
	actions := []chromedp.Action{
		chromedp.Poll(readyStateScript, &ready, chromedp.WithPollingInterval(100*time.Millisecond)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if p.opts.PostLoadWait > 0 {
		actions = append(actions, chromedp.Sleep(p.opts.PostLoadWait))
	}
	return p.run(ctx, p.opts.NavigationTimeout+p.opts.PostLoadWait, actions...)
}

// LocateBoundingBox scrolls the element into view and returns its box, or
// nil when it is missing or not rendered.
func (p *Page) LocateBoundingBox(ctx context.Context, selector string) (*schemas.BoundingBox, error) {
	raw, err := p.evaluate(ctx, boxScript(selector))
	if err != nil {
		return nil, fmt.Errorf("cdp: locating %q: %w", selector, err)
	}
	if isNull(raw) {
		return nil, nil
	}
	var box schemas.BoundingBox
	if err := json.Unmarshal(raw, &box); err != nil {
		return nil, fmt.Errorf("cdp: decoding box for %q: %w", selector, err)
	}
	return &box, nil
}

// MoveCursor moves the pointer from its last position to (x, y) through steps events.
func (p *Page) MoveCursor(ctx context.Context, x, y float64, steps int) error {
	p.mu.Lock()
	from := p.cursor
	p.mu.Unlock()

	to := humanoid.Point{X: x, Y: y}
	path := humanoid.Path(from, to, steps)
	actions := make([]chromedp.Action, 0, len(path))
	for _, pt := range path {
		actions = append(actions, input.DispatchMouseEvent(input.MouseMoved, pt.X, pt.Y))
	}
	if err := p.run(ctx, p.opts.OperationTimeout, actions...); err != nil {
		return fmt.Errorf("cdp: moving cursor: %w", err)
	}

	p.mu.Lock()
	p.cursor = to
	p.mu.Unlock()
	return nil
}

// leftClick builds a single left-button press and release at a point.
func leftClick(at humanoid.Point) (press, release *input.DispatchMouseEventParams) {
	press = input.DispatchMouseEvent(input.MousePressed, at.X, at.Y).
		WithButton(input.Left).WithButtons(1).WithClickCount(1)
	release = input.DispatchMouseEvent(input.MouseReleased, at.X, at.Y).
		WithButton(input.Left).WithClickCount(1)
	return press, release
}

// Click presses and releases the left button. The press lands at the cursor
// when the cursor is over the element, otherwise at the element's center.
func (p *Page) Click(ctx context.Context, selector string) error {
	box, err := p.LocateBoundingBox(ctx, selector)
	if err != nil {
		return err
	}
	if box == nil || !box.Valid() {
		return fmt.Errorf("cdp: click %q: %w", selector, browser.ErrTargetNotFound)
	}

	p.mu.Lock()
	at := p.cursor
	p.mu.Unlock()
	if !box.Contains(at.X, at.Y) {
		at.X, at.Y = box.Center()
	}

	press, release := leftClick(at)
	if err := p.run(ctx, p.opts.OperationTimeout, press, release); err != nil {
		return fmt.Errorf("cdp: click %q: %w", selector, err)
	}

	p.mu.Lock()
	p.cursor = at
	p.mu.Unlock()
	return nil
}

func (p *Page) Focus(ctx context.Context, selector string) error {
	raw, err := p.evaluate(ctx, focusScript(selector))
	if err != nil {
		return fmt.Errorf("cdp: focus %q: %w", selector, err)
	}
	if isNull(raw) {
		return fmt.Errorf("cdp: focus %q: %w", selector, browser.ErrTargetNotFound)
	}
	return nil
}

// TypeChar sends one character to the focused element. chromedp maps control
// characters such as '\n' to their keys.
func (p *Page) TypeChar(ctx context.Context, r rune) error {
	return p.run(ctx, p.opts.OperationTimeout, chromedp.KeyEvent(string(r)))
}

func (p *Page) EvaluateScript(ctx context.Context, expr string) (stdjson.RawMessage, error) {
	return p.evaluate(ctx, expr)
}

func (p *Page) ReadText(ctx context.Context, selector string) (string, error) {
	raw, err := p.evaluate(ctx, textScript(selector))
	if err != nil {
		return "", fmt.Errorf("cdp: reading %q: %w", selector, err)
	}
	if isNull(raw) {
		return "", fmt.Errorf("cdp: reading %q: %w", selector, browser.ErrTargetNotFound)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("cdp: decoding text of %q: %w", selector, err)
	}
	return text, nil
}

func (p *Page) ScrollTo(ctx context.Context, y float64) error {
	return p.run(ctx, p.opts.OperationTimeout, chromedp.Evaluate(scrollToScript(y), nil))
}

func (p *Page) DocumentScrollHeight(ctx context.Context) (float64, error) {
	return p.number(ctx, scrollHeightScript)
}

func (p *Page) ViewportHeight(ctx context.Context) (float64, error) {
	return p.number(ctx, viewportScript)
}

func (p *Page) number(ctx context.Context, script string) (float64, error) {
	raw, err := p.evaluate(ctx, script)
	if err != nil {
		return 0, err
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("cdp: %s is not a number: %s", script, string(raw))
	}
	return n, nil
}

// WaitMillis sleeps on the page context so closing the tab also ends the wait.
func (p *Page) WaitMillis(ctx context.Context, ms int) error {
	if ms <= 0 {
		return ctx.Err()
	}
	ms = min(ms, schemas.MaxWaitMillis)
	d := time.Duration(ms) * time.Millisecond
	return p.run(ctx, d+p.opts.OperationTimeout, chromedp.Sleep(d))
}

// Close closes the tab. It is idempotent.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(p.ctx) }()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Debug("Tab close reported an error.", zap.Error(err))
		}
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
	p.cancel()
	return nil
}

package cdp

import (
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Kisii856/task-automation-platform/internal/config"
)

// Options configures the Chrome processes and pages created by a Driver.
type Options struct {
	Headless  bool
	Args      []string
	UserAgent string
	Width     int
	Height    int

	// NavigationTimeout bounds Goto and WaitForIdle.
	NavigationTimeout time.Duration
	// OperationTimeout bounds every other page operation.
	OperationTimeout time.Duration
	// PostLoadWait is slept after the document reports complete.
	PostLoadWait time.Duration
}

// OptionsFromConfig reads the browser and network sections.
func OptionsFromConfig(cfg config.Interface) Options {
	b, n := cfg.Browser(), cfg.Network()
	return Options{
		Headless:          b.Headless,
		Args:              b.Args,
		UserAgent:         b.UserAgent,
		Width:             b.Viewport.Width,
		Height:            b.Viewport.Height,
		NavigationTimeout: n.NavigationTimeout,
		OperationTimeout:  n.OperationTimeout,
		PostLoadWait:      n.PostLoadWait,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = 10 * time.Second
	}
	if o.PostLoadWait < 0 {
		o.PostLoadWait = 0
	}
	return o
}

// ExecAllocatorOptions builds the Chrome command line. Extra args may be
// boolean flags ("--mute-audio") or key=value pairs ("--lang=en-US").
func (o Options) ExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(o.Width, o.Height),
	}
	if o.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	for _, arg := range o.Args {
		name, value, hasValue := parseFlag(arg)
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// parseFlag splits "--name=value" into its parts. Leading dashes are dropped
// because chromedp adds its own.
func parseFlag(arg string) (name, value string, hasValue bool) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	name, value, hasValue = strings.Cut(arg, "=")
	return strings.TrimSpace(name), value, hasValue
}

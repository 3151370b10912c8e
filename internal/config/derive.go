package config

import (
	"github.com/Kisii856/task-automation-platform/internal/browser"
	"github.com/Kisii856/task-automation-platform/internal/decomposer"
)

// Pool returns the session pool limits.
func (b BrowserConfig) Pool() browser.PoolConfig {
	return browser.PoolConfig{
		MaxSessions: b.MaxSessions,
		LaunchRate:  b.LaunchRate,
		LaunchBurst: b.LaunchBurst,
	}
}

// Rules returns the rule decomposer's search target. Empty fields fall back
// to the decomposer's built-in defaults.
func (d DecomposerConfig) Rules() decomposer.Rules {
	return decomposer.Rules{
		SearchURL:            d.SearchURL,
		SearchInputSelector:  d.SearchInputSelector,
		SearchSubmitSelector: d.SearchSubmitSelector,
		DefaultURL:           d.DefaultURL,
	}
}

// DefaultWaitMillis is engine.default_wait in whole milliseconds.
func (e EngineConfig) DefaultWaitMillis() int {
	return int(e.DefaultWait.Milliseconds())
}

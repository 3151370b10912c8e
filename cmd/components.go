package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/internal/browser"
	"github.com/Kisii856/task-automation-platform/internal/browser/cdp"
	"github.com/Kisii856/task-automation-platform/internal/config"
	"github.com/Kisii856/task-automation-platform/internal/decomposer"
	"github.com/Kisii856/task-automation-platform/internal/engine"
	"github.com/Kisii856/task-automation-platform/internal/humanoid"
	"github.com/Kisii856/task-automation-platform/internal/runner"
	"github.com/Kisii856/task-automation-platform/internal/store"
)

const shutdownTimeout = 15 * time.Second

// Injection points for tests.
var (
	newBrowserDriver = func(cfg config.Interface, logger *zap.Logger) browser.Driver {
		return cdp.NewDriver(cdp.OptionsFromConfig(cfg), logger)
	}
	openStore = func(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (store.Store, error) {
		if cfg.Driver == config.DriverPostgres {
			pg, err := store.Open(ctx, cfg.URL, logger)
			if err != nil {
				return nil, err
			}
			return pg, nil
		}
		return processMemoryStore(), nil
	}
	newPacer = func(cfg *config.Config) *humanoid.Pacer {
		return humanoid.NewPacer(humanoid.UniformPolicy(cfg.Timings()), nil)
	}
)

var (
	memoryStoreOnce sync.Once
	memoryStore     *store.MemoryStore
)

// processMemoryStore is shared by every command run in this process, so the
// interactive shell keeps workflows between lines.
func processMemoryStore() *store.MemoryStore {
	memoryStoreOnce.Do(func() { memoryStore = store.NewMemoryStore() })
	return memoryStore
}

// components holds the services one command invocation needs.
type components struct {
	cfg    *config.Config
	logger *zap.Logger
	store  store.Store
	pool   *browser.Pool
	pacer  *humanoid.Pacer
}

// initializeComponents opens the store and, when withBrowser is set, the
// process-wide session pool shared by every engine.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withBrowser bool) (*components, error) {
	c := &components{cfg: cfg, logger: logger, pacer: newPacer(cfg)}

	st, err := openStore(ctx, cfg.Database(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize workflow store: %w", err)
	}
	c.store = st

	if withBrowser {
		c.pool = browser.NewPool(newBrowserDriver(cfg, logger), cfg.Browser().Pool(), logger)
	}
	return c, nil
}

func (c *components) decomposer(structuredPath string) decomposer.Decomposer {
	if structuredPath != "" {
		return decomposer.NewStructured(structuredPath, c.logger)
	}
	return decomposer.NewRuleBased(c.cfg.Decomposer().Rules(), c.logger)
}

// newEngine returns an engine over the shared pool. observer may be nil.
func (c *components) newEngine(observer engine.Observer) *engine.Engine {
	e := c.cfg.Engine()
	return engine.New(c.pool,
		engine.WithLogger(c.logger),
		engine.WithPacer(c.pacer),
		engine.WithHumanoidConfig(c.cfg.Humanoid().Interaction()),
		engine.WithScriptConditions(e.AllowScriptConditions),
		engine.WithInterpolation(e.InterpolateVariables),
		engine.WithDefaultWait(e.DefaultWaitMillis()),
		engine.WithObserver(observer),
	)
}

func (c *components) runner(d decomposer.Decomposer, save bool, observer engine.Observer) *runner.Runner {
	opts := []runner.Option{
		runner.WithLogger(c.logger),
		runner.WithConcurrency(c.cfg.Runner().Concurrency),
	}
	if save {
		opts = append(opts, runner.WithStore(c.store))
	}
	return runner.New(d, func() runner.Executor { return c.newEngine(observer) }, opts...)
}

// Shutdown closes the pool and the store, each bounded by shutdownTimeout.
func (c *components) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if c.pool != nil {
		if err := c.pool.Shutdown(ctx); err != nil {
			c.logger.Warn("Error during browser pool shutdown", zap.Error(err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("Error closing workflow store", zap.Error(err))
		}
	}
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// defaultCloseWait outlasts the slowest launch a teardown may queue behind.
const defaultCloseWait = 90 * time.Second

// PoolConfig bounds how sessions are launched.
type PoolConfig struct {
	// MaxSessions caps live sessions. Values below 1 mean 1.
	MaxSessions int
	// LaunchRate is the sustained launch rate per second. Zero disables pacing.
	LaunchRate  float64
	LaunchBurst int
}

// Pool wraps a Driver so that at most one session create or teardown is in
// flight at any time across every engine sharing it.
type Pool struct {
	driver    Driver
	lifecycle *semaphore.Weighted
	capacity  *semaphore.Weighted
	limiter   *rate.Limiter
	logger    *zap.Logger
	// closeWait bounds a teardown, including the wait for an in-flight launch.
	closeWait time.Duration

	mu       sync.Mutex
	sessions map[string]*pooledSession
	closed   bool
}

var _ Driver = (*Pool)(nil)

// NewPool creates a pool over driver.
func NewPool(driver Driver, cfg PoolConfig, logger *zap.Logger) *Pool {
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = 1
	}
	limit := rate.Inf
	if cfg.LaunchRate > 0 {
		limit = rate.Limit(cfg.LaunchRate)
	}
	if cfg.LaunchBurst < 1 {
		cfg.LaunchBurst = 1
	}
	return &Pool{
		driver:    driver,
		lifecycle: semaphore.NewWeighted(1),
		capacity:  semaphore.NewWeighted(int64(cfg.MaxSessions)),
		limiter:   rate.NewLimiter(limit, cfg.LaunchBurst),
		logger:    logger.Named("browser_pool"),
		closeWait: defaultCloseWait,
		sessions:  make(map[string]*pooledSession),
	}
}

// LaunchSession waits for capacity and a launch token, then creates a session
// while holding the lifecycle lock.
func (p *Pool) LaunchSession(ctx context.Context) (Session, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}
	if err := p.capacity.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("browser: waiting for session capacity: %w", err)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		p.capacity.Release(1)
		return nil, fmt.Errorf("browser: waiting for launch slot: %w", err)
	}

	inner, err := p.withLifecycle(ctx, func() (Session, error) {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}
		return p.driver.LaunchSession(ctx)
	})
	if err != nil {
		p.capacity.Release(1)
		return nil, err
	}

	ps := &pooledSession{pool: p, inner: inner, id: uuid.NewString()}
	p.mu.Lock()
	p.sessions[ps.id] = ps
	live := len(p.sessions)
	p.mu.Unlock()

	p.logger.Debug("Session launched.", zap.String("session_id", ps.id), zap.Int("live_sessions", live))
	return ps, nil
}

// Len reports the number of live sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Shutdown closes every live session and rejects further launches.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	open := make([]*pooledSession, 0, len(p.sessions))
	for _, s := range p.sessions {
		open = append(open, s)
	}
	p.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.id, err))
		}
	}
	if len(open) > 0 {
		p.logger.Info("Browser pool shut down.", zap.Int("sessions_closed", len(open)))
	}
	return errors.Join(errs...)
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) withLifecycle(ctx context.Context, fn func() (Session, error)) (Session, error) {
	if err := p.lifecycle.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("browser: waiting for lifecycle lock: %w", err)
	}
	defer p.lifecycle.Release(1)
	return fn()
}

func (p *Pool) release(s *pooledSession) {
	p.mu.Lock()
	delete(p.sessions, s.id)
	p.mu.Unlock()
	p.capacity.Release(1)
}

type pooledSession struct {
	pool  *Pool
	inner Session
	id    string

	mu     sync.Mutex
	closed bool
}

func (s *pooledSession) ID() string { return s.id }

func (s *pooledSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("browser: session %s is closed", s.id)
	}
	return s.inner.NewPage(ctx)
}

// Close is idempotent. Teardown holds the pool's lifecycle lock, waited for on
// a context detached from ctx so a cancelled caller still tears the browser
// down. If the lock or the inner close fails, the session stays registered
// and open so a later Close or Shutdown can retry it.
func (s *pooledSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(Detach(ctx), s.pool.closeWait)
	defer cancel()
	_, err := s.pool.withLifecycle(closeCtx, func() (Session, error) {
		return nil, s.inner.Close(closeCtx)
	})
	if err != nil {
		s.pool.logger.Warn("Session close failed; keeping it registered.", zap.String("session_id", s.id), zap.Error(err))
		return err
	}
	s.closed = true
	s.pool.release(s)
	s.pool.logger.Debug("Session closed.", zap.String("session_id", s.id))
	return nil
}

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*schemas.WorkflowRecord
	order     []string
	runs      map[string][]schemas.RunRecord
	now       func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[string]*schemas.WorkflowRecord),
		runs:      make(map[string][]schemas.RunRecord),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateWorkflow(ctx context.Context, task string, steps []schemas.WorkflowStep) (*schemas.WorkflowRecord, error) {
	if err := checkSteps(steps); err != nil {
		return nil, err
	}
	rec := &schemas.WorkflowRecord{
		ID:        uuid.NewString(),
		Task:      task,
		Steps:     cloneSteps(steps),
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	out := *rec
	out.Steps = cloneSteps(rec.Steps)
	return &out, nil
}

func (m *MemoryStore) GetWorkflow(ctx context.Context, id string) (*schemas.WorkflowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *rec
	out.Steps = cloneSteps(rec.Steps)
	return &out, nil
}

func (m *MemoryStore) ListWorkflows(ctx context.Context) ([]schemas.WorkflowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schemas.WorkflowRecord, 0, len(m.order))
	for _, id := range m.order {
		rec := *m.workflows[id]
		rec.Steps = cloneSteps(rec.Steps)
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore) RecordRun(ctx context.Context, run *schemas.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[run.WorkflowID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, run.WorkflowID)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	stored := *run
	stored.Results = append([]string(nil), run.Results...)
	m.runs[run.WorkflowID] = append(m.runs[run.WorkflowID], stored)
	return nil
}

func (m *MemoryStore) ListRuns(ctx context.Context, workflowID string) ([]schemas.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.workflows[workflowID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, workflowID)
	}
	runs := m.runs[workflowID]
	out := make([]schemas.RunRecord, len(runs))
	copy(out, runs)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// cloneSteps deep-copies steps so callers cannot mutate stored records.
func cloneSteps(steps []schemas.WorkflowStep) []schemas.WorkflowStep {
	dup := func(p *string) *string {
		if p == nil {
			return nil
		}
		s := *p
		return &s
	}
	out := make([]schemas.WorkflowStep, len(steps))
	for i, s := range steps {
		out[i] = schemas.WorkflowStep{
			Action:      s.Action,
			Description: s.Description,
			Selector:    dup(s.Selector),
			URL:         dup(s.URL),
			Value:       dup(s.Value),
			Condition:   dup(s.Condition),
		}
	}
	return out
}

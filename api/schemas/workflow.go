package schemas

import "time"

// -- Persistence Records --

// WorkflowRecord is a stored task together with the steps decomposed from it.
type WorkflowRecord struct {
	ID        string         `json:"id"`
	Task      string         `json:"task"`
	Steps     []WorkflowStep `json:"steps"`
	CreatedAt time.Time      `json:"created_at"`
}

// RunStatus is the terminal state of one execution run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord captures the outcome of executing a workflow once.
type RunRecord struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	Status     RunStatus `json:"status"`
	Results    []string  `json:"results"`
	ErrorCode  string    `json:"error_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration reports how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

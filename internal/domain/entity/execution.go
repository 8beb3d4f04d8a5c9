package entity

import "time"

// ExecutionState is the lifecycle state of one backend request.
type ExecutionState string

const (
	StatePending   ExecutionState = "PENDING"
	StateSubmitted ExecutionState = "SUBMITTED"
	StatePolling   ExecutionState = "POLLING"
	StateSucceeded ExecutionState = "SUCCEEDED"
	StateFailed    ExecutionState = "FAILED"
	StateCancelled ExecutionState = "CANCELLED"
)

// Terminal reports whether the state is final.
func (s ExecutionState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// QueryExecution tracks one backend request from submission to a terminal
// state. QueryID is only populated by the submit/poll/fetch backend and is
// retained after completion for diagnostics.
type QueryExecution struct {
	ReportName  string         `json:"report_name"`
	State       ExecutionState `json:"state"`
	QueryID     string         `json:"query_id,omitempty"`
	StateReason string         `json:"state_reason,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Polls       int            `json:"polls,omitempty"`
}

// NewQueryExecution returns an execution record in the PENDING state.
func NewQueryExecution(reportName string) *QueryExecution {
	return &QueryExecution{ReportName: reportName, State: StatePending}
}

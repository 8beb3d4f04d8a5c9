package entity

import "time"

// ReportRun is the terminal record of one report within a batch: its
// execution trace, the produced result when it succeeded, and the error
// when it did not.
type ReportRun struct {
	Report    string          `json:"report"`
	Provider  ProviderID      `json:"provider"`
	Execution *QueryExecution `json:"execution"`
	Result    *ReportResult   `json:"result,omitempty"`
	Savings   float64         `json:"savings"`
	FromCache bool            `json:"from_cache"`
	Err       error           `json:"-"`
}

// Succeeded reports whether the run produced a result, live or from
// cache. A run whose execution reached SUCCEEDED but failed afterwards,
// while mapping rows for example, does not count.
func (r *ReportRun) Succeeded() bool {
	return r.Err == nil && r.Execution != nil && r.Execution.State == StateSucceeded
}

// BatchOutcome merges per-provider runs for hand-off to rendering and
// savings aggregation.
type BatchOutcome struct {
	BatchID      string       `json:"batch_id"`
	Scope        RequestScope `json:"scope"`
	Completed    []*ReportRun `json:"completed"`
	Failed       []*ReportRun `json:"failed"`
	TotalSavings float64      `json:"total_savings"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
}

// Results returns the rendering list, one entry per completed run.
func (b *BatchOutcome) Results() []*ReportResult {
	out := make([]*ReportResult, 0, len(b.Completed))
	for _, run := range b.Completed {
		if run.Result != nil {
			out = append(out, run.Result)
		}
	}
	return out
}

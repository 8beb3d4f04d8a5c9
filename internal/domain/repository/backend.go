package repository

import (
	"context"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
)

// Backend is the port a provider orchestrator drives. Direct-API backends
// satisfy only this interface; the usage-report query service additionally
// implements AsyncBackend.
type Backend interface {
	ID() entity.ProviderID

	// Preflight verifies the backend is usable for this batch
	// (entitlement, enrollment, required settings). A non-nil error skips
	// the whole provider.
	Preflight(ctx context.Context) error

	// Fetch performs a synchronous request, following pagination tokens
	// to exhaustion, and returns the raw table.
	Fetch(ctx context.Context, req entity.ReportRequest) (entity.ResultTable, error)
}

// AsyncBackend is the submit/poll/fetch surface of the usage-report query
// service.
type AsyncBackend interface {
	Backend

	// Submit starts the query and returns the external query id.
	Submit(ctx context.Context, req entity.ReportRequest) (string, error)

	// Poll returns the execution state for the query id, plus the
	// backend-stated reason when the state is FAILED or CANCELLED.
	Poll(ctx context.Context, queryID string) (entity.ExecutionState, string, error)

	// Results fetches the finished query's rows. Called exactly once per
	// succeeded query.
	Results(ctx context.Context, queryID string) (entity.ResultTable, error)
}

// ScopeResolver fills the unset parts of a request scope from the
// environment: caller identity for the account list, enabled regions for
// the region list.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, scope entity.RequestScope) (entity.RequestScope, error)
}

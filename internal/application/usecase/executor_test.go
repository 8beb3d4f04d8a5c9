package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/logging"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

func TestExecutorRunSync(t *testing.T) {
	want := entity.ResultTable{Columns: []string{"Account"}, Rows: [][]string{{"111111111111"}}}
	backend := &fakeBackend{fetch: func(req entity.ReportRequest) (entity.ResultTable, error) {
		return want, nil
	}}

	execution, table, err := newTestExecutor().Run(context.Background(), backend, "account-spend", metricsRequest())

	require.NoError(t, err)
	assert.Equal(t, entity.StateSucceeded, execution.State)
	assert.Equal(t, "account-spend", execution.ReportName)
	assert.Empty(t, execution.QueryID)
	assert.Zero(t, execution.Polls)
	assert.Equal(t, want, table)
	assert.Equal(t, 1, backend.fetches)
}

func TestExecutorRunSyncFailure(t *testing.T) {
	fetchErr := errors.New("throttled")
	backend := &fakeBackend{fetch: func(req entity.ReportRequest) (entity.ResultTable, error) {
		return entity.ResultTable{}, fetchErr
	}}

	execution, _, err := newTestExecutor().Run(context.Background(), backend, "account-spend", metricsRequest())

	require.ErrorIs(t, err, fetchErr)
	assert.Equal(t, entity.StateFailed, execution.State)
	assert.Equal(t, "throttled", execution.StateReason)
}

func TestExecutorRunAsyncPollsUntilSucceeded(t *testing.T) {
	want := entity.ResultTable{
		Columns: []string{"account_id", "estimated_savings"},
		Rows:    [][]string{{"111111111111", "42.00"}},
	}
	backend := &fakeQueryBackend{
		queryID: "q-1",
		states:  []entity.ExecutionState{entity.StatePolling, entity.StatePolling, entity.StateSucceeded},
		results: want,
	}
	req := entity.ReportRequest{Query: &entity.QueryRequest{SQL: "SELECT 1"}}

	execution, table, err := newTestExecutor().Run(context.Background(), backend, "idle-nat-gateways", req)

	require.NoError(t, err)
	assert.Equal(t, entity.StateSucceeded, execution.State)
	assert.Equal(t, "q-1", execution.QueryID)
	assert.Equal(t, 3, execution.Polls)
	assert.Equal(t, 1, backend.resultsCalls, "results are fetched exactly once")
	assert.Equal(t, want, table)
}

func TestExecutorRunAsyncFailedState(t *testing.T) {
	backend := &fakeQueryBackend{
		queryID:     "q-1",
		states:      []entity.ExecutionState{entity.StatePolling, entity.StateFailed},
		stateReason: "SYNTAX_ERROR: line 3",
	}
	req := entity.ReportRequest{Query: &entity.QueryRequest{SQL: "SELECT nope"}}

	execution, _, err := newTestExecutor().Run(context.Background(), backend, "idle-nat-gateways", req)

	var backendErr *types.BackendRequestError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "q-1", backendErr.QueryID)
	assert.Contains(t, backendErr.Reason, "SYNTAX_ERROR")
	assert.Equal(t, entity.StateFailed, execution.State)
	assert.Zero(t, backend.resultsCalls, "no results fetch for a failed query")
}

func TestExecutorRunAsyncSubmitFailure(t *testing.T) {
	submitErr := errors.New("access denied")
	backend := &fakeQueryBackend{submitErr: submitErr}
	req := entity.ReportRequest{Query: &entity.QueryRequest{SQL: "SELECT 1"}}

	execution, _, err := newTestExecutor().Run(context.Background(), backend, "idle-nat-gateways", req)

	require.ErrorIs(t, err, submitErr)
	assert.Equal(t, entity.StateFailed, execution.State)
	assert.Zero(t, backend.polls)
}

func TestExecutorRunAsyncCancellation(t *testing.T) {
	backend := &fakeQueryBackend{
		queryID: "q-1",
		states:  []entity.ExecutionState{entity.StatePolling},
	}
	req := entity.ReportRequest{Query: &entity.QueryRequest{SQL: "SELECT 1"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	execution, _, err := newTestExecutor().Run(ctx, backend, "idle-nat-gateways", req)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, entity.StateCancelled, execution.State)
	assert.Zero(t, backend.resultsCalls)
}

func TestExecutorRunAsyncTimeout(t *testing.T) {
	backend := &fakeQueryBackend{
		queryID: "q-1",
		states:  []entity.ExecutionState{entity.StatePolling},
	}
	req := entity.ReportRequest{Query: &entity.QueryRequest{SQL: "SELECT 1"}}
	executor := NewExecutor(PollPolicy{
		Interval:    time.Millisecond,
		MaxInterval: time.Millisecond,
		Timeout:     5 * time.Millisecond,
	}, logging.Discard())

	execution, _, err := executor.Run(context.Background(), backend, "idle-nat-gateways", req)

	var backendErr *types.BackendRequestError
	require.ErrorAs(t, err, &backendErr)
	assert.Contains(t, backendErr.Reason, "did not complete")
	assert.Equal(t, entity.StateFailed, execution.State)
	assert.Zero(t, backend.resultsCalls)
}

func TestExecutorRunAsyncRequiresAsyncBackend(t *testing.T) {
	backend := &fakeBackend{}
	req := entity.ReportRequest{Query: &entity.QueryRequest{SQL: "SELECT 1"}}

	execution, _, err := newTestExecutor().Run(context.Background(), backend, "idle-nat-gateways", req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot run asynchronous requests")
	assert.Equal(t, entity.StateFailed, execution.State)
	assert.Zero(t, backend.fetches)
}

func TestExecutorRunAsyncResultsFailure(t *testing.T) {
	resultsErr := errors.New("results expired")
	backend := &fakeQueryBackend{
		queryID:    "q-1",
		states:     []entity.ExecutionState{entity.StateSucceeded},
		resultsErr: resultsErr,
	}
	req := entity.ReportRequest{Query: &entity.QueryRequest{SQL: "SELECT 1"}}

	execution, _, err := newTestExecutor().Run(context.Background(), backend, "idle-nat-gateways", req)

	require.ErrorIs(t, err, resultsErr)
	assert.Equal(t, entity.StateFailed, execution.State)
	assert.Equal(t, 1, backend.resultsCalls)
}

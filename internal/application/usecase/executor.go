package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// PollPolicy controls how an asynchronous execution is polled: the
// starting interval, the backoff ceiling and the overall deadline.
type PollPolicy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
}

// DefaultPollPolicy returns the polling defaults used by the CLI.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    time.Second,
		MaxInterval: 10 * time.Second,
		Timeout:     15 * time.Minute,
	}
}

// Executor drives a single report request through its execution states,
// hiding whether the backend answers synchronously or via submit/poll.
type Executor struct {
	policy PollPolicy
	log    logrus.FieldLogger
}

// NewExecutor creates an executor with the given polling policy.
func NewExecutor(policy PollPolicy, log logrus.FieldLogger) *Executor {
	if policy.Interval <= 0 {
		policy.Interval = DefaultPollPolicy().Interval
	}
	if policy.MaxInterval < policy.Interval {
		policy.MaxInterval = policy.Interval
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultPollPolicy().Timeout
	}
	return &Executor{policy: policy, log: log}
}

// Run executa o request no backend e devolve a execução terminal junto
// com a tabela obtida. Requests assíncronos exigem um backend que
// implemente o port assíncrono.
func (e *Executor) Run(ctx context.Context, backend repository.Backend, reportName string, req entity.ReportRequest) (entity.QueryExecution, entity.ResultTable, error) {
	execution := entity.QueryExecution{ReportName: reportName, State: entity.StatePending}

	if req.Async() {
		async, ok := backend.(repository.AsyncBackend)
		if !ok {
			err := fmt.Errorf("backend %s cannot run asynchronous requests", backend.ID())
			e.fail(&execution, err)
			return execution, entity.ResultTable{}, err
		}
		return e.runAsync(ctx, async, execution, req)
	}
	return e.runSync(ctx, backend, execution, req)
}

// runSync: uma única chamada Fetch; a paginação acontece dentro do
// adapter.
func (e *Executor) runSync(ctx context.Context, backend repository.Backend, execution entity.QueryExecution, req entity.ReportRequest) (entity.QueryExecution, entity.ResultTable, error) {
	execution.State = entity.StateSubmitted
	execution.SubmittedAt = time.Now()

	table, err := backend.Fetch(ctx, req)
	execution.CompletedAt = time.Now()
	if err != nil {
		e.fail(&execution, err)
		return execution, entity.ResultTable{}, err
	}

	execution.State = entity.StateSucceeded
	return execution, table, nil
}

// runAsync: SUBMITTED -> POLLING com backoff limitado -> estado terminal.
// O loop respeita cancelamento de contexto e o deadline da política; os
// resultados são buscados uma única vez, somente após SUCCEEDED.
func (e *Executor) runAsync(ctx context.Context, backend repository.AsyncBackend, execution entity.QueryExecution, req entity.ReportRequest) (entity.QueryExecution, entity.ResultTable, error) {
	queryID, err := backend.Submit(ctx, req)
	if err != nil {
		e.fail(&execution, err)
		return execution, entity.ResultTable{}, err
	}

	execution.State = entity.StateSubmitted
	execution.QueryID = queryID
	execution.SubmittedAt = time.Now()
	e.log.WithFields(logrus.Fields{"report": execution.ReportName, "query_id": queryID}).Debug("execution submitted")

	deadline := time.Now().Add(e.policy.Timeout)
	interval := e.policy.Interval

	for {
		select {
		case <-ctx.Done():
			execution.State = entity.StateCancelled
			execution.StateReason = ctx.Err().Error()
			execution.CompletedAt = time.Now()
			return execution, entity.ResultTable{}, ctx.Err()
		case <-time.After(interval):
		}

		execution.Polls++
		state, reason, err := backend.Poll(ctx, queryID)
		if err != nil {
			e.fail(&execution, err)
			execution.CompletedAt = time.Now()
			return execution, entity.ResultTable{}, err
		}

		execution.State = state
		execution.StateReason = reason
		if state.Terminal() {
			break
		}

		if time.Now().After(deadline) {
			timeoutErr := &types.BackendRequestError{
				Provider: string(backend.ID()),
				Report:   execution.ReportName,
				QueryID:  queryID,
				Reason:   fmt.Sprintf("execution did not complete within %s", e.policy.Timeout),
			}
			e.fail(&execution, timeoutErr)
			execution.CompletedAt = time.Now()
			return execution, entity.ResultTable{}, timeoutErr
		}

		interval *= 2
		if interval > e.policy.MaxInterval {
			interval = e.policy.MaxInterval
		}
	}

	execution.CompletedAt = time.Now()
	if execution.State != entity.StateSucceeded {
		stateErr := &types.BackendRequestError{
			Provider: string(backend.ID()),
			Report:   execution.ReportName,
			QueryID:  queryID,
			Reason:   fmt.Sprintf("execution finished in state %s: %s", execution.State, execution.StateReason),
		}
		return execution, entity.ResultTable{}, stateErr
	}

	table, err := backend.Results(ctx, queryID)
	if err != nil {
		e.fail(&execution, err)
		return execution, entity.ResultTable{}, err
	}
	return execution, table, nil
}

// fail marca a execução como FAILED, preservando cancelamentos e a
// primeira razão registrada. Uma consulta SUCCEEDED cujos resultados não
// puderam ser buscados também conta como falha.
func (e *Executor) fail(execution *entity.QueryExecution, err error) {
	if execution.State != entity.StateFailed && execution.State != entity.StateCancelled {
		execution.State = entity.StateFailed
	}
	if execution.StateReason == "" {
		execution.StateReason = err.Error()
	}
}

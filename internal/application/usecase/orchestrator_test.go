package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

func testScope() entity.RequestScope {
	return entity.RequestScope{
		Accounts: []string{"111111111111"},
		Regions:  []string{"us-east-1"},
		Customer: "acme",
	}
}

func savingsReport(name string) *testReport {
	return &testReport{
		Base: report.Base{
			ReportName:     name,
			ReportTitle:    name,
			ReportProvider: entity.ProviderCostMetrics,
			Columns:        []string{"Account", entity.SavingsColumn},
			ShowSavings:    true,
		},
		request: metricsRequest(),
	}
}

func TestOrchestratorRunLiveFetch(t *testing.T) {
	raw := entity.ResultTable{
		Columns: []string{"Account", entity.SavingsColumn},
		Rows:    [][]string{{"111111111111", "3.50"}, {"222222222222", "1.25"}},
	}
	backend := &fakeBackend{fetch: func(req entity.ReportRequest) (entity.ResultTable, error) {
		return raw, nil
	}}
	cache := newMemCache()
	desc := savingsReport("account-spend")
	orch := newTestOrchestrator(t, backend, cache, desc)

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.True(t, run.Succeeded())
	assert.False(t, run.FromCache)
	assert.Equal(t, raw.Rows, run.Result.Table.Rows)
	assert.InDelta(t, 4.75, run.Savings, 0.0001)
	assert.Equal(t, 1, desc.buildCalls)
	assert.Equal(t, 1, cache.stores, "a succeeded live fetch is cached")

	fp := entity.ComputeFingerprint("account-spend", testScope())
	assert.Contains(t, cache.entries, fp)
}

func TestOrchestratorServesFromCache(t *testing.T) {
	cached := entity.ResultTable{
		Columns: []string{"Account", entity.SavingsColumn},
		Rows:    [][]string{{"111111111111", "9.00"}},
	}
	backend := &fakeBackend{}
	cache := newMemCache()
	desc := savingsReport("account-spend")
	cache.seed(entity.ComputeFingerprint("account-spend", testScope()), "account-spend", cached)
	orch := newTestOrchestrator(t, backend, cache, desc)

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.True(t, run.Succeeded())
	assert.True(t, run.FromCache)
	assert.Equal(t, cached, run.Result.Table)
	assert.InDelta(t, 9.00, run.Savings, 0.0001)
	assert.Zero(t, backend.fetches, "a cache hit never reaches the backend")
	assert.Zero(t, desc.buildCalls)
}

func TestOrchestratorNoCacheBypassesLookup(t *testing.T) {
	backend := &fakeBackend{}
	cache := newMemCache()
	cache.seed(entity.ComputeFingerprint("account-spend", testScope()), "account-spend", entity.ResultTable{})
	orch := newTestOrchestrator(t, backend, cache, savingsReport("account-spend"))

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope(), NoCache: true})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].FromCache)
	assert.Equal(t, 1, backend.fetches)
	assert.Zero(t, cache.lookups)
}

func TestOrchestratorSkipCacheInvalidatesBeforeFetch(t *testing.T) {
	backend := &fakeBackend{}
	cache := newMemCache()
	desc := savingsReport("live-rates")
	desc.SkipCache = true
	fp := entity.ComputeFingerprint("live-rates", testScope())
	cache.seed(fp, "live-rates", entity.ResultTable{})
	orch := newTestOrchestrator(t, backend, cache, desc)

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Succeeded())
	assert.False(t, runs[0].FromCache)
	assert.Equal(t, 1, backend.fetches, "exactly one live fetch")
	assert.Equal(t, []entity.Fingerprint{fp}, cache.invalidated)
	assert.Zero(t, cache.lookups)
	assert.Zero(t, cache.stores, "uncacheable results are never stored")
}

func TestOrchestratorRecoversFromUnreadableCacheEntry(t *testing.T) {
	backend := &fakeBackend{}
	cache := newMemCache()
	cache.lookupErr = &types.CacheIntegrityError{Fingerprint: "x", Err: errors.New("bad json")}
	orch := newTestOrchestrator(t, backend, cache, savingsReport("account-spend"))

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Succeeded())
	assert.Equal(t, 1, backend.fetches, "an unreadable entry falls back to a live fetch")
	assert.Len(t, cache.invalidated, 1, "the unreadable entry is discarded")
}

func TestOrchestratorDependencyFailurePropagates(t *testing.T) {
	fetchErr := errors.New("query rejected")
	backend := &fakeBackend{fetch: func(req entity.ReportRequest) (entity.ResultTable, error) {
		return entity.ResultTable{}, fetchErr
	}}
	base := savingsReport("monthly-usage")
	dependent := savingsReport("usage-growth")
	dependent.DependsOn = []string{"monthly-usage"}
	orch := newTestOrchestrator(t, backend, newMemCache(), base, dependent)

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.ErrorIs(t, runs[0].Err, fetchErr)

	var depErr *types.DependencyError
	require.ErrorAs(t, runs[1].Err, &depErr)
	assert.Equal(t, "monthly-usage", depErr.Base)
	assert.Equal(t, entity.StateFailed, runs[1].Execution.State)
	assert.Zero(t, dependent.buildCalls, "a dependent of a failed base never builds its request")
	assert.Equal(t, 1, backend.fetches, "only the base reached the backend")
}

func TestOrchestratorOrdersDependenciesFirst(t *testing.T) {
	backend := &fakeBackend{}
	base := savingsReport("monthly-usage")
	dependent := savingsReport("usage-growth")
	dependent.DependsOn = []string{"monthly-usage"}

	// Registro invertido: o dependente entra antes da base.
	orch := newTestOrchestrator(t, backend, newMemCache(), dependent, base)

	runs, err := orch.Run(context.Background(), []string{"usage-growth"}, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 2, "requesting the dependent pulls its base in")
	assert.Equal(t, "monthly-usage", runs[0].Report)
	assert.Equal(t, "usage-growth", runs[1].Report)
}

func TestOrchestratorDependentSeesBaseTable(t *testing.T) {
	baseTable := entity.ResultTable{
		Columns: []string{"Account", entity.SavingsColumn},
		Rows:    [][]string{{"111111111111", "5.00"}},
	}
	backend := &fakeBackend{fetch: func(req entity.ReportRequest) (entity.ResultTable, error) {
		return baseTable, nil
	}}
	base := savingsReport("monthly-usage")
	dependent := &dependentReport{testReport: *savingsReport("usage-growth")}
	dependent.DependsOn = []string{"monthly-usage"}
	orch := newTestOrchestrator(t, backend, newMemCache(), base, dependent)

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[1].Succeeded())
	require.NotNil(t, dependent.sawBase)
	assert.Equal(t, baseTable.Rows, dependent.sawBase.Rows)
}

// dependentReport captures the base table handed to BuildRequest.
type dependentReport struct {
	testReport
	sawBase *entity.ResultTable
}

func (d *dependentReport) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	if table, ok := in.BaseTables["monthly-usage"]; ok {
		d.sawBase = &table
	}
	return d.testReport.BuildRequest(in)
}

func TestOrchestratorPreflightFailureSkipsProvider(t *testing.T) {
	backend := &fakeBackend{preflightErr: errors.New("subscription required")}
	desc := savingsReport("account-spend")
	orch := newTestOrchestrator(t, backend, newMemCache(), desc)

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err, "a failed preflight is a warning, not a batch error")
	assert.Empty(t, runs)
	assert.Zero(t, backend.fetches)
	assert.Zero(t, desc.buildCalls)
}

func TestOrchestratorEmptyTableStillSucceeds(t *testing.T) {
	backend := &fakeBackend{fetch: func(req entity.ReportRequest) (entity.ResultTable, error) {
		return entity.ResultTable{Columns: []string{"Account", entity.SavingsColumn}}, nil
	}}
	cache := newMemCache()
	orch := newTestOrchestrator(t, backend, cache, savingsReport("account-spend"))

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.True(t, run.Succeeded())
	assert.True(t, run.Result.Table.Empty())
	assert.Zero(t, run.Savings)
	assert.Equal(t, 1, cache.stores, "empty results are cached like any other")
}

func TestOrchestratorMapRowsFailure(t *testing.T) {
	backend := &fakeBackend{}
	cache := newMemCache()
	desc := savingsReport("account-spend")
	desc.mapErr = errors.New("unexpected column layout")
	orch := newTestOrchestrator(t, backend, cache, desc)

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.False(t, run.Succeeded())
	assert.Equal(t, entity.StateFailed, run.Execution.State)
	assert.Zero(t, cache.stores, "failed mappings are not cached")
}

func TestOrchestratorFailFastStopsAfterFirstFailure(t *testing.T) {
	backend := &fakeBackend{fetch: func(req entity.ReportRequest) (entity.ResultTable, error) {
		return entity.ResultTable{}, errors.New("throttled")
	}}
	first := savingsReport("account-spend")
	second := savingsReport("budget-status")

	t.Run("fail fast stops the provider", func(t *testing.T) {
		orch := newTestOrchestrator(t, backend, newMemCache(), first, second)
		runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope(), FailFast: true})
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("default keeps going", func(t *testing.T) {
		orch := newTestOrchestrator(t, backend, newMemCache(), first, second)
		runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})
}

func TestOrchestratorDependencyValidation(t *testing.T) {
	scope := testScope()

	t.Run("unknown base", func(t *testing.T) {
		desc := savingsReport("usage-growth")
		desc.DependsOn = []string{"missing-base"}
		orch := newTestOrchestrator(t, &fakeBackend{}, newMemCache(), desc)

		_, err := orch.Run(context.Background(), nil, RunInput{Scope: scope})

		var configErr *types.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, configErr.Reason, "missing-base")
	})

	t.Run("base from another provider", func(t *testing.T) {
		foreign := savingsReport("foreign-base")
		foreign.ReportProvider = entity.ProviderAdvisor
		desc := savingsReport("usage-growth")
		desc.DependsOn = []string{"foreign-base"}
		orch := newTestOrchestrator(t, &fakeBackend{}, newMemCache(), foreign, desc)

		_, err := orch.Run(context.Background(), []string{"usage-growth"}, RunInput{Scope: scope})

		var configErr *types.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, configErr.Reason, "another provider")
	})

	t.Run("cycle", func(t *testing.T) {
		a := savingsReport("report-a")
		a.DependsOn = []string{"report-b"}
		b := savingsReport("report-b")
		b.DependsOn = []string{"report-a"}
		orch := newTestOrchestrator(t, &fakeBackend{}, newMemCache(), a, b)

		_, err := orch.Run(context.Background(), nil, RunInput{Scope: scope})

		var configErr *types.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Contains(t, configErr.Reason, "cycle")
	})
}

func TestOrchestratorUnknownReportName(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeBackend{}, newMemCache(), savingsReport("account-spend"))

	_, err := orch.Run(context.Background(), []string{"no-such-report"}, RunInput{Scope: testScope()})

	var configErr *types.ConfigurationError
	require.ErrorAs(t, err, &configErr)
}

func TestOrchestratorNoMatchingReports(t *testing.T) {
	// O catálogo só tem relatórios de outro provedor.
	foreign := savingsReport("unassociated-elastic-ips")
	foreign.ReportProvider = entity.ProviderAdvisor
	orch := newTestOrchestrator(t, &fakeBackend{}, newMemCache(), foreign)

	runs, err := orch.Run(context.Background(), nil, RunInput{Scope: testScope()})

	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRemediationHint(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"configuration error": {
			err:  &types.ConfigurationError{Field: "cur_table", Reason: "missing"},
			want: "configuration",
		},
		"dependency error": {
			err:  &types.DependencyError{Report: "usage-growth", Base: "monthly-usage", BaseErr: errors.New("failed")},
			want: "monthly-usage",
		},
		"backend error": {
			err:  &types.BackendRequestError{Provider: "advisor", Report: "idle-load-balancers", Reason: "denied"},
			want: "advisor",
		},
		"plain error has no hint": {
			err:  fmt.Errorf("boom"),
			want: "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			hint := remediationHint(tt.err)
			if tt.want == "" {
				assert.Empty(t, hint)
				return
			}
			assert.Contains(t, hint, tt.want)
		})
	}
}

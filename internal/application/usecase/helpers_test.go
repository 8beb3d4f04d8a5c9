package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/logging"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// fakeBackend answers Fetch from a scripted function and counts calls.
type fakeBackend struct {
	id           entity.ProviderID
	preflightErr error
	fetch        func(req entity.ReportRequest) (entity.ResultTable, error)
	fetches      int
	requests     []entity.ReportRequest
}

func (b *fakeBackend) ID() entity.ProviderID {
	if b.id == "" {
		return entity.ProviderCostMetrics
	}
	return b.id
}

func (b *fakeBackend) Preflight(ctx context.Context) error { return b.preflightErr }

func (b *fakeBackend) Fetch(ctx context.Context, req entity.ReportRequest) (entity.ResultTable, error) {
	b.fetches++
	b.requests = append(b.requests, req)
	if b.fetch != nil {
		return b.fetch(req)
	}
	return entity.ResultTable{}, nil
}

// fakeQueryBackend scripts the submit/poll/fetch surface. Poll walks the
// states slice one entry per call, repeating the last entry once
// exhausted.
type fakeQueryBackend struct {
	fakeBackend
	queryID      string
	submitErr    error
	states       []entity.ExecutionState
	stateReason  string
	pollErr      error
	polls        int
	results      entity.ResultTable
	resultsErr   error
	resultsCalls int
}

func (b *fakeQueryBackend) ID() entity.ProviderID {
	if b.id == "" {
		return entity.ProviderUsageQuery
	}
	return b.id
}

func (b *fakeQueryBackend) Submit(ctx context.Context, req entity.ReportRequest) (string, error) {
	if b.submitErr != nil {
		return "", b.submitErr
	}
	return b.queryID, nil
}

func (b *fakeQueryBackend) Poll(ctx context.Context, queryID string) (entity.ExecutionState, string, error) {
	if b.pollErr != nil {
		return entity.StateFailed, "", b.pollErr
	}
	idx := b.polls
	if idx >= len(b.states) {
		idx = len(b.states) - 1
	}
	b.polls++
	state := b.states[idx]
	if state.Terminal() {
		return state, b.stateReason, nil
	}
	return state, "", nil
}

func (b *fakeQueryBackend) Results(ctx context.Context, queryID string) (entity.ResultTable, error) {
	b.resultsCalls++
	if b.resultsErr != nil {
		return entity.ResultTable{}, b.resultsErr
	}
	return b.results, nil
}

// memCache is an in-memory CacheRepository that records traffic.
type memCache struct {
	entries     map[entity.Fingerprint]*entity.CacheEntry
	lookupErr   error
	lookups     int
	stores      int
	invalidated []entity.Fingerprint
}

func newMemCache() *memCache {
	return &memCache{entries: map[entity.Fingerprint]*entity.CacheEntry{}}
}

func (c *memCache) Lookup(fp entity.Fingerprint) (*entity.CacheEntry, error) {
	c.lookups++
	if c.lookupErr != nil {
		return nil, c.lookupErr
	}
	return c.entries[fp], nil
}

func (c *memCache) Store(fp entity.Fingerprint, reportName string, table entity.ResultTable) error {
	c.stores++
	c.entries[fp] = &entity.CacheEntry{
		Fingerprint: fp,
		ReportName:  reportName,
		Table:       table,
		CreatedAt:   time.Now(),
		TTLDays:     entity.DefaultCacheTTLDays,
	}
	return nil
}

func (c *memCache) Invalidate(fp entity.Fingerprint) error {
	c.invalidated = append(c.invalidated, fp)
	delete(c.entries, fp)
	return nil
}

func (c *memCache) seed(fp entity.Fingerprint, reportName string, table entity.ResultTable) {
	c.entries[fp] = &entity.CacheEntry{
		Fingerprint: fp,
		ReportName:  reportName,
		Table:       table,
		CreatedAt:   time.Now(),
		TTLDays:     entity.DefaultCacheTTLDays,
	}
}

// testReport completes report.Base with a scripted BuildRequest and
// counts how often requests are built.
type testReport struct {
	report.Base
	request    entity.ReportRequest
	buildErr   error
	buildCalls int
	mapErr     error
}

func (d *testReport) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	d.buildCalls++
	if d.buildErr != nil {
		return entity.ReportRequest{}, d.buildErr
	}
	return d.request, nil
}

func (d *testReport) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	if d.mapErr != nil {
		return entity.ResultTable{}, d.mapErr
	}
	return d.Base.MapRows(raw)
}

func metricsRequest() entity.ReportRequest {
	return entity.ReportRequest{Metrics: &entity.MetricsRequest{Kind: entity.MetricsCostAndUsage}}
}

// fakeScopes echoes the requested scope, filling accounts and regions
// when unset.
type fakeScopes struct {
	accounts []string
	regions  []string
	err      error
}

func (s *fakeScopes) ResolveScope(ctx context.Context, scope entity.RequestScope) (entity.RequestScope, error) {
	if s.err != nil {
		return entity.RequestScope{}, s.err
	}
	out := scope.Canonical()
	if len(out.Accounts) == 0 {
		out.Accounts = s.accounts
	}
	if len(out.Regions) == 0 {
		out.Regions = s.regions
	}
	return out, nil
}

// fakeExporter records export calls per format.
type fakeExporter struct {
	csv, json, pdf int
}

func (e *fakeExporter) ExportToCSV(outcome *entity.BatchOutcome, filename, outputDir string) (string, error) {
	e.csv++
	return filepath.Join(outputDir, filename+".csv"), nil
}

func (e *fakeExporter) ExportToJSON(outcome *entity.BatchOutcome, filename, outputDir string) (string, error) {
	e.json++
	return filepath.Join(outputDir, filename+".json"), nil
}

func (e *fakeExporter) ExportToPDF(outcome *entity.BatchOutcome, filename, outputDir string) (string, error) {
	e.pdf++
	return filepath.Join(outputDir, filename+".pdf"), nil
}

// nopConsole swallows all console output.
type nopConsole struct{}

func (nopConsole) Print(a ...interface{})                           {}
func (nopConsole) Printf(format string, a ...interface{})           {}
func (nopConsole) Println(a ...interface{})                         {}
func (nopConsole) LogInfo(format string, a ...interface{})          {}
func (nopConsole) LogWarning(format string, a ...interface{})       {}
func (nopConsole) LogError(format string, a ...interface{})         {}
func (nopConsole) LogSuccess(format string, a ...interface{})       {}
func (nopConsole) Status(message string) types.StatusHandle         { return nopStatus{} }
func (nopConsole) Progress(items []string) types.ProgressHandle     { return nopProgress{} }
func (nopConsole) CreateTable() types.TableInterface                { return &nopTable{} }
func (nopConsole) DisplaySavingsBars(savings []types.ReportSavings) {}
func (nopConsole) ProgressWithTotal(total int) types.ProgressHandle { return nopProgress{} }

type nopStatus struct{}

func (nopStatus) Update(message string) {}
func (nopStatus) Stop()                 {}

type nopProgress struct{}

func (nopProgress) Increment() {}
func (nopProgress) Stop()      {}

type nopTable struct{}

func (*nopTable) AddColumn(name string, options ...interface{}) {}
func (*nopTable) AddRow(cells ...interface{})                   {}
func (*nopTable) Render() string                                { return "" }

// testPollPolicy keeps async tests fast.
func testPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    time.Millisecond,
		MaxInterval: 4 * time.Millisecond,
		Timeout:     time.Second,
	}
}

func newTestExecutor() *Executor {
	return NewExecutor(testPollPolicy(), logging.Discard())
}

func newTestOrchestrator(t *testing.T, backend repository.Backend, cache repository.CacheRepository, descriptors ...report.Descriptor) *Orchestrator {
	t.Helper()
	registry := report.NewRegistry()
	for _, d := range descriptors {
		require.NoError(t, registry.Register(d))
	}
	return NewOrchestrator(backend, registry, cache, newTestExecutor(), nopConsole{}, logging.Discard())
}

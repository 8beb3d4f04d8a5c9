package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
)

func sampleOutcome() *entity.BatchOutcome {
	completed := &entity.ReportRun{
		Report:    "account-spend",
		Provider:  entity.ProviderCostMetrics,
		Execution: entity.NewQueryExecution("account-spend"),
		Result: &entity.ReportResult{
			Name: "Account Spend",
			Table: entity.ResultTable{
				Columns: []string{"Month", "Account", "Cost"},
				Rows: [][]string{
					{"2025-01", "111111111111", "1042.17"},
					{"2025-02", "111111111111", "987.60"},
				},
			},
		},
	}
	completed.Execution.State = entity.StateSucceeded

	failed := &entity.ReportRun{
		Report:    "idle-nat-gateways",
		Provider:  entity.ProviderUsageQuery,
		Execution: entity.NewQueryExecution("idle-nat-gateways"),
		Err:       fmt.Errorf("query rejected"),
	}
	failed.Execution.State = entity.StateFailed
	failed.Execution.StateReason = "SYNTAX_ERROR: line 3"

	return &entity.BatchOutcome{
		BatchID: "b-123",
		Scope: entity.RequestScope{
			Accounts: []string{"111111111111"},
			Regions:  []string{"us-east-1"},
			Customer: "acme",
		},
		Completed:    []*entity.ReportRun{completed},
		Failed:       []*entity.ReportRun{failed},
		TotalSavings: 42.50,
		StartedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC),
	}
}

func TestExportToCSV(t *testing.T) {
	dir := t.TempDir()
	repo := NewExportRepository()

	path, err := repo.ExportToCSV(sampleOutcome(), "finops", dir)

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, ".csv"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "Batch ID,b-123")
	assert.Contains(t, content, "Total Estimated Savings,$42.50")
	assert.Contains(t, content, "Report,Account Spend,cost-metrics,live")
	assert.Contains(t, content, "Month,Account,Cost")
	assert.Contains(t, content, "2025-01,111111111111,1042.17")
	assert.Contains(t, content, "Failed Reports")
	assert.Contains(t, content, "SYNTAX_ERROR")
}

func TestExportToCSVMarksCachedRuns(t *testing.T) {
	outcome := sampleOutcome()
	outcome.Completed[0].FromCache = true
	repo := NewExportRepository()

	path, err := repo.ExportToCSV(outcome, "finops", t.TempDir())

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Report,Account Spend,cost-metrics,cache")
}

func TestExportToJSONRoundTrips(t *testing.T) {
	repo := NewExportRepository()

	path, err := repo.ExportToJSON(sampleOutcome(), "finops", t.TempDir())

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded entity.BatchOutcome
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "b-123", decoded.BatchID)
	require.Len(t, decoded.Completed, 1)
	assert.Equal(t, "Account Spend", decoded.Completed[0].Result.Name)
	assert.Len(t, decoded.Completed[0].Result.Table.Rows, 2)
	assert.InDelta(t, 42.50, decoded.TotalSavings, 0.0001)
}

func TestExportToPDFWritesFile(t *testing.T) {
	repo := NewExportRepository()

	path, err := repo.ExportToPDF(sampleOutcome(), "finops", t.TempDir())

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestGenerateFilename(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := generateFilename("finops", dir, "csv")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "finops_"))
	assert.True(t, strings.HasSuffix(path, ".csv"))

	info, statErr := os.Stat(dir)
	require.NoError(t, statErr, "the output directory is created on demand")
	assert.True(t, info.IsDir())
}

func TestTableText(t *testing.T) {
	assert.Equal(t, "No rows.", tableText(entity.ResultTable{Columns: []string{"A"}}))

	rows := make([][]string, maxPDFRows+5)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("r%d", i)}
	}
	text := tableText(entity.ResultTable{Columns: []string{"A"}, Rows: rows})
	assert.Contains(t, text, "... (+5 more rows)")
	assert.Equal(t, maxPDFRows+2, strings.Count(text, "\n"), "header, capped rows and the truncation note")
}

func TestCleanRichTags(t *testing.T) {
	assert.Equal(t, "high", cleanRichTags("[red]high[/red]"))
	assert.Equal(t, "warn", cleanRichTags("\x1b[31mwarn\x1b[0m"))
	assert.Equal(t, "plain", cleanRichTags("plain"))
}

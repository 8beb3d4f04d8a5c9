package usagequery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

func queryScope() entity.RequestScope {
	return entity.RequestScope{
		Accounts:   []string{"111111111111", "222222222222"},
		Regions:    []string{"us-east-1"},
		ExtraInput: map[string]string{entity.ExtraCURTable: "athenacurcfn.cur_report"},
	}
}

func windowTable() entity.ResultTable {
	return entity.ResultTable{
		Columns: []string{"billing_period_start", "billing_period_end"},
		Rows:    [][]string{{"2025-01-01", "2025-02-01"}},
	}
}

func TestCatalogOrder(t *testing.T) {
	catalog := Catalog()

	require.Len(t, catalog, 3)
	assert.Equal(t, ReportBillingWindow, catalog[0].Name(), "the billing window registers before its dependents")
	for _, d := range catalog {
		assert.Equal(t, entity.ProviderUsageQuery, d.Provider())
	}
	assert.Equal(t, []string{ReportBillingWindow}, catalog[1].Dependencies())
	assert.Equal(t, []string{ReportBillingWindow}, catalog[2].Dependencies())
}

func TestBuildRequestRequiresCURTable(t *testing.T) {
	in := entity.BuildInput{
		Scope:      entity.RequestScope{Accounts: []string{"111111111111"}},
		BaseTables: map[string]entity.ResultTable{ReportBillingWindow: windowTable()},
	}

	for _, d := range Catalog() {
		t.Run(d.Name(), func(t *testing.T) {
			_, err := d.BuildRequest(in)
			var configErr *types.ConfigurationError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, "cur_table", configErr.Field)
		})
	}
}

func TestBillingWindowBuildRequest(t *testing.T) {
	req, err := newBillingWindow().BuildRequest(entity.BuildInput{Scope: queryScope()})

	require.NoError(t, err)
	require.NotNil(t, req.Query)
	assert.True(t, req.Async())
	assert.Contains(t, req.Query.SQL, "FROM athenacurcfn.cur_report")
	assert.Contains(t, req.Query.SQL, "'111111111111', '222222222222'")
	assert.NotContains(t, req.Query.SQL, "{table}")
	assert.NotContains(t, req.Query.SQL, "{accounts}")
}

func TestIdleNATGatewaysBuildRequest(t *testing.T) {
	in := entity.BuildInput{
		Scope:      queryScope(),
		BaseTables: map[string]entity.ResultTable{ReportBillingWindow: windowTable()},
	}

	req, err := newIdleNATGateways().BuildRequest(in)

	require.NoError(t, err)
	require.NotNil(t, req.Query)
	assert.Contains(t, req.Query.SQL, "date '2025-01-01'")
	assert.Contains(t, req.Query.SQL, "date '2025-02-01'")
	assert.Contains(t, req.Query.SQL, "NatGateway-Hours")
	assert.Contains(t, req.Query.SQL, "NatGateway-Bytes")
	assert.NotContains(t, req.Query.SQL, "{start}")
	assert.NotContains(t, req.Query.SQL, "{end}")
}

func TestGravitonCandidatesBuildRequest(t *testing.T) {
	in := entity.BuildInput{
		Scope:      queryScope(),
		BaseTables: map[string]entity.ResultTable{ReportBillingWindow: windowTable()},
	}

	req, err := newGravitonCandidates().BuildRequest(in)

	require.NoError(t, err)
	require.NotNil(t, req.Query)
	assert.Contains(t, req.Query.SQL, "* 0.2")
	assert.NotContains(t, req.Query.SQL, "{factor}")
}

func TestBillingWindowDependencyErrors(t *testing.T) {
	tests := map[string]struct {
		base map[string]entity.ResultTable
	}{
		"base table missing": {
			base: map[string]entity.ResultTable{},
		},
		"base table empty": {
			base: map[string]entity.ResultTable{ReportBillingWindow: {
				Columns: []string{"billing_period_start", "billing_period_end"},
			}},
		},
		"base table lacks the bound columns": {
			base: map[string]entity.ResultTable{ReportBillingWindow: {
				Columns: []string{"something_else"},
				Rows:    [][]string{{"x"}},
			}},
		},
		"bounds are blank": {
			base: map[string]entity.ResultTable{ReportBillingWindow: {
				Columns: []string{"billing_period_start", "billing_period_end"},
				Rows:    [][]string{{"", ""}},
			}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := entity.BuildInput{Scope: queryScope(), BaseTables: tt.base}
			_, err := newIdleNATGateways().BuildRequest(in)

			var depErr *types.DependencyError
			require.ErrorAs(t, err, &depErr)
			assert.Equal(t, ReportBillingWindow, depErr.Base)
			assert.Equal(t, "idle-nat-gateways", depErr.Report)
		})
	}
}

func TestIdleNATGatewaysMapRows(t *testing.T) {
	raw := entity.ResultTable{
		Columns: []string{"account_id", "region", "nat_gateway_id", "idle_hours", "estimated_savings"},
		Rows:    [][]string{{"111111111111", "us-east-1", "nat-0abc", "720.0", "32.40"}},
	}

	d := newIdleNATGateways()
	got, err := d.MapRows(raw)

	require.NoError(t, err)
	assert.Equal(t, d.RequiredColumns(), got.Columns)
	assert.Equal(t, []string{"111111111111", "us-east-1", "nat-0abc", "720.0", "32.40"}, got.Rows[0])
	assert.InDelta(t, 32.40, entity.EstimatedSavings(got), 0.0001)
}

func TestGravitonCandidatesMapRows(t *testing.T) {
	raw := entity.ResultTable{
		Columns: []string{"account_id", "instance_type", "instance_count", "on_demand_cost", "estimated_savings"},
		Rows:    [][]string{{"111111111111", "m5.xlarge", "4", "560.00", "112.00"}},
	}

	d := newGravitonCandidates()
	got, err := d.MapRows(raw)

	require.NoError(t, err)
	assert.Equal(t, d.RequiredColumns(), got.Columns)
	assert.Equal(t, "112.00", got.Rows[0][4])
}

func TestQuoteListEscapesQuotes(t *testing.T) {
	assert.Equal(t, "'it''s'", quoteList([]string{"it's"}))
	assert.Equal(t, "'a', 'b'", quoteList([]string{"a", "b"}))
	assert.Empty(t, quoteList(nil))
}

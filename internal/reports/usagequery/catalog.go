// Package usagequery holds the report descriptors served by the
// usage-report SQL backend. Queries run over the Cost & Usage Report
// table; the billing-window report anchors the date range every other
// query filters on.
package usagequery

import (
	"fmt"
	"strings"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// ReportBillingWindow is the base report name dependent queries anchor on.
const ReportBillingWindow = "billing-window"

// Catalog returns the usage-query descriptors in registration order, the
// billing window before its dependents.
func Catalog() []report.Descriptor {
	return []report.Descriptor{
		newBillingWindow(),
		newIdleNATGateways(),
		newGravitonCandidates(),
	}
}

// curTable resolves the qualified CUR table name from the scope.
func curTable(scope entity.RequestScope) (string, error) {
	table := scope.Extra(entity.ExtraCURTable)
	if table == "" {
		return "", &types.ConfigurationError{
			Field:  "cur_table",
			Reason: "usage queries require the qualified CUR table name",
		}
	}
	return table, nil
}

// renderSQL fills the {table}, {accounts}, {start} and {end} placeholders
// of a query template.
func renderSQL(template, table string, scope entity.RequestScope, start, end string) string {
	return strings.NewReplacer(
		"{table}", table,
		"{accounts}", quoteList(scope.Accounts),
		"{start}", start,
		"{end}", end,
	).Replace(template)
}

// quoteList formats values as a quoted SQL IN list.
func quoteList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, "'"+strings.ReplaceAll(v, "'", "''")+"'")
	}
	return strings.Join(quoted, ", ")
}

// billingWindow reads the anchored date range from the base table.
func billingWindow(in entity.BuildInput, dependent string) (string, string, error) {
	base, ok := in.BaseTables[ReportBillingWindow]
	if !ok {
		return "", "", &types.DependencyError{
			Report:  dependent,
			Base:    ReportBillingWindow,
			BaseErr: fmt.Errorf("base table not available"),
		}
	}

	startIdx := base.Index("billing_period_start")
	endIdx := base.Index("billing_period_end")
	if base.Empty() || startIdx < 0 || endIdx < 0 {
		return "", "", &types.DependencyError{
			Report:  dependent,
			Base:    ReportBillingWindow,
			BaseErr: fmt.Errorf("billing window is empty"),
		}
	}

	start := cell(base.Rows[0], startIdx)
	end := cell(base.Rows[0], endIdx)
	if start == "" || end == "" {
		return "", "", &types.DependencyError{
			Report:  dependent,
			Base:    ReportBillingWindow,
			BaseErr: fmt.Errorf("billing window has blank bounds"),
		}
	}
	return start, end, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

const billingWindowSQL = `SELECT date_format(min(bill_billing_period_start_date), '%Y-%m-%d') AS billing_period_start,
       date_format(max(bill_billing_period_end_date), '%Y-%m-%d') AS billing_period_end
FROM {table}
WHERE line_item_usage_account_id IN ({accounts})`

// billingWindowReport resolves the earliest and latest billing period
// bounds present in the CUR table for the scoped accounts.
type billingWindowReport struct{ report.Base }

func newBillingWindow() *billingWindowReport {
	return &billingWindowReport{Base: report.Base{
		ReportName:     ReportBillingWindow,
		ReportTitle:    "Billing Window",
		ReportProvider: entity.ProviderUsageQuery,
		ReportDesc:     "Billing period bounds available in the usage report",
		Columns:        []string{"billing_period_start", "billing_period_end"},
	}}
}

func (d *billingWindowReport) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	table, err := curTable(in.Scope)
	if err != nil {
		return entity.ReportRequest{}, err
	}
	return entity.ReportRequest{Query: &entity.QueryRequest{
		SQL: renderSQL(billingWindowSQL, table, in.Scope, "", ""),
	}}, nil
}

const idleNATGatewaysSQL = `SELECT line_item_usage_account_id AS account_id,
       product_region AS region,
       line_item_resource_id AS nat_gateway_id,
       round(sum(line_item_usage_amount), 1) AS idle_hours,
       round(sum(line_item_unblended_cost), 2) AS estimated_savings
FROM {table}
WHERE line_item_product_code = 'AmazonEC2'
  AND line_item_usage_type LIKE '%NatGateway-Hours%'
  AND line_item_usage_start_date >= date '{start}'
  AND line_item_usage_start_date < date '{end}'
  AND line_item_usage_account_id IN ({accounts})
  AND line_item_resource_id NOT IN (
      SELECT DISTINCT line_item_resource_id
      FROM {table}
      WHERE line_item_usage_type LIKE '%NatGateway-Bytes%'
        AND line_item_usage_amount > 0
        AND line_item_usage_start_date >= date '{start}'
        AND line_item_usage_start_date < date '{end}'
  )
GROUP BY 1, 2, 3
ORDER BY estimated_savings DESC`

// idleNATGateways finds NAT gateways billed for hours without processing
// any bytes inside the billing window.
type idleNATGateways struct{ report.Base }

func newIdleNATGateways() *idleNATGateways {
	return &idleNATGateways{Base: report.Base{
		ReportName:     "idle-nat-gateways",
		ReportTitle:    "Idle NAT Gateways",
		ReportProvider: entity.ProviderUsageQuery,
		ReportDesc:     "NAT gateways billed for hours with zero processed bytes",
		Columns:        []string{"Account", "Region", "NAT Gateway", "Idle Hours", entity.SavingsColumn},
		DependsOn:      []string{ReportBillingWindow},
		ChartHint:      entity.ChartPivot,
		ShowSavings:    true,
	}}
}

func (d *idleNATGateways) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	table, err := curTable(in.Scope)
	if err != nil {
		return entity.ReportRequest{}, err
	}
	start, end, err := billingWindow(in, d.ReportName)
	if err != nil {
		return entity.ReportRequest{}, err
	}
	return entity.ReportRequest{Query: &entity.QueryRequest{
		SQL: renderSQL(idleNATGatewaysSQL, table, in.Scope, start, end),
	}}, nil
}

func (d *idleNATGateways) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	mapped := raw.
		Rename("account_id", "Account").
		Rename("region", "Region").
		Rename("nat_gateway_id", "NAT Gateway").
		Rename("idle_hours", "Idle Hours").
		Rename("estimated_savings", entity.SavingsColumn)
	return mapped.Normalize(d.Columns), nil
}

// Conversion to Graviton usually cuts around 20% of the per-hour price
// for the same workload.
const gravitonSavingsFactor = "0.2"

const gravitonCandidatesSQL = `SELECT line_item_usage_account_id AS account_id,
       product_instance_type AS instance_type,
       count(DISTINCT line_item_resource_id) AS instance_count,
       round(sum(line_item_unblended_cost), 2) AS on_demand_cost,
       round(sum(line_item_unblended_cost) * {factor}, 2) AS estimated_savings
FROM {table}
WHERE line_item_product_code = 'AmazonEC2'
  AND line_item_line_item_type = 'Usage'
  AND line_item_usage_type LIKE '%BoxUsage%'
  AND product_physical_processor LIKE '%Intel%'
  AND product_operating_system = 'Linux'
  AND line_item_usage_start_date >= date '{start}'
  AND line_item_usage_start_date < date '{end}'
  AND line_item_usage_account_id IN ({accounts})
GROUP BY 1, 2
ORDER BY estimated_savings DESC`

// gravitonCandidates lists x86 Linux instance usage that could move to
// the equivalent Graviton instance family.
type gravitonCandidates struct{ report.Base }

func newGravitonCandidates() *gravitonCandidates {
	return &gravitonCandidates{Base: report.Base{
		ReportName:     "graviton-candidates",
		ReportTitle:    "Graviton Candidates",
		ReportProvider: entity.ProviderUsageQuery,
		ReportDesc:     "x86 Linux instance usage convertible to Graviton",
		Columns:        []string{"Account", "Instance Type", "Instances", "On-Demand Cost", entity.SavingsColumn},
		DependsOn:      []string{ReportBillingWindow},
		ShowSavings:    true,
	}}
}

func (d *gravitonCandidates) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	table, err := curTable(in.Scope)
	if err != nil {
		return entity.ReportRequest{}, err
	}
	start, end, err := billingWindow(in, d.ReportName)
	if err != nil {
		return entity.ReportRequest{}, err
	}
	sql := strings.ReplaceAll(gravitonCandidatesSQL, "{factor}", gravitonSavingsFactor)
	return entity.ReportRequest{Query: &entity.QueryRequest{
		SQL: renderSQL(sql, table, in.Scope, start, end),
	}}, nil
}

func (d *gravitonCandidates) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	mapped := raw.
		Rename("account_id", "Account").
		Rename("instance_type", "Instance Type").
		Rename("instance_count", "Instances").
		Rename("on_demand_cost", "On-Demand Cost").
		Rename("estimated_savings", entity.SavingsColumn)
	return mapped.Normalize(d.Columns), nil
}

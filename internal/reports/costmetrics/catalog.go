// Package costmetrics holds the report descriptors served by the direct
// cost-metrics backend (Cost Explorer and Budgets).
package costmetrics

import (
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
)

const defaultLookbackMonths = 3

// Catalog returns the cost-metrics descriptors in registration order.
func Catalog() []report.Descriptor {
	return []report.Descriptor{
		newAccountSpend(),
		newRIUtilization(),
		newRIPurchase(),
		newBudgetStatus(),
	}
}

func lookback(scope entity.RequestScope) int {
	return scope.ExtraInt(entity.ExtraLookbackMonths, defaultLookbackMonths)
}

// accountSpend reports monthly unblended cost per linked account.
type accountSpend struct{ report.Base }

func newAccountSpend() *accountSpend {
	return &accountSpend{Base: report.Base{
		ReportName:     "account-spend",
		ReportTitle:    "Account Spend",
		ReportProvider: entity.ProviderCostMetrics,
		ReportDesc:     "Monthly unblended cost per linked account",
		Columns:        []string{"Month", "Account", "Cost"},
		ChartHint:      entity.ChartBar,
	}}
}

func (d *accountSpend) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return entity.ReportRequest{Metrics: &entity.MetricsRequest{
		Kind:           entity.MetricsCostAndUsage,
		Accounts:       in.Scope.Accounts,
		Metrics:        []string{"UnblendedCost"},
		GroupBy:        "LINKED_ACCOUNT",
		LookbackMonths: lookback(in.Scope),
	}}, nil
}

func (d *accountSpend) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	return raw.Rename("Group", "Account").Rename("Amount", "Cost").Normalize(d.Columns), nil
}

// riUtilization reports reservation utilization per period, with the
// unused-capacity savings the reservations could still deliver.
type riUtilization struct{ report.Base }

func newRIUtilization() *riUtilization {
	return &riUtilization{Base: report.Base{
		ReportName:     "ri-utilization",
		ReportTitle:    "RI Utilization",
		ReportProvider: entity.ProviderCostMetrics,
		ReportDesc:     "Reservation utilization and potential savings per period",
		Columns:        []string{"Period Start", "Period End", "Utilization %", "Purchased Hours", "Unused Hours", entity.SavingsColumn},
		ShowSavings:    true,
	}}
}

func (d *riUtilization) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return entity.ReportRequest{Metrics: &entity.MetricsRequest{
		Kind:           entity.MetricsReservationUtilization,
		Accounts:       in.Scope.Accounts,
		LookbackMonths: lookback(in.Scope),
	}}, nil
}

func (d *riUtilization) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	return raw.Rename("Potential Savings", entity.SavingsColumn).Normalize(d.Columns), nil
}

// riPurchase reports reservation purchase recommendations and the
// monthly savings each would produce.
type riPurchase struct{ report.Base }

func newRIPurchase() *riPurchase {
	return &riPurchase{Base: report.Base{
		ReportName:     "ri-purchase-recommendation",
		ReportTitle:    "RI Purchase Recommendations",
		ReportProvider: entity.ProviderCostMetrics,
		ReportDesc:     "Reservation purchase recommendations with estimated monthly savings",
		Columns:        []string{"Instance Type", "Region", "Recommended Count", "Upfront Cost", "Monthly On-Demand Cost", entity.SavingsColumn},
		ShowSavings:    true,
	}}
}

func (d *riPurchase) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return entity.ReportRequest{Metrics: &entity.MetricsRequest{
		Kind:     entity.MetricsReservationPurchase,
		Accounts: in.Scope.Accounts,
	}}, nil
}

func (d *riPurchase) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	return raw.Rename("Estimated Monthly Savings", entity.SavingsColumn).Normalize(d.Columns), nil
}

// budgetStatus reports each account budget against its actual and
// forecasted spend.
type budgetStatus struct{ report.Base }

func newBudgetStatus() *budgetStatus {
	return &budgetStatus{Base: report.Base{
		ReportName:     "budget-status",
		ReportTitle:    "Budget Status",
		ReportProvider: entity.ProviderCostMetrics,
		ReportDesc:     "Account budgets with actual and forecasted spend",
		Columns:        []string{"Account", "Budget", "Limit", "Actual Spend", "Forecasted Spend", "Unit", "Exceeded"},
	}}
}

func (d *budgetStatus) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return entity.ReportRequest{Metrics: &entity.MetricsRequest{
		Kind:     entity.MetricsBudgetStatus,
		Accounts: in.Scope.Accounts,
	}}, nil
}

package aws

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/sirupsen/logrus"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// CostMetricsBackend serve o provedor de métricas de custo diretas:
// Cost Explorer e Budgets, ambos com chamadas síncronas paginadas.
type CostMetricsBackend struct {
	clients *ClientFactory
	log     logrus.FieldLogger
}

// NewCostMetricsBackend cria o backend de métricas de custo.
func NewCostMetricsBackend(clients *ClientFactory, log logrus.FieldLogger) repository.Backend {
	return &CostMetricsBackend{
		clients: clients,
		log:     log.WithField("provider", entity.ProviderCostMetrics),
	}
}

func (b *CostMetricsBackend) ID() entity.ProviderID { return entity.ProviderCostMetrics }

// Preflight é trivial: as APIs de métricas de custo não exigem
// habilitação prévia.
func (b *CostMetricsBackend) Preflight(ctx context.Context) error { return nil }

// Fetch executa a operação indicada pelo request e devolve a tabela bruta.
func (b *CostMetricsBackend) Fetch(ctx context.Context, req entity.ReportRequest) (entity.ResultTable, error) {
	if req.Metrics == nil {
		return entity.ResultTable{}, fmt.Errorf("cost-metrics backend received a non-metrics request")
	}

	b.log.WithField("kind", req.Metrics.Kind).Debug("fetching cost metrics")

	switch req.Metrics.Kind {
	case entity.MetricsCostAndUsage:
		return b.costAndUsage(ctx, req.Metrics)
	case entity.MetricsReservationUtilization:
		return b.reservationUtilization(ctx, req.Metrics)
	case entity.MetricsReservationPurchase:
		return b.reservationPurchase(ctx, req.Metrics)
	case entity.MetricsBudgetStatus:
		return b.budgetStatus(ctx, req.Metrics)
	default:
		return entity.ResultTable{}, fmt.Errorf("unsupported metrics kind: %s", req.Metrics.Kind)
	}
}

// lookbackWindow devolve a janela [início, fim) em meses completos,
// incluindo o mês corrente parcial.
func lookbackWindow(months int) (string, string) {
	if months <= 0 {
		months = 3
	}
	now := time.Now()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	start := end.AddDate(0, -months, 0)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}

func (b *CostMetricsBackend) costAndUsage(ctx context.Context, req *entity.MetricsRequest) (entity.ResultTable, error) {
	client, err := b.clients.CostExplorer(ctx)
	if err != nil {
		return entity.ResultTable{}, err
	}

	start, end := lookbackWindow(req.LookbackMonths)
	metrics := req.Metrics
	if len(metrics) == 0 {
		metrics = []string{"UnblendedCost"}
	}
	groupBy := req.GroupBy
	if groupBy == "" {
		groupBy = "LINKED_ACCOUNT"
	}

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod:  &ceTypes.DateInterval{Start: aws.String(start), End: aws.String(end)},
		Granularity: ceTypes.GranularityMonthly,
		Metrics:     metrics,
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String(groupBy)},
		},
	}
	if len(req.Accounts) > 0 {
		input.Filter = &ceTypes.Expression{
			Dimensions: &ceTypes.DimensionValues{
				Key:    ceTypes.DimensionLinkedAccount,
				Values: req.Accounts,
			},
		}
	}

	table := entity.ResultTable{
		Columns: []string{"Month", "Group", "Amount"},
		Rows:    [][]string{},
	}
	for {
		resp, err := client.GetCostAndUsage(ctx, input)
		if err != nil {
			return entity.ResultTable{}, fmt.Errorf("error getting cost and usage: %w", err)
		}
		for _, byTime := range resp.ResultsByTime {
			month := aws.ToString(byTime.TimePeriod.Start)
			for _, group := range byTime.Groups {
				key := ""
				if len(group.Keys) > 0 {
					key = group.Keys[0]
				}
				amount := ""
				if mv, ok := group.Metrics[metrics[0]]; ok {
					amount = aws.ToString(mv.Amount)
				}
				table.Rows = append(table.Rows, []string{month, key, amount})
			}
		}
		if resp.NextPageToken == nil {
			break
		}
		input.NextPageToken = resp.NextPageToken
	}
	return table, nil
}

func (b *CostMetricsBackend) reservationUtilization(ctx context.Context, req *entity.MetricsRequest) (entity.ResultTable, error) {
	client, err := b.clients.CostExplorer(ctx)
	if err != nil {
		return entity.ResultTable{}, err
	}

	start, end := lookbackWindow(req.LookbackMonths)
	input := &costexplorer.GetReservationUtilizationInput{
		TimePeriod:  &ceTypes.DateInterval{Start: aws.String(start), End: aws.String(end)},
		Granularity: ceTypes.GranularityMonthly,
	}

	table := entity.ResultTable{
		Columns: []string{"Period Start", "Period End", "Utilization %", "Purchased Hours", "Unused Hours", "Potential Savings"},
		Rows:    [][]string{},
	}
	for {
		resp, err := client.GetReservationUtilization(ctx, input)
		if err != nil {
			return entity.ResultTable{}, fmt.Errorf("error getting reservation utilization: %w", err)
		}
		for _, byTime := range resp.UtilizationsByTime {
			if byTime.Total == nil {
				continue
			}
			table.Rows = append(table.Rows, []string{
				aws.ToString(byTime.TimePeriod.Start),
				aws.ToString(byTime.TimePeriod.End),
				aws.ToString(byTime.Total.UtilizationPercentage),
				aws.ToString(byTime.Total.PurchasedHours),
				aws.ToString(byTime.Total.UnusedHours),
				aws.ToString(byTime.Total.TotalPotentialRISavings),
			})
		}
		if resp.NextPageToken == nil {
			break
		}
		input.NextPageToken = resp.NextPageToken
	}
	return table, nil
}

func (b *CostMetricsBackend) reservationPurchase(ctx context.Context, req *entity.MetricsRequest) (entity.ResultTable, error) {
	client, err := b.clients.CostExplorer(ctx)
	if err != nil {
		return entity.ResultTable{}, err
	}

	service := req.Service
	if service == "" {
		service = "Amazon Elastic Compute Cloud - Compute"
	}
	input := &costexplorer.GetReservationPurchaseRecommendationInput{
		Service:              aws.String(service),
		LookbackPeriodInDays: ceTypes.LookbackPeriodInDaysSixtyDays,
		TermInYears:          ceTypes.TermInYearsOneYear,
		PaymentOption:        ceTypes.PaymentOptionNoUpfront,
	}

	table := entity.ResultTable{
		Columns: []string{"Instance Type", "Region", "Recommended Count", "Upfront Cost", "Monthly On-Demand Cost", "Estimated Monthly Savings"},
		Rows:    [][]string{},
	}
	for {
		resp, err := client.GetReservationPurchaseRecommendation(ctx, input)
		if err != nil {
			return entity.ResultTable{}, fmt.Errorf("error getting reservation purchase recommendation: %w", err)
		}
		for _, rec := range resp.Recommendations {
			for _, detail := range rec.RecommendationDetails {
				instanceType, region := "", ""
				if detail.InstanceDetails != nil && detail.InstanceDetails.EC2InstanceDetails != nil {
					instanceType = aws.ToString(detail.InstanceDetails.EC2InstanceDetails.InstanceType)
					region = aws.ToString(detail.InstanceDetails.EC2InstanceDetails.Region)
				}
				table.Rows = append(table.Rows, []string{
					instanceType,
					region,
					aws.ToString(detail.RecommendedNumberOfInstancesToPurchase),
					aws.ToString(detail.UpfrontCost),
					aws.ToString(detail.RecurringStandardMonthlyCost),
					aws.ToString(detail.EstimatedMonthlySavingsAmount),
				})
			}
		}
		if resp.NextPageToken == nil {
			break
		}
		input.NextPageToken = resp.NextPageToken
	}
	return table, nil
}

func (b *CostMetricsBackend) budgetStatus(ctx context.Context, req *entity.MetricsRequest) (entity.ResultTable, error) {
	if len(req.Accounts) == 0 {
		return entity.ResultTable{}, &types.ConfigurationError{Field: "accounts", Reason: "budget status requires at least one account id"}
	}

	client, err := b.clients.Budgets(ctx)
	if err != nil {
		return entity.ResultTable{}, err
	}

	table := entity.ResultTable{
		Columns: []string{"Account", "Budget", "Limit", "Actual Spend", "Forecasted Spend", "Unit", "Exceeded"},
		Rows:    [][]string{},
	}
	for _, account := range req.Accounts {
		input := &budgets.DescribeBudgetsInput{
			AccountId:  aws.String(account),
			MaxResults: aws.Int32(100),
		}
		for {
			resp, err := client.DescribeBudgets(ctx, input)
			if err != nil {
				return entity.ResultTable{}, fmt.Errorf("error describing budgets for account %s: %w", account, err)
			}
			for _, budget := range resp.Budgets {
				limit, unit := "", ""
				if budget.BudgetLimit != nil {
					limit = aws.ToString(budget.BudgetLimit.Amount)
					unit = aws.ToString(budget.BudgetLimit.Unit)
				}
				actual, forecast := "", ""
				if budget.CalculatedSpend != nil {
					if budget.CalculatedSpend.ActualSpend != nil {
						actual = aws.ToString(budget.CalculatedSpend.ActualSpend.Amount)
					}
					if budget.CalculatedSpend.ForecastedSpend != nil {
						forecast = aws.ToString(budget.CalculatedSpend.ForecastedSpend.Amount)
					}
				}
				exceeded := "no"
				limitVal, errLimit := strconv.ParseFloat(limit, 64)
				actualVal, errActual := strconv.ParseFloat(actual, 64)
				if errLimit == nil && errActual == nil && actualVal > limitVal {
					exceeded = "yes"
				}
				table.Rows = append(table.Rows, []string{
					account,
					aws.ToString(budget.BudgetName),
					limit,
					actual,
					forecast,
					unit,
					exceeded,
				})
			}
			if resp.NextToken == nil {
				break
			}
			input.NextToken = resp.NextToken
		}
	}
	return table, nil
}

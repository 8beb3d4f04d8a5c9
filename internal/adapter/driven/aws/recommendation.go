package aws

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/computeoptimizer"
	coTypes "github.com/aws/aws-sdk-go-v2/service/computeoptimizer/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/sirupsen/logrus"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// RecommendationBackend serve o provedor de recomendações do Compute
// Optimizer, enriquecendo cada recurso com detalhes das APIs do próprio
// serviço (EC2, Lambda, RDS).
type RecommendationBackend struct {
	clients       *ClientFactory
	defaultRegion string
	log           logrus.FieldLogger
}

// NewRecommendationBackend cria o backend de recomendações.
func NewRecommendationBackend(clients *ClientFactory, defaultRegion string, log logrus.FieldLogger) repository.Backend {
	return &RecommendationBackend{
		clients:       clients,
		defaultRegion: defaultRegion,
		log:           log.WithField("provider", entity.ProviderRecommendation),
	}
}

func (b *RecommendationBackend) ID() entity.ProviderID { return entity.ProviderRecommendation }

// Preflight verifica se a conta está inscrita no Compute Optimizer.
func (b *RecommendationBackend) Preflight(ctx context.Context) error {
	client, err := b.clients.ComputeOptimizer(ctx, b.defaultRegion)
	if err != nil {
		return err
	}

	resp, err := client.GetEnrollmentStatus(ctx, &computeoptimizer.GetEnrollmentStatusInput{})
	if err != nil {
		return &types.BackendRequestError{
			Provider: string(entity.ProviderRecommendation),
			Reason:   "unable to read compute optimizer enrollment status",
			Err:      err,
		}
	}
	if resp.Status != coTypes.StatusActive {
		return &types.BackendRequestError{
			Provider: string(entity.ProviderRecommendation),
			Reason:   fmt.Sprintf("compute optimizer enrollment status is %s; enrollment must be Active", resp.Status),
		}
	}
	return nil
}

// Fetch coleta as recomendações do tipo de recurso pedido em todas as
// regiões do request.
func (b *RecommendationBackend) Fetch(ctx context.Context, req entity.ReportRequest) (entity.ResultTable, error) {
	if req.Recommendation == nil {
		return entity.ResultTable{}, fmt.Errorf("recommendation backend received a non-recommendation request")
	}

	regions := req.Recommendation.Regions
	if len(regions) == 0 {
		regions = []string{b.defaultRegion}
	}

	switch req.Recommendation.ResourceType {
	case entity.ResourceEC2Instance:
		return b.ec2Recommendations(ctx, req.Recommendation.Accounts, regions)
	case entity.ResourceLambdaFunction:
		return b.lambdaRecommendations(ctx, req.Recommendation.Accounts, regions)
	case entity.ResourceRDSDatabase:
		return b.rdsRecommendations(ctx, req.Recommendation.Accounts, regions)
	default:
		return entity.ResultTable{}, fmt.Errorf("unsupported recommendation resource type: %s", req.Recommendation.ResourceType)
	}
}

func (b *RecommendationBackend) ec2Recommendations(ctx context.Context, accounts, regions []string) (entity.ResultTable, error) {
	table := entity.ResultTable{
		Columns: []string{"Region", "Instance ID", "Instance Name", "Current Type", "Platform", "Finding", "Recommended Type", "Migration Effort", "Estimated Monthly Savings"},
		Rows:    [][]string{},
	}

	for _, region := range regions {
		client, err := b.clients.ComputeOptimizer(ctx, region)
		if err != nil {
			return entity.ResultTable{}, err
		}

		var recommendations []coTypes.InstanceRecommendation
		input := &computeoptimizer.GetEC2InstanceRecommendationsInput{
			AccountIds: accounts,
			MaxResults: aws.Int32(100),
		}
		for {
			resp, err := client.GetEC2InstanceRecommendations(ctx, input)
			if err != nil {
				return entity.ResultTable{}, fmt.Errorf("error getting ec2 recommendations in %s: %w", region, err)
			}
			recommendations = append(recommendations, resp.InstanceRecommendations...)
			if resp.NextToken == nil || aws.ToString(resp.NextToken) == "" {
				break
			}
			input.NextToken = resp.NextToken
		}
		if len(recommendations) == 0 {
			continue
		}

		platforms := b.instancePlatforms(ctx, region, recommendations)
		for _, rec := range recommendations {
			instanceID := resourceFromArn(aws.ToString(rec.InstanceArn), "/")
			recommendedType, effort, savings := topInstanceOption(rec.RecommendationOptions)
			platform, ok := platforms[instanceID]
			if !ok {
				platform = "-"
			}
			table.Rows = append(table.Rows, []string{
				region,
				instanceID,
				aws.ToString(rec.InstanceName),
				aws.ToString(rec.CurrentInstanceType),
				platform,
				string(rec.Finding),
				recommendedType,
				effort,
				savings,
			})
		}
	}
	return table, nil
}

// instancePlatforms busca o detalhe de plataforma das instâncias via
// EC2. Falhas aqui não derrubam o relatório, apenas deixam a coluna
// sem valor.
func (b *RecommendationBackend) instancePlatforms(ctx context.Context, region string, recommendations []coTypes.InstanceRecommendation) map[string]string {
	platforms := make(map[string]string, len(recommendations))

	client, err := b.clients.EC2(ctx, region)
	if err != nil {
		b.log.WithError(err).Warn("skipping ec2 platform enrichment")
		return platforms
	}

	ids := make([]string, 0, len(recommendations))
	for _, rec := range recommendations {
		if id := resourceFromArn(aws.ToString(rec.InstanceArn), "/"); id != "" {
			ids = append(ids, id)
		}
	}

	for start := 0; start < len(ids); start += 100 {
		end := start + 100
		if end > len(ids) {
			end = len(ids)
		}
		paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{
			InstanceIds: ids[start:end],
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				b.log.WithError(err).Warn("skipping ec2 platform enrichment")
				return platforms
			}
			for _, reservation := range page.Reservations {
				for _, instance := range reservation.Instances {
					platforms[aws.ToString(instance.InstanceId)] = aws.ToString(instance.PlatformDetails)
				}
			}
		}
	}
	return platforms
}

func (b *RecommendationBackend) lambdaRecommendations(ctx context.Context, accounts, regions []string) (entity.ResultTable, error) {
	table := entity.ResultTable{
		Columns: []string{"Region", "Function Name", "Runtime", "Current Memory (MB)", "Finding", "Recommended Memory (MB)", "Estimated Monthly Savings"},
		Rows:    [][]string{},
	}

	for _, region := range regions {
		client, err := b.clients.ComputeOptimizer(ctx, region)
		if err != nil {
			return entity.ResultTable{}, err
		}

		var recommendations []coTypes.LambdaFunctionRecommendation
		input := &computeoptimizer.GetLambdaFunctionRecommendationsInput{
			AccountIds: accounts,
			MaxResults: aws.Int32(100),
		}
		for {
			resp, err := client.GetLambdaFunctionRecommendations(ctx, input)
			if err != nil {
				return entity.ResultTable{}, fmt.Errorf("error getting lambda recommendations in %s: %w", region, err)
			}
			recommendations = append(recommendations, resp.LambdaFunctionRecommendations...)
			if resp.NextToken == nil || aws.ToString(resp.NextToken) == "" {
				break
			}
			input.NextToken = resp.NextToken
		}
		if len(recommendations) == 0 {
			continue
		}

		runtimes := b.functionRuntimes(ctx, region)
		for _, rec := range recommendations {
			arn := unqualifiedFunctionArn(aws.ToString(rec.FunctionArn))
			memory, savings := topMemoryOption(rec.MemorySizeRecommendationOptions)
			runtime, ok := runtimes[arn]
			if !ok {
				runtime = "-"
			}
			table.Rows = append(table.Rows, []string{
				region,
				functionNameFromArn(arn),
				runtime,
				strconv.FormatInt(int64(rec.CurrentMemorySize), 10),
				string(rec.Finding),
				memory,
				savings,
			})
		}
	}
	return table, nil
}

// functionRuntimes lista as funções da região e indexa o runtime pelo
// ARN não qualificado.
func (b *RecommendationBackend) functionRuntimes(ctx context.Context, region string) map[string]string {
	runtimes := make(map[string]string)

	client, err := b.clients.Lambda(ctx, region)
	if err != nil {
		b.log.WithError(err).Warn("skipping lambda runtime enrichment")
		return runtimes
	}

	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			b.log.WithError(err).Warn("skipping lambda runtime enrichment")
			return runtimes
		}
		for _, fn := range page.Functions {
			runtimes[unqualifiedFunctionArn(aws.ToString(fn.FunctionArn))] = string(fn.Runtime)
		}
	}
	return runtimes
}

func (b *RecommendationBackend) rdsRecommendations(ctx context.Context, accounts, regions []string) (entity.ResultTable, error) {
	table := entity.ResultTable{
		Columns: []string{"Region", "Database", "Engine", "Status", "Current Class", "Finding", "Recommended Class", "Estimated Monthly Savings"},
		Rows:    [][]string{},
	}

	for _, region := range regions {
		client, err := b.clients.ComputeOptimizer(ctx, region)
		if err != nil {
			return entity.ResultTable{}, err
		}

		var recommendations []coTypes.RDSDBRecommendation
		input := &computeoptimizer.GetRDSDatabaseRecommendationsInput{
			AccountIds: accounts,
			MaxResults: aws.Int32(100),
		}
		for {
			resp, err := client.GetRDSDatabaseRecommendations(ctx, input)
			if err != nil {
				return entity.ResultTable{}, fmt.Errorf("error getting rds recommendations in %s: %w", region, err)
			}
			recommendations = append(recommendations, resp.RdsDBRecommendations...)
			if resp.NextToken == nil || aws.ToString(resp.NextToken) == "" {
				break
			}
			input.NextToken = resp.NextToken
		}
		if len(recommendations) == 0 {
			continue
		}

		statuses := b.databaseStatuses(ctx, region)
		for _, rec := range recommendations {
			arn := aws.ToString(rec.ResourceArn)
			class, savings := topRDSOption(rec.InstanceRecommendationOptions)
			status, ok := statuses[arn]
			if !ok {
				status = "-"
			}
			table.Rows = append(table.Rows, []string{
				region,
				resourceFromArn(arn, ":"),
				aws.ToString(rec.Engine),
				status,
				aws.ToString(rec.CurrentDBInstanceClass),
				string(rec.InstanceFinding),
				class,
				savings,
			})
		}
	}
	return table, nil
}

// databaseStatuses lista as instâncias RDS da região e indexa o status
// pelo ARN.
func (b *RecommendationBackend) databaseStatuses(ctx context.Context, region string) map[string]string {
	statuses := make(map[string]string)

	client, err := b.clients.RDS(ctx, region)
	if err != nil {
		b.log.WithError(err).Warn("skipping rds status enrichment")
		return statuses
	}

	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			b.log.WithError(err).Warn("skipping rds status enrichment")
			return statuses
		}
		for _, instance := range page.DBInstances {
			statuses[aws.ToString(instance.DBInstanceArn)] = aws.ToString(instance.DBInstanceStatus)
		}
	}
	return statuses
}

// topInstanceOption escolhe a opção de menor rank e devolve tipo,
// esforço de migração e economia mensal formatada.
func topInstanceOption(options []coTypes.InstanceRecommendationOption) (string, string, string) {
	if len(options) == 0 {
		return "-", "-", "0.00"
	}
	best := options[0]
	for _, option := range options[1:] {
		if option.Rank < best.Rank {
			best = option
		}
	}
	return aws.ToString(best.InstanceType), string(best.MigrationEffort), formatSavings(best.SavingsOpportunity)
}

// topMemoryOption escolhe a opção de memória de menor rank.
func topMemoryOption(options []coTypes.LambdaFunctionMemoryRecommendationOption) (string, string) {
	if len(options) == 0 {
		return "-", "0.00"
	}
	best := options[0]
	for _, option := range options[1:] {
		if option.Rank < best.Rank {
			best = option
		}
	}
	return strconv.FormatInt(int64(best.MemorySize), 10), formatSavings(best.SavingsOpportunity)
}

// topRDSOption escolhe a classe de instância de menor rank.
func topRDSOption(options []coTypes.RDSDBInstanceRecommendationOption) (string, string) {
	if len(options) == 0 {
		return "-", "0.00"
	}
	best := options[0]
	for _, option := range options[1:] {
		if option.Rank < best.Rank {
			best = option
		}
	}
	return aws.ToString(best.DbInstanceClass), formatSavings(best.SavingsOpportunity)
}

// formatSavings extrai o valor mensal estimado com duas casas decimais.
func formatSavings(opportunity *coTypes.SavingsOpportunity) string {
	if opportunity == nil || opportunity.EstimatedMonthlySavings == nil {
		return "0.00"
	}
	return strconv.FormatFloat(opportunity.EstimatedMonthlySavings.Value, 'f', 2, 64)
}

// resourceFromArn devolve o último segmento do ARN usando o separador
// informado.
func resourceFromArn(arn, sep string) string {
	if arn == "" {
		return ""
	}
	parts := strings.Split(arn, sep)
	return parts[len(parts)-1]
}

// unqualifiedFunctionArn remove o qualificador de versão de um ARN de
// função Lambda.
func unqualifiedFunctionArn(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) > 7 {
		return strings.Join(parts[:7], ":")
	}
	return arn
}

// functionNameFromArn extrai o nome da função de um ARN Lambda.
func functionNameFromArn(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) >= 7 {
		return parts[6]
	}
	return arn
}

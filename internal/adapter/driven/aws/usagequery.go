package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenaTypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// UsageQueryBackend serve o provedor de consultas SQL sobre o relatório
// de uso (CUR) via Athena. É o único backend assíncrono: submete a
// consulta, acompanha o estado e busca os resultados ao final.
type UsageQueryBackend struct {
	clients       *ClientFactory
	database      string
	table         string
	region        string
	resultsBucket string
	log           logrus.FieldLogger
}

// NewUsageQueryBackend cria o backend Athena apontando para o banco e a
// tabela do CUR configurados.
func NewUsageQueryBackend(clients *ClientFactory, database, table, region, resultsBucket string, log logrus.FieldLogger) repository.AsyncBackend {
	return &UsageQueryBackend{
		clients:       clients,
		database:      database,
		table:         table,
		region:        region,
		resultsBucket: resultsBucket,
		log:           log.WithField("provider", entity.ProviderUsageQuery),
	}
}

func (b *UsageQueryBackend) ID() entity.ProviderID { return entity.ProviderUsageQuery }

// Preflight valida a configuração do CUR e o acesso ao bucket de
// resultados antes de qualquer submissão.
func (b *UsageQueryBackend) Preflight(ctx context.Context) error {
	if b.database == "" {
		return &types.ConfigurationError{Field: "cur_database", Reason: "usage queries require the CUR database name"}
	}
	if b.table == "" {
		return &types.ConfigurationError{Field: "cur_table", Reason: "usage queries require the CUR table name"}
	}
	if b.resultsBucket == "" {
		return &types.ConfigurationError{Field: "cur_results_bucket", Reason: "usage queries require an S3 bucket for query results"}
	}

	client, err := b.clients.S3(ctx, b.region)
	if err != nil {
		return err
	}
	bucket := bucketName(b.resultsBucket)
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return &types.BackendRequestError{
			Provider: string(entity.ProviderUsageQuery),
			Reason:   fmt.Sprintf("results bucket %s is not accessible", bucket),
			Err:      err,
		}
	}
	return nil
}

// Fetch não se aplica: todo trabalho deste backend passa pelo ciclo
// Submit/Poll/Results.
func (b *UsageQueryBackend) Fetch(ctx context.Context, req entity.ReportRequest) (entity.ResultTable, error) {
	return entity.ResultTable{}, fmt.Errorf("usage-query backend is asynchronous; use Submit instead of Fetch")
}

// Submit envia a consulta ao Athena e devolve o id de execução.
func (b *UsageQueryBackend) Submit(ctx context.Context, req entity.ReportRequest) (string, error) {
	if req.Query == nil {
		return "", fmt.Errorf("usage-query backend received a non-query request")
	}

	client, err := b.clients.Athena(ctx, b.region)
	if err != nil {
		return "", err
	}

	database := req.Query.Database
	if database == "" {
		database = b.database
	}

	resp, err := client.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(req.Query.SQL),
		QueryExecutionContext: &athenaTypes.QueryExecutionContext{
			Database: aws.String(database),
		},
		ResultConfiguration: &athenaTypes.ResultConfiguration{
			OutputLocation: aws.String(outputLocation(b.resultsBucket)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("error starting query execution: %w", err)
	}

	queryID := aws.ToString(resp.QueryExecutionId)
	b.log.WithField("query_id", queryID).Debug("query submitted")
	return queryID, nil
}

// Poll consulta o estado atual da execução. QUEUED e RUNNING são
// estados não terminais e mapeiam para POLLING.
func (b *UsageQueryBackend) Poll(ctx context.Context, queryID string) (entity.ExecutionState, string, error) {
	client, err := b.clients.Athena(ctx, b.region)
	if err != nil {
		return entity.StateFailed, "", err
	}

	resp, err := client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
		QueryExecutionId: aws.String(queryID),
	})
	if err != nil {
		return entity.StateFailed, "", fmt.Errorf("error getting query execution: %w", err)
	}
	if resp.QueryExecution == nil || resp.QueryExecution.Status == nil {
		return entity.StateFailed, "", fmt.Errorf("query execution %s returned no status", queryID)
	}

	status := resp.QueryExecution.Status
	reason := aws.ToString(status.StateChangeReason)
	switch status.State {
	case athenaTypes.QueryExecutionStateQueued, athenaTypes.QueryExecutionStateRunning:
		return entity.StatePolling, reason, nil
	case athenaTypes.QueryExecutionStateSucceeded:
		return entity.StateSucceeded, reason, nil
	case athenaTypes.QueryExecutionStateCancelled:
		return entity.StateCancelled, reason, nil
	case athenaTypes.QueryExecutionStateFailed:
		return entity.StateFailed, reason, nil
	default:
		return entity.StateFailed, reason, fmt.Errorf("unknown query execution state: %s", status.State)
	}
}

// Results busca todas as páginas de resultado da consulta. A primeira
// linha da primeira página é o cabeçalho repetido e é descartada.
func (b *UsageQueryBackend) Results(ctx context.Context, queryID string) (entity.ResultTable, error) {
	client, err := b.clients.Athena(ctx, b.region)
	if err != nil {
		return entity.ResultTable{}, err
	}

	input := &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(queryID),
		MaxResults:       aws.Int32(1000),
	}

	table := entity.ResultTable{Rows: [][]string{}}
	firstPage := true
	for {
		resp, err := client.GetQueryResults(ctx, input)
		if err != nil {
			return entity.ResultTable{}, fmt.Errorf("error getting query results: %w", err)
		}
		if resp.ResultSet == nil {
			break
		}

		if firstPage && resp.ResultSet.ResultSetMetadata != nil {
			for _, col := range resp.ResultSet.ResultSetMetadata.ColumnInfo {
				table.Columns = append(table.Columns, aws.ToString(col.Name))
			}
		}

		rows := resp.ResultSet.Rows
		if firstPage && len(rows) > 0 {
			rows = rows[1:]
		}
		for _, row := range rows {
			values := make([]string, 0, len(row.Data))
			for _, datum := range row.Data {
				values = append(values, aws.ToString(datum.VarCharValue))
			}
			table.Rows = append(table.Rows, values)
		}

		firstPage = false
		if resp.NextToken == nil {
			break
		}
		input.NextToken = resp.NextToken
	}
	return table, nil
}

// Table devolve o nome qualificado da tabela do CUR para interpolação
// nas consultas.
func (b *UsageQueryBackend) Table() string {
	return fmt.Sprintf("%s.%s", b.database, b.table)
}

// bucketName extrai o nome do bucket de uma URI s3:// ou de um nome puro.
func bucketName(location string) string {
	name := strings.TrimPrefix(location, "s3://")
	if idx := strings.Index(name, "/"); idx >= 0 {
		name = name[:idx]
	}
	return name
}

// outputLocation normaliza o destino dos resultados para uma URI s3://.
func outputLocation(location string) string {
	if strings.HasPrefix(location, "s3://") {
		return strings.TrimSuffix(location, "/") + "/"
	}
	return "s3://" + strings.TrimSuffix(location, "/") + "/"
}

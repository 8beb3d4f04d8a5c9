package aws

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/support"
	"github.com/sirupsen/logrus"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// defaultCheckLanguage é o idioma usado ao listar os checks do
// Trusted Advisor.
const defaultCheckLanguage = "en"

// advisorCheck guarda o id e os títulos de metadados de um check,
// resolvidos uma única vez no preflight.
type advisorCheck struct {
	id       string
	metadata []string
}

// AdvisorBackend serve o provedor de checks consultivos do Trusted
// Advisor via API de Support. Os checks são identificados por nome e
// resolvidos para ids no preflight.
type AdvisorBackend struct {
	clients *ClientFactory
	log     logrus.FieldLogger

	mu     sync.Mutex
	checks map[string]advisorCheck
}

// NewAdvisorBackend cria o backend de checks consultivos.
func NewAdvisorBackend(clients *ClientFactory, log logrus.FieldLogger) repository.Backend {
	return &AdvisorBackend{
		clients: clients,
		log:     log.WithField("provider", entity.ProviderAdvisor),
	}
}

func (b *AdvisorBackend) ID() entity.ProviderID { return entity.ProviderAdvisor }

// Preflight lista os checks disponíveis e monta o índice nome -> id.
// Falha quando a conta não tem plano de suporte com acesso à API.
func (b *AdvisorBackend) Preflight(ctx context.Context) error {
	_, err := b.checkIndex(ctx)
	return err
}

// Fetch busca o resultado do check nomeado no request e devolve os
// recursos sinalizados como tabela.
func (b *AdvisorBackend) Fetch(ctx context.Context, req entity.ReportRequest) (entity.ResultTable, error) {
	if req.Advisor == nil {
		return entity.ResultTable{}, fmt.Errorf("advisor backend received a non-advisor request")
	}

	index, err := b.checkIndex(ctx)
	if err != nil {
		return entity.ResultTable{}, err
	}

	check, ok := index[strings.ToLower(req.Advisor.CheckName)]
	if !ok {
		return entity.ResultTable{}, &types.BackendRequestError{
			Provider: string(entity.ProviderAdvisor),
			Reason:   fmt.Sprintf("trusted advisor check %q not found", req.Advisor.CheckName),
		}
	}

	client, err := b.clients.Support(ctx)
	if err != nil {
		return entity.ResultTable{}, err
	}

	language := req.Advisor.Language
	if language == "" {
		language = defaultCheckLanguage
	}
	resp, err := client.DescribeTrustedAdvisorCheckResult(ctx, &support.DescribeTrustedAdvisorCheckResultInput{
		CheckId:  aws.String(check.id),
		Language: aws.String(language),
	})
	if err != nil {
		return entity.ResultTable{}, fmt.Errorf("error describing check result for %s: %w", req.Advisor.CheckName, err)
	}

	columns := append([]string{"Status", "Region", "Resource ID"}, metaColumns(check.metadata)...)
	table := entity.ResultTable{Columns: columns, Rows: [][]string{}}

	if resp.Result == nil || aws.ToString(resp.Result.Status) == "not_available" {
		b.log.WithField("check", req.Advisor.CheckName).Debug("check result not available yet")
		return table, nil
	}

	metaWidth := len(check.metadata)
	for _, resource := range resp.Result.FlaggedResources {
		row := make([]string, 0, len(columns))
		row = append(row,
			aws.ToString(resource.Status),
			aws.ToString(resource.Region),
			aws.ToString(resource.ResourceId),
		)
		for i := 0; i < metaWidth; i++ {
			if i < len(resource.Metadata) {
				row = append(row, aws.ToString(resource.Metadata[i]))
			} else {
				row = append(row, "")
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// checkIndex devolve o índice nome -> check, construindo-o na primeira
// chamada.
func (b *AdvisorBackend) checkIndex(ctx context.Context) (map[string]advisorCheck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.checks != nil {
		return b.checks, nil
	}

	client, err := b.clients.Support(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.DescribeTrustedAdvisorChecks(ctx, &support.DescribeTrustedAdvisorChecksInput{
		Language: aws.String(defaultCheckLanguage),
	})
	if err != nil {
		return nil, &types.BackendRequestError{
			Provider: string(entity.ProviderAdvisor),
			Reason:   "trusted advisor checks are not accessible; a Business or Enterprise support plan is required",
			Err:      err,
		}
	}

	index := make(map[string]advisorCheck, len(resp.Checks))
	for _, check := range resp.Checks {
		name := aws.ToString(check.Name)
		if name == "" {
			continue
		}
		index[strings.ToLower(name)] = advisorCheck{
			id:       aws.ToString(check.Id),
			metadata: aws.ToStringSlice(check.Metadata),
		}
	}

	b.log.WithField("checks", len(index)).Debug("trusted advisor check index built")
	b.checks = index
	return index, nil
}

// metaColumns converte os títulos de metadados do check em nomes de
// coluna, com fallback posicional quando o título vem vazio.
func metaColumns(metadata []string) []string {
	columns := make([]string, 0, len(metadata))
	for i, name := range metadata {
		if name == "" {
			name = fmt.Sprintf("Meta %d", i)
		}
		columns = append(columns, name)
	}
	return columns
}

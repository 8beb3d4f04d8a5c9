package main

import (
	"fmt"
	"os"

	"github.com/finopsworks/aws-cost-reports-go/internal/adapter/driven/aws"
	"github.com/finopsworks/aws-cost-reports-go/internal/adapter/driven/cache"
	"github.com/finopsworks/aws-cost-reports-go/internal/adapter/driven/config"
	"github.com/finopsworks/aws-cost-reports-go/internal/adapter/driven/export"
	"github.com/finopsworks/aws-cost-reports-go/internal/adapter/driving/cli"
	"github.com/finopsworks/aws-cost-reports-go/internal/application/usecase"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/reports/advisor"
	"github.com/finopsworks/aws-cost-reports-go/internal/reports/costmetrics"
	"github.com/finopsworks/aws-cost-reports-go/internal/reports/recommendation"
	"github.com/finopsworks/aws-cost-reports-go/internal/reports/usagequery"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/logging"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
	"github.com/finopsworks/aws-cost-reports-go/pkg/console"
	"github.com/finopsworks/aws-cost-reports-go/pkg/version"
)

// fallbackRegion é usada quando a descoberta de regiões falha e nenhuma
// região foi configurada.
const fallbackRegion = "us-east-1"

func main() {
	// Inicializa o aplicativo CLI
	app := cli.NewCLIApp(version.Version)

	app.SetConfigRepository(config.NewConfigRepository())
	app.SetUseCaseFactory(buildBatchUseCase)

	// Executa o aplicativo
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildBatchUseCase monta o grafo de dependências de um lote a partir dos
// argumentos já mesclados da CLI e do arquivo de configuração.
func buildBatchUseCase(args *types.CLIArgs) (*usecase.BatchUseCase, error) {
	logger, err := logging.New(os.Getenv("AWS_COST_REPORTS_LOG_LEVEL"), os.Getenv("AWS_COST_REPORTS_LOG_FILE"))
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	consoleImpl := console.NewConsole()
	clients := aws.NewClientFactory(args.Profile)

	fileCache, err := cache.NewFileCache(args.CacheDir, args.CacheTTLDays)
	if err != nil {
		return nil, err
	}

	// Registra os catálogos dos quatro provedores.
	registry := report.NewRegistry()
	catalogs := [][]report.Descriptor{
		costmetrics.Catalog(),
		usagequery.Catalog(),
		advisor.Catalog(),
		recommendation.Catalog(),
	}
	for _, catalog := range catalogs {
		for _, descriptor := range catalog {
			if err := registry.Register(descriptor); err != nil {
				return nil, fmt.Errorf("registering report catalog: %w", err)
			}
		}
	}

	executor := usecase.NewExecutor(usecase.DefaultPollPolicy(), logger)

	// Backends na ordem em que os provedores executam dentro do lote.
	backends := []repository.Backend{
		aws.NewCostMetricsBackend(clients, logger),
		aws.NewUsageQueryBackend(clients, args.CURDatabase, args.CURTable, args.CURRegion, args.CURResultsBucket, logger),
		aws.NewAdvisorBackend(clients, logger),
		aws.NewRecommendationBackend(clients, fallbackRegion, logger),
	}

	orchestrators := make([]*usecase.Orchestrator, 0, len(backends))
	for _, backend := range backends {
		orchestrators = append(orchestrators, usecase.NewOrchestrator(
			backend, registry, fileCache, executor, consoleImpl, logger,
		))
	}

	scopes := aws.NewScopeResolver(clients, fallbackRegion, logger)
	exportRepo := export.NewExportRepository()

	return usecase.NewBatchUseCase(scopes, orchestrators, registry, exportRepo, consoleImpl, logger), nil
}

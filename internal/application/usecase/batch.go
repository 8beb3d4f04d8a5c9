package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// BatchUseCase handles the main batch functionality: it resolves the
// request scope, runs every provider orchestrator in order and merges
// the per-report outcomes.
type BatchUseCase struct {
	scopes        repository.ScopeResolver
	orchestrators []*Orchestrator
	registry      *report.Registry
	exportRepo    repository.ExportRepository
	console       types.ConsoleInterface
	log           logrus.FieldLogger
}

// NewBatchUseCase creates a new batch use case.
func NewBatchUseCase(
	scopes repository.ScopeResolver,
	orchestrators []*Orchestrator,
	registry *report.Registry,
	exportRepo repository.ExportRepository,
	console types.ConsoleInterface,
	log logrus.FieldLogger,
) *BatchUseCase {
	return &BatchUseCase{
		scopes:        scopes,
		orchestrators: orchestrators,
		registry:      registry,
		exportRepo:    exportRepo,
		console:       console,
		log:           log,
	}
}

// Run executa o lote completo de relatórios conforme os argumentos da
// CLI e devolve o resultado consolidado.
func (uc *BatchUseCase) Run(ctx context.Context, args *types.CLIArgs) (*entity.BatchOutcome, error) {
	// Valida cedo que os nomes pedidos resolvem para algum relatório.
	resolved, err := uc.registry.Resolve(args.Reports)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return nil, types.ErrNoReportsResolved
	}

	outcome := &entity.BatchOutcome{
		BatchID:   uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := uc.log.WithField("batch_id", outcome.BatchID)

	// Resolve o escopo uma única vez para todo o lote. Parâmetros que
	// alteram o resultado dos relatórios entram em ExtraInput para que
	// participem dos fingerprints de cache.
	extra := map[string]string{}
	if args.LookbackMonths > 0 {
		extra[entity.ExtraLookbackMonths] = strconv.Itoa(args.LookbackMonths)
	}
	if args.CURDatabase != "" && args.CURTable != "" {
		extra[entity.ExtraCURTable] = args.CURDatabase + "." + args.CURTable
	}

	status := uc.console.Status("Resolving request scope...")
	scope, err := uc.scopes.ResolveScope(ctx, entity.RequestScope{
		Accounts:   args.Accounts,
		Regions:    args.Regions,
		Customer:   args.Customer,
		ExtraInput: extra,
	})
	if err != nil {
		status.Stop()
		return nil, err
	}
	if len(scope.Accounts) == 0 {
		status.Stop()
		return nil, types.ErrNoAccountsResolved
	}
	outcome.Scope = scope

	log.WithFields(logrus.Fields{
		"accounts": scope.Accounts,
		"regions":  scope.Regions,
		"customer": scope.Customer,
	}).Info("batch scope resolved")
	uc.console.LogInfo("Running reports for %d account(s) across %d region(s)", len(scope.Accounts), len(scope.Regions))

	in := RunInput{Scope: scope, NoCache: args.NoCache, FailFast: args.FailFast}

	// Executa os provedores sequencialmente, na ordem de registro.
	for _, orch := range uc.orchestrators {
		if ctx.Err() != nil {
			break
		}
		if !uc.providerSelected(args.Providers, orch.Provider()) {
			continue
		}

		status.Update(fmt.Sprintf("Running %s reports...", orch.Provider()))
		runs, err := orch.Run(ctx, args.Reports, in)
		if err != nil {
			status.Stop()
			return nil, err
		}

		failed := false
		for _, run := range runs {
			if run.Succeeded() {
				outcome.Completed = append(outcome.Completed, run)
				outcome.TotalSavings += run.Savings
			} else {
				outcome.Failed = append(outcome.Failed, run)
				failed = true
			}
		}

		if failed && args.FailFast {
			uc.console.LogWarning("Stopping after first failure (fail-fast)")
			break
		}
	}
	status.Stop()
	outcome.FinishedAt = time.Now()

	uc.renderSummary(outcome)
	uc.renderSavingsBars(outcome)
	uc.exportOutcome(outcome, args)

	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// providerSelected verifica se o provedor foi pedido; filtro vazio
// seleciona todos.
func (uc *BatchUseCase) providerSelected(filter []string, provider entity.ProviderID) bool {
	if len(filter) == 0 {
		return true
	}
	for _, p := range filter {
		if strings.EqualFold(p, string(provider)) {
			return true
		}
	}
	return false
}

// renderSummary imprime a tabela consolidada do lote.
func (uc *BatchUseCase) renderSummary(outcome *entity.BatchOutcome) {
	table := uc.console.CreateTable()
	table.AddColumn("Report")
	table.AddColumn("Provider")
	table.AddColumn("Status")
	table.AddColumn("Rows")
	table.AddColumn("Estimated Savings")
	table.AddColumn("Source")

	allRuns := make([]*entity.ReportRun, 0, len(outcome.Completed)+len(outcome.Failed))
	allRuns = append(allRuns, outcome.Completed...)
	allRuns = append(allRuns, outcome.Failed...)

	for _, run := range allRuns {
		status := string(run.Execution.State)
		rows := "-"
		savings := "-"
		source := "live"

		switch {
		case run.Succeeded():
			status = pterm.FgGreen.Sprint(status)
			if run.Result != nil {
				rows = fmt.Sprintf("%d", len(run.Result.Table.Rows))
				if run.Result.DisplaySavings {
					savings = pterm.FgGreen.Sprintf("$%.2f", run.Savings)
				}
			}
			if run.FromCache {
				source = pterm.FgCyan.Sprint("cache")
			}
		case run.Execution.State == entity.StateCancelled:
			status = pterm.FgYellow.Sprint(status)
			source = "-"
		default:
			status = pterm.FgRed.Sprint(status)
			source = "-"
		}

		table.AddRow(
			pterm.FgMagenta.Sprint(run.Report),
			string(run.Provider),
			status,
			rows,
			savings,
			source,
		)
	}

	uc.console.Print(table.Render())
	fmt.Println()

	if len(outcome.Failed) > 0 {
		uc.console.LogWarning("%d report(s) failed; see the log for details", len(outcome.Failed))
	}
	if outcome.TotalSavings > 0 {
		uc.console.LogSuccess("Total estimated monthly savings: $%.2f", outcome.TotalSavings)
	}
}

// renderSavingsBars exibe o gráfico de barras de economia por relatório.
func (uc *BatchUseCase) renderSavingsBars(outcome *entity.BatchOutcome) {
	savings := []types.ReportSavings{}
	for _, run := range outcome.Completed {
		if run.Result != nil && run.Result.DisplaySavings && run.Savings > 0 {
			savings = append(savings, types.ReportSavings{Report: run.Result.Name, Savings: run.Savings})
		}
	}
	if len(savings) == 0 {
		return
	}

	uc.console.Printf("\n%s\n", pterm.FgYellow.Sprint("Estimated monthly savings by report"))
	uc.console.DisplaySavingsBars(savings)
}

// exportOutcome exporta o lote nos formatos pedidos.
func (uc *BatchUseCase) exportOutcome(outcome *entity.BatchOutcome, args *types.CLIArgs) {
	if args.ReportName == "" || len(args.ReportType) == 0 {
		return
	}

	for _, reportType := range args.ReportType {
		switch reportType {
		case "csv":
			csvPath, err := uc.exportRepo.ExportToCSV(outcome, args.ReportName, args.Dir)
			if err != nil {
				uc.console.LogError("Failed to export to CSV: %s", err)
			} else {
				uc.console.LogSuccess("Successfully exported to CSV: %s", csvPath)
			}
		case "json":
			jsonPath, err := uc.exportRepo.ExportToJSON(outcome, args.ReportName, args.Dir)
			if err != nil {
				uc.console.LogError("Failed to export to JSON: %s", err)
			} else {
				uc.console.LogSuccess("Successfully exported to JSON: %s", jsonPath)
			}
		case "pdf":
			pdfPath, err := uc.exportRepo.ExportToPDF(outcome, args.ReportName, args.Dir)
			if err != nil {
				uc.console.LogError("Failed to export to PDF: %s", err)
			} else {
				uc.console.LogSuccess("Successfully exported to PDF: %s", pdfPath)
			}
		default:
			uc.console.LogWarning("Unknown report type %q; use csv, json or pdf", reportType)
		}
	}
}

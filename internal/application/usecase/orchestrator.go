package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// RunInput carries the per-batch settings an orchestrator run needs.
type RunInput struct {
	Scope    entity.RequestScope
	NoCache  bool
	FailFast bool
}

// Orchestrator runs every requested report of a single provider:
// fingerprinting, cache lookups, execution and dependency propagation.
type Orchestrator struct {
	backend  repository.Backend
	registry *report.Registry
	cache    repository.CacheRepository
	executor *Executor
	console  types.ConsoleInterface
	log      logrus.FieldLogger
}

// NewOrchestrator creates an orchestrator bound to one backend.
func NewOrchestrator(
	backend repository.Backend,
	registry *report.Registry,
	cache repository.CacheRepository,
	executor *Executor,
	console types.ConsoleInterface,
	log logrus.FieldLogger,
) *Orchestrator {
	return &Orchestrator{
		backend:  backend,
		registry: registry,
		cache:    cache,
		executor: executor,
		console:  console,
		log:      log.WithField("provider", backend.ID()),
	}
}

// Provider returns the backend id this orchestrator serves.
func (o *Orchestrator) Provider() entity.ProviderID {
	return o.backend.ID()
}

// Run resolve os nomes pedidos sobre o catálogo deste provedor e executa
// cada relatório em ordem de dependência. Falhas de relatório ficam no
// registro do run; apenas erros de configuração sobem como erro.
func (o *Orchestrator) Run(ctx context.Context, requested []string, in RunInput) ([]*entity.ReportRun, error) {
	descriptors, err := o.registry.ResolveProvider(o.backend.ID(), requested)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		return nil, nil
	}

	ordered, err := o.orderByDependencies(descriptors)
	if err != nil {
		return nil, err
	}

	// Um preflight reprovado pula o provedor inteiro com aviso,
	// produzindo zero execuções.
	if err := o.backend.Preflight(ctx); err != nil {
		o.console.LogWarning("Skipping provider %s: %s", o.backend.ID(), err)
		o.log.WithError(err).Warn("provider preflight failed")
		return nil, nil
	}

	runs := make([]*entity.ReportRun, 0, len(ordered))
	baseTables := map[string]entity.ResultTable{}
	failures := map[string]error{}

	progress := o.console.ProgressWithTotal(len(ordered))
	for _, desc := range ordered {
		if ctx.Err() != nil {
			break
		}

		run := o.runOne(ctx, desc, in, baseTables, failures)
		runs = append(runs, run)
		progress.Increment()

		if run.Err != nil {
			failures[desc.Name()] = run.Err
			if in.FailFast {
				break
			}
			continue
		}
		if run.Result != nil {
			baseTables[desc.Name()] = run.Result.Table
		}
	}
	progress.Stop()

	return runs, nil
}

// runOne executa um único descritor: dependências, fingerprint, cache e
// por fim a execução ao vivo.
func (o *Orchestrator) runOne(
	ctx context.Context,
	desc report.Descriptor,
	in RunInput,
	baseTables map[string]entity.ResultTable,
	failures map[string]error,
) *entity.ReportRun {
	run := &entity.ReportRun{
		Report:    desc.Name(),
		Provider:  o.backend.ID(),
		Execution: entity.NewQueryExecution(desc.Name()),
	}
	log := o.log.WithField("report", desc.Name())

	// Uma base reprovada propaga a falha sem nunca construir o request.
	for _, base := range desc.Dependencies() {
		if baseErr, failed := failures[base]; failed {
			o.failRun(run, &types.DependencyError{Report: desc.Name(), Base: base, BaseErr: baseErr}, log)
			return run
		}
		if _, ok := baseTables[base]; !ok {
			o.failRun(run, &types.DependencyError{
				Report:  desc.Name(),
				Base:    base,
				BaseErr: fmt.Errorf("base report did not run"),
			}, log)
			return run
		}
	}

	fingerprint := entity.ComputeFingerprint(desc.Name(), in.Scope)
	log = log.WithField("fingerprint", fingerprint.Short())

	if !desc.CacheUsable() {
		// Relatórios marcados como não cacheáveis invalidam qualquer
		// entrada antiga antes da busca ao vivo.
		if err := o.cache.Invalidate(fingerprint); err != nil {
			log.WithError(err).Debug("cache invalidation failed")
		}
	} else if !in.NoCache {
		if run, ok := o.fromCache(desc, fingerprint, log); ok {
			return run
		}
	}

	req, err := desc.BuildRequest(entity.BuildInput{Scope: in.Scope, BaseTables: baseTables})
	if err != nil {
		o.failRun(run, err, log)
		return run
	}

	execution, raw, err := o.executor.Run(ctx, o.backend, desc.Name(), req)
	run.Execution = &execution
	if err != nil {
		o.failRun(run, err, log)
		return run
	}

	mapped, err := desc.MapRows(raw)
	if err != nil {
		o.failRun(run, err, log)
		return run
	}

	run.Result = &entity.ReportResult{
		Name:           desc.CommonName(),
		Table:          mapped,
		Chart:          desc.Chart(),
		DisplaySavings: desc.DisplaySavings(),
	}
	if desc.DisplaySavings() {
		run.Savings = entity.EstimatedSavings(mapped)
	}

	if desc.CacheUsable() {
		if err := o.cache.Store(fingerprint, desc.Name(), mapped); err != nil {
			log.WithError(err).Warn("failed to store cache entry")
		}
	}

	log.WithFields(logrus.Fields{"rows": len(mapped.Rows), "polls": execution.Polls}).Info("report completed")
	o.console.LogSuccess("%s: %d rows", desc.CommonName(), len(mapped.Rows))
	return run
}

// fromCache tenta servir o relatório a partir do cache. Entradas
// ilegíveis são descartadas e tratadas como ausência.
func (o *Orchestrator) fromCache(desc report.Descriptor, fingerprint entity.Fingerprint, log logrus.FieldLogger) (*entity.ReportRun, bool) {
	entry, err := o.cache.Lookup(fingerprint)
	if err != nil {
		var integrity *types.CacheIntegrityError
		if errors.As(err, &integrity) {
			log.WithError(err).Warn("discarding unreadable cache entry")
			if err := o.cache.Invalidate(fingerprint); err != nil {
				log.WithError(err).Debug("cache invalidation failed")
			}
		} else {
			log.WithError(err).Warn("cache lookup failed")
		}
		return nil, false
	}
	if entry == nil {
		return nil, false
	}

	run := &entity.ReportRun{
		Report:    desc.Name(),
		Provider:  o.backend.ID(),
		Execution: entity.NewQueryExecution(desc.Name()),
		FromCache: true,
		Result: &entity.ReportResult{
			Name:           desc.CommonName(),
			Table:          entry.Table,
			Chart:          desc.Chart(),
			DisplaySavings: desc.DisplaySavings(),
		},
	}
	run.Execution.State = entity.StateSucceeded
	run.Execution.StateReason = "served from cache"
	if desc.DisplaySavings() {
		run.Savings = entity.EstimatedSavings(entry.Table)
	}

	log.Info("report served from cache")
	o.console.LogInfo("%s: served from cache", desc.CommonName())
	return run, true
}

// failRun marca o run como reprovado, loga a causa e imprime o erro com
// uma dica de correção.
func (o *Orchestrator) failRun(run *entity.ReportRun, err error, log logrus.FieldLogger) {
	run.Err = err
	if run.Execution.State != entity.StateFailed && run.Execution.State != entity.StateCancelled {
		run.Execution.State = entity.StateFailed
	}
	if run.Execution.StateReason == "" {
		run.Execution.StateReason = err.Error()
	}

	log.WithError(err).Error("report failed")
	o.console.LogError("Report %s failed: %s", run.Report, err)
	if hint := remediationHint(err); hint != "" {
		o.console.LogWarning("%s", hint)
	}
}

// orderByDependencies devolve os descritores em ordem topológica,
// puxando bases ausentes do catálogo quando necessário.
func (o *Orchestrator) orderByDependencies(descriptors []report.Descriptor) ([]report.Descriptor, error) {
	selected := make(map[string]report.Descriptor, len(descriptors))
	names := make([]string, 0, len(descriptors))

	var include func(d report.Descriptor) error
	include = func(d report.Descriptor) error {
		if _, ok := selected[d.Name()]; ok {
			return nil
		}
		selected[d.Name()] = d
		names = append(names, d.Name())

		for _, base := range d.Dependencies() {
			baseDesc, ok := o.registry.Lookup(base)
			if !ok {
				return &types.ConfigurationError{
					Field:  "reports",
					Reason: fmt.Sprintf("report %q depends on unknown report %q", d.Name(), base),
				}
			}
			if baseDesc.Provider() != o.backend.ID() {
				return &types.ConfigurationError{
					Field:  "reports",
					Reason: fmt.Sprintf("report %q depends on %q from another provider", d.Name(), base),
				}
			}
			if err := include(baseDesc); err != nil {
				return err
			}
		}
		return nil
	}

	for _, d := range descriptors {
		if err := include(d); err != nil {
			return nil, err
		}
	}

	// Ordenação topológica simples; o catálogo é pequeno e acíclico.
	ordered := make([]report.Descriptor, 0, len(selected))
	done := make(map[string]bool, len(selected))
	for len(ordered) < len(selected) {
		advanced := false
		for _, name := range names {
			if done[name] {
				continue
			}
			d := selected[name]
			ready := true
			for _, base := range d.Dependencies() {
				if !done[base] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, d)
				done[name] = true
				advanced = true
			}
		}
		if !advanced {
			return nil, &types.ConfigurationError{
				Field:  "reports",
				Reason: "report dependencies form a cycle",
			}
		}
	}
	return ordered, nil
}

// remediationHint devolve uma sugestão de correção conforme o tipo do
// erro.
func remediationHint(err error) string {
	var configErr *types.ConfigurationError
	if errors.As(err, &configErr) {
		return "Check the configuration file and command line flags."
	}
	var depErr *types.DependencyError
	if errors.As(err, &depErr) {
		return fmt.Sprintf("Fix the base report %q and run again.", depErr.Base)
	}
	var backendErr *types.BackendRequestError
	if errors.As(err, &backendErr) {
		return fmt.Sprintf("Verify that the %s provider is enabled for this account and the credentials allow it.", backendErr.Provider)
	}
	return ""
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finopsworks/aws-cost-reports-go/pkg/version"

	"github.com/finopsworks/aws-cost-reports-go/internal/application/usecase"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
	"github.com/spf13/cobra"
)

// UseCaseFactory builds the batch use case for one invocation, after the
// flags and the configuration file have been merged into args.
type UseCaseFactory func(args *types.CLIArgs) (*usecase.BatchUseCase, error)

// CLIApp represents the command-line interface application.
type CLIApp struct {
	rootCmd    *cobra.Command
	configRepo repository.ConfigRepository
	factory    UseCaseFactory
	version    string
}

// NewCLIApp cria uma nova aplicação CLI.
func NewCLIApp(versionStr string) *CLIApp {
	app := &CLIApp{
		version: versionStr,
	}

	// Obtem a versão formatada
	formattedVersion := version.FormatVersion()

	rootCmd := &cobra.Command{
		Use:     "aws-cost-reports",
		Short:   "AWS Cost Reports CLI",
		Version: formattedVersion, // Use a versão formatada
		RunE:    app.runCommand,
	}

	// Personaliza a template para incluir mais informações de versão
	rootCmd.SetVersionTemplate(`{{printf "AWS Cost Reports version: %s\n" .Version}}`)

	// Adiciona flags de linha de comando
	rootCmd.PersistentFlags().StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "AWS profile to use for all backend calls")
	rootCmd.PersistentFlags().StringSliceP("accounts", "a", nil, "AWS account IDs to report on (comma-separated, default: caller identity)")
	rootCmd.PersistentFlags().StringSliceP("regions", "r", nil, "AWS regions to report on (comma-separated, default: accessible regions)")
	rootCmd.PersistentFlags().String("customer", "", "Customer label recorded with the batch scope")
	rootCmd.PersistentFlags().StringSlice("reports", []string{"ALL"}, "Report names to run (comma-separated, or ALL)")
	rootCmd.PersistentFlags().StringSlice("providers", nil, "Restrict the run to these providers (comma-separated)")
	rootCmd.PersistentFlags().String("cache-dir", "", "Directory for cached report results (default: ~/.aws-cost-reports/cache)")
	rootCmd.PersistentFlags().Int("cache-ttl-days", 8, "Days a cached report result stays fresh")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Skip cache lookups and fetch every report live")
	rootCmd.PersistentFlags().StringP("report-name", "n", "", "Specify the base name for the report file (without extension)")
	rootCmd.PersistentFlags().StringSliceP("report-type", "y", []string{"csv"}, "Specify report types: csv, json, pdf")
	rootCmd.PersistentFlags().StringP("dir", "d", "", "Directory to save the report files (default: current directory)")
	rootCmd.PersistentFlags().Int("lookback-months", 0, "Months of history for cost metrics reports (default: 3)")
	rootCmd.PersistentFlags().String("cur-database", "", "Glue database holding the usage report table")
	rootCmd.PersistentFlags().String("cur-table", "", "Usage report table name inside the Glue database")
	rootCmd.PersistentFlags().String("cur-region", "", "Region of the query service endpoint (default: resolved region)")
	rootCmd.PersistentFlags().String("cur-results-bucket", "", "S3 bucket (or s3:// URI) receiving query results")
	rootCmd.PersistentFlags().Bool("fail-fast", false, "Stop the batch after the first failed report")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Overall batch deadline, e.g. 30m (default: none)")

	app.rootCmd = rootCmd
	return app
}

// Execute runs the CLI application.
func (app *CLIApp) Execute() error {
	return app.rootCmd.Execute()
}

// parseArgs parses command-line arguments into a CLIArgs struct.
func (app *CLIApp) parseArgs() (*types.CLIArgs, error) {
	flags := app.rootCmd.Flags()

	configFile, _ := flags.GetString("config-file")
	profile, _ := flags.GetString("profile")
	accounts, _ := flags.GetStringSlice("accounts")
	regions, _ := flags.GetStringSlice("regions")
	customer, _ := flags.GetString("customer")
	reports, _ := flags.GetStringSlice("reports")
	providers, _ := flags.GetStringSlice("providers")
	cacheDir, _ := flags.GetString("cache-dir")
	cacheTTLDays, _ := flags.GetInt("cache-ttl-days")
	noCache, _ := flags.GetBool("no-cache")
	reportName, _ := flags.GetString("report-name")
	reportType, _ := flags.GetStringSlice("report-type")
	dir, _ := flags.GetString("dir")
	lookbackMonths, _ := flags.GetInt("lookback-months")
	curDatabase, _ := flags.GetString("cur-database")
	curTable, _ := flags.GetString("cur-table")
	curRegion, _ := flags.GetString("cur-region")
	curResultsBucket, _ := flags.GetString("cur-results-bucket")
	failFast, _ := flags.GetBool("fail-fast")
	timeout, _ := flags.GetDuration("timeout")

	// Set default directory to current working directory if not specified
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = cwd
	} else {
		// Convert to absolute path
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		dir = absDir
	}

	args := &types.CLIArgs{
		ConfigFile:       configFile,
		Profile:          profile,
		Accounts:         accounts,
		Regions:          regions,
		Customer:         customer,
		Reports:          reports,
		Providers:        providers,
		CacheDir:         cacheDir,
		CacheTTLDays:     cacheTTLDays,
		NoCache:          noCache,
		ReportName:       reportName,
		ReportType:       reportType,
		Dir:              dir,
		LookbackMonths:   lookbackMonths,
		CURDatabase:      curDatabase,
		CURTable:         curTable,
		CURRegion:        curRegion,
		CURResultsBucket: curResultsBucket,
		FailFast:         failFast,
		Timeout:          timeout,
	}

	return args, nil
}

// applyConfigFile mescla o arquivo de configuração nos argumentos. Flags
// passadas explicitamente na linha de comando têm precedência sobre o
// arquivo.
func (app *CLIApp) applyConfigFile(args *types.CLIArgs) error {
	if args.ConfigFile == "" || app.configRepo == nil {
		return nil
	}

	cfg, err := app.configRepo.LoadConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}

	changed := app.rootCmd.Flags().Changed

	if !changed("profile") && cfg.Profile != "" {
		args.Profile = cfg.Profile
	}
	if !changed("accounts") && len(cfg.Accounts) > 0 {
		args.Accounts = cfg.Accounts
	}
	if !changed("regions") && len(cfg.Regions) > 0 {
		args.Regions = cfg.Regions
	}
	if !changed("customer") && cfg.Customer != "" {
		args.Customer = cfg.Customer
	}
	if !changed("reports") && len(cfg.Reports) > 0 {
		args.Reports = cfg.Reports
	}
	if !changed("providers") && len(cfg.Providers) > 0 {
		args.Providers = cfg.Providers
	}
	if !changed("cache-dir") && cfg.CacheDir != "" {
		args.CacheDir = cfg.CacheDir
	}
	if !changed("cache-ttl-days") && cfg.CacheTTLDays > 0 {
		args.CacheTTLDays = cfg.CacheTTLDays
	}
	if !changed("no-cache") && cfg.NoCache {
		args.NoCache = true
	}
	if !changed("report-name") && cfg.ReportName != "" {
		args.ReportName = cfg.ReportName
	}
	if !changed("report-type") && len(cfg.ReportType) > 0 {
		args.ReportType = cfg.ReportType
	}
	if !changed("dir") && cfg.Dir != "" {
		absDir, err := filepath.Abs(cfg.Dir)
		if err != nil {
			return err
		}
		args.Dir = absDir
	}
	if !changed("lookback-months") && cfg.LookbackMonths > 0 {
		args.LookbackMonths = cfg.LookbackMonths
	}
	if !changed("cur-database") && cfg.CURDatabase != "" {
		args.CURDatabase = cfg.CURDatabase
	}
	if !changed("cur-table") && cfg.CURTable != "" {
		args.CURTable = cfg.CURTable
	}
	if !changed("cur-region") && cfg.CURRegion != "" {
		args.CURRegion = cfg.CURRegion
	}
	if !changed("cur-results-bucket") && cfg.CURResultsBucket != "" {
		args.CURResultsBucket = cfg.CURResultsBucket
	}
	if !changed("fail-fast") && cfg.FailFast {
		args.FailFast = true
	}

	return nil
}

// runCommand é o ponto de entrada principal para o comando CLI.
func (app *CLIApp) runCommand(cmd *cobra.Command, args []string) error {
	// Exibe o banner de boas-vindas
	displayWelcomeBanner(app.version)

	// Verifica a versão mais recente disponível
	go version.CheckLatestVersion(app.version)

	// Analisa os argumentos da linha de comando
	cliArgs, err := app.parseArgs()
	if err != nil {
		return err
	}

	// Lida com o arquivo de configuração, se especificado
	if err := app.applyConfigFile(cliArgs); err != nil {
		return err
	}

	if app.factory == nil {
		return fmt.Errorf("CLI application is not wired to a use case factory")
	}

	useCase, err := app.factory(cliArgs)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if cliArgs.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliArgs.Timeout)
		defer cancel()
	}

	_, err = useCase.Run(ctx, cliArgs)
	return err
}

// SetConfigRepository sets the configuration loader for the CLI app.
func (app *CLIApp) SetConfigRepository(repo repository.ConfigRepository) {
	app.configRepo = repo
}

// SetUseCaseFactory sets the batch use case factory for the CLI app.
func (app *CLIApp) SetUseCaseFactory(factory UseCaseFactory) {
	app.factory = factory
}

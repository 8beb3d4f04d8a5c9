package cli

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopsworks/aws-cost-reports-go/internal/adapter/driven/config"
	"github.com/finopsworks/aws-cost-reports-go/internal/application/usecase"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// errFactoryStop interrompe o runCommand logo após a fusão das flags,
// permitindo inspecionar os argumentos sem construir o caso de uso.
var errFactoryStop = errors.New("stop before use case construction")

func newTestApp(t *testing.T, cliArgs ...string) (*CLIApp, **types.CLIArgs) {
	t.Helper()

	app := NewCLIApp("0.0.0-dev")
	app.rootCmd.SetOut(io.Discard)
	app.rootCmd.SetErr(io.Discard)
	app.rootCmd.SetArgs(cliArgs)

	var captured *types.CLIArgs
	app.SetUseCaseFactory(func(args *types.CLIArgs) (*usecase.BatchUseCase, error) {
		captured = args
		return nil, errFactoryStop
	})
	return app, &captured
}

func TestRootCommandDefaults(t *testing.T) {
	app, captured := newTestApp(t)

	err := app.Execute()

	require.ErrorIs(t, err, errFactoryStop)
	args := *captured
	require.NotNil(t, args)

	cwd, _ := os.Getwd()
	assert.Equal(t, []string{"ALL"}, args.Reports)
	assert.Equal(t, []string{"csv"}, args.ReportType)
	assert.Equal(t, 8, args.CacheTTLDays)
	assert.Zero(t, args.LookbackMonths)
	assert.Equal(t, cwd, args.Dir)
	assert.False(t, args.FailFast)
	assert.Zero(t, args.Timeout)
}

func TestRootCommandParsesFlags(t *testing.T) {
	dir := t.TempDir()
	app, captured := newTestApp(t,
		"--profile", "finops",
		"--accounts", "111111111111,222222222222",
		"--regions", "us-east-1",
		"--reports", "account-spend,idle-nat-gateways",
		"--providers", "cost-metrics",
		"--lookback-months", "6",
		"--cur-database", "athenacurcfn",
		"--cur-table", "cur_report",
		"--cur-results-bucket", "s3://finops-athena-results",
		"--report-name", "finops",
		"--report-type", "json,pdf",
		"--dir", dir,
		"--fail-fast",
		"--no-cache",
		"--timeout", "30m",
	)

	err := app.Execute()

	require.ErrorIs(t, err, errFactoryStop)
	args := *captured
	require.NotNil(t, args)

	assert.Equal(t, "finops", args.Profile)
	assert.Equal(t, []string{"111111111111", "222222222222"}, args.Accounts)
	assert.Equal(t, []string{"us-east-1"}, args.Regions)
	assert.Equal(t, []string{"account-spend", "idle-nat-gateways"}, args.Reports)
	assert.Equal(t, []string{"cost-metrics"}, args.Providers)
	assert.Equal(t, 6, args.LookbackMonths)
	assert.Equal(t, "athenacurcfn", args.CURDatabase)
	assert.Equal(t, "cur_report", args.CURTable)
	assert.Equal(t, "s3://finops-athena-results", args.CURResultsBucket)
	assert.Equal(t, "finops", args.ReportName)
	assert.Equal(t, []string{"json", "pdf"}, args.ReportType)
	assert.True(t, filepath.IsAbs(args.Dir))
	assert.True(t, args.FailFast)
	assert.True(t, args.NoCache)
	assert.Equal(t, 30*time.Minute, args.Timeout)
}

func TestConfigFileFillsUnsetFlags(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "finops.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
profile = "from-file"
accounts = ["999999999999"]
cache_ttl_days = 14
lookback_months = 12
fail_fast = true
`), 0o644))

	// --accounts na linha de comando tem precedência sobre o arquivo.
	app, captured := newTestApp(t,
		"--config-file", configPath,
		"--accounts", "111111111111",
	)
	app.SetConfigRepository(config.NewConfigRepository())

	err := app.Execute()

	require.ErrorIs(t, err, errFactoryStop)
	args := *captured
	require.NotNil(t, args)

	assert.Equal(t, "from-file", args.Profile)
	assert.Equal(t, []string{"111111111111"}, args.Accounts, "explicit flags win over the file")
	assert.Equal(t, 14, args.CacheTTLDays)
	assert.Equal(t, 12, args.LookbackMonths)
	assert.True(t, args.FailFast)
}

func TestConfigFileLoadFailureAborts(t *testing.T) {
	app, _ := newTestApp(t, "--config-file", filepath.Join(t.TempDir(), "absent.toml"))
	app.SetConfigRepository(config.NewConfigRepository())

	err := app.Execute()

	require.Error(t, err)
	assert.NotErrorIs(t, err, errFactoryStop, "the factory never runs when the config file fails to load")
}

func TestExecuteWithoutFactory(t *testing.T) {
	app := NewCLIApp("0.0.0-dev")
	app.rootCmd.SetOut(io.Discard)
	app.rootCmd.SetErr(io.Discard)
	app.rootCmd.SetArgs(nil)

	err := app.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "use case factory")
}

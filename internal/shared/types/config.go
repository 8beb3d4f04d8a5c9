package types

// Config represents the application configuration that can be loaded from a file.
type Config struct {
	Profile          string   `json:"profile" yaml:"profile" toml:"profile"`
	Accounts         []string `json:"accounts" yaml:"accounts" toml:"accounts"`
	Regions          []string `json:"regions" yaml:"regions" toml:"regions"`
	Customer         string   `json:"customer" yaml:"customer" toml:"customer"`
	Reports          []string `json:"reports" yaml:"reports" toml:"reports"`
	Providers        []string `json:"providers" yaml:"providers" toml:"providers"`
	CacheDir         string   `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	CacheTTLDays     int      `json:"cache_ttl_days" yaml:"cache_ttl_days" toml:"cache_ttl_days"`
	ReportName       string   `json:"report_name" yaml:"report_name" toml:"report_name"`
	ReportType       []string `json:"report_type" yaml:"report_type" toml:"report_type"`
	Dir              string   `json:"dir" yaml:"dir" toml:"dir"`
	LookbackMonths   int      `json:"lookback_months" yaml:"lookback_months" toml:"lookback_months"`
	CURDatabase      string   `json:"cur_database" yaml:"cur_database" toml:"cur_database"`
	CURTable         string   `json:"cur_table" yaml:"cur_table" toml:"cur_table"`
	CURRegion        string   `json:"cur_region" yaml:"cur_region" toml:"cur_region"`
	CURResultsBucket string   `json:"cur_results_bucket" yaml:"cur_results_bucket" toml:"cur_results_bucket"`
	FailFast         bool     `json:"fail_fast" yaml:"fail_fast" toml:"fail_fast"`
	NoCache          bool     `json:"no_cache" yaml:"no_cache" toml:"no_cache"`
}

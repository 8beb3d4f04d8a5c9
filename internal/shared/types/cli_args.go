package types

import "time"

// CLIArgs represents the command-line arguments.
type CLIArgs struct {
	ConfigFile       string
	Profile          string
	Accounts         []string
	Regions          []string
	Customer         string
	Reports          []string
	Providers        []string
	CacheDir         string
	CacheTTLDays     int
	NoCache          bool
	ReportName       string
	ReportType       []string
	Dir              string
	LookbackMonths   int
	CURDatabase      string
	CURTable         string
	CURRegion        string
	CURResultsBucket string
	FailFast         bool
	Timeout          time.Duration
}

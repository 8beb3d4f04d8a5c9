package entity

// ProviderID identifies one of the four backend integrations.
type ProviderID string

const (
	ProviderCostMetrics    ProviderID = "cost-metrics"
	ProviderUsageQuery     ProviderID = "usage-query"
	ProviderAdvisor        ProviderID = "advisor"
	ProviderRecommendation ProviderID = "recommendation"
)

// MetricsKind selects which direct cost-metrics operation to call.
type MetricsKind string

const (
	MetricsCostAndUsage           MetricsKind = "cost_and_usage"
	MetricsReservationUtilization MetricsKind = "reservation_utilization"
	MetricsReservationPurchase    MetricsKind = "reservation_purchase"
	MetricsBudgetStatus           MetricsKind = "budget_status"
)

// Recommendation resource types.
const (
	ResourceEC2Instance    = "ec2-instance"
	ResourceLambdaFunction = "lambda-function"
	ResourceRDSDatabase    = "rds-database"
)

// QueryRequest is a SQL statement for the usage-report query service.
type QueryRequest struct {
	SQL      string `json:"sql"`
	Database string `json:"database"`
}

// MetricsRequest parameterizes a direct cost-metrics call.
type MetricsRequest struct {
	Kind           MetricsKind `json:"kind"`
	Accounts       []string    `json:"accounts,omitempty"`
	Metrics        []string    `json:"metrics,omitempty"`
	GroupBy        string      `json:"group_by,omitempty"`
	Service        string      `json:"service,omitempty"`
	LookbackMonths int         `json:"lookback_months,omitempty"`
}

// AdvisorRequest names one advisory check to fetch flagged resources for.
type AdvisorRequest struct {
	CheckName string `json:"check_name"`
	Language  string `json:"language,omitempty"`
}

// RecommendationRequest selects a recommendation resource type and the
// accounts and regions to collect recommendations for.
type RecommendationRequest struct {
	ResourceType string   `json:"resource_type"`
	Accounts     []string `json:"accounts,omitempty"`
	Regions      []string `json:"regions,omitempty"`
}

// ReportRequest is the backend-specific request a descriptor builds.
// Exactly one member is set, matching the descriptor's provider.
type ReportRequest struct {
	Query          *QueryRequest          `json:"query,omitempty"`
	Metrics        *MetricsRequest        `json:"metrics,omitempty"`
	Advisor        *AdvisorRequest        `json:"advisor,omitempty"`
	Recommendation *RecommendationRequest `json:"recommendation,omitempty"`
}

// Async reports whether the request runs through submit/poll/fetch rather
// than a single synchronous call.
func (r ReportRequest) Async() bool { return r.Query != nil }

// BuildInput carries everything a descriptor may consult when building its
// request: the batch scope plus the fetched tables of its already
// succeeded base reports, keyed by report name.
type BuildInput struct {
	Scope      RequestScope
	BaseTables map[string]ResultTable
}

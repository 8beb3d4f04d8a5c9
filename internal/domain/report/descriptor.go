package report

import (
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
)

// Descriptor is the contract every report implements: identity, column
// layout, request construction, and savings policy. Instances are
// registered once per batch and treated as immutable after discovery.
type Descriptor interface {
	// Name is the unique report key used for discovery, caching and
	// dependency references.
	Name() string
	// CommonName is the human-facing name; it is sheet-bounded before
	// rendering.
	CommonName() string
	Provider() entity.ProviderID
	Description() string

	// RequiredColumns is the ordered column layout every result of this
	// report conforms to.
	RequiredColumns() []string
	// Dependencies lists base report names whose fetched tables must be
	// available before this report builds its request.
	Dependencies() []string

	Enabled() bool
	// CacheUsable reports whether previously cached data is currently
	// trustworthy for this report. Returning false forces invalidation
	// and a live fetch on every run.
	CacheUsable() bool

	Chart() entity.ChartType
	DisplaySavings() bool

	// BuildRequest constructs the backend-specific request from the batch
	// scope and the tables of succeeded base reports.
	BuildRequest(in entity.BuildInput) (entity.ReportRequest, error)
	// MapRows reshapes raw backend rows into the required column layout.
	MapRows(raw entity.ResultTable) (entity.ResultTable, error)
}

// Base carries the static descriptor fields. Concrete reports embed it and
// implement BuildRequest plus, when the backend projection does not already
// match, MapRows.
type Base struct {
	ReportName     string
	ReportTitle    string
	ReportProvider entity.ProviderID
	ReportDesc     string
	Columns        []string
	DependsOn      []string
	Disabled       bool
	SkipCache      bool
	ChartHint      entity.ChartType
	ShowSavings    bool
}

func (b Base) Name() string                { return b.ReportName }
func (b Base) CommonName() string          { return b.ReportTitle }
func (b Base) Provider() entity.ProviderID { return b.ReportProvider }
func (b Base) Description() string         { return b.ReportDesc }
func (b Base) RequiredColumns() []string   { return b.Columns }
func (b Base) Dependencies() []string      { return b.DependsOn }
func (b Base) Enabled() bool               { return !b.Disabled }
func (b Base) CacheUsable() bool           { return !b.SkipCache }
func (b Base) Chart() entity.ChartType     { return b.ChartHint }
func (b Base) DisplaySavings() bool        { return b.ShowSavings }

// MapRows defaults to normalizing over the required columns.
func (b Base) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	return raw.Normalize(b.Columns), nil
}

// Package recommendation holds the report descriptors served by the
// resource-recommendation backend. The adapter already projects one row
// per resource with the top-ranked option; descriptors only rename the
// savings column into the declared layout.
package recommendation

import (
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
)

// Catalog returns the recommendation descriptors in registration order.
func Catalog() []report.Descriptor {
	return []report.Descriptor{
		newEC2Rightsizing(),
		newLambdaMemory(),
		newRDSRightsizing(),
	}
}

func resourceRequest(in entity.BuildInput, resource string) entity.ReportRequest {
	return entity.ReportRequest{Recommendation: &entity.RecommendationRequest{
		ResourceType: resource,
		Accounts:     in.Scope.Accounts,
		Regions:      in.Scope.Regions,
	}}
}

// ec2Rightsizing reports over- and under-provisioned instances with the
// top-ranked replacement type.
type ec2Rightsizing struct{ report.Base }

func newEC2Rightsizing() *ec2Rightsizing {
	return &ec2Rightsizing{Base: report.Base{
		ReportName:     "ec2-rightsizing",
		ReportTitle:    "EC2 Rightsizing",
		ReportProvider: entity.ProviderRecommendation,
		ReportDesc:     "Instance type recommendations with estimated monthly savings",
		Columns:        []string{"Region", "Instance ID", "Instance Name", "Current Type", "Platform", "Finding", "Recommended Type", "Migration Effort", entity.SavingsColumn},
		ShowSavings:    true,
	}}
}

func (d *ec2Rightsizing) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return resourceRequest(in, entity.ResourceEC2Instance), nil
}

func (d *ec2Rightsizing) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	return raw.Rename("Estimated Monthly Savings", entity.SavingsColumn).Normalize(d.Columns), nil
}

// lambdaMemory reports functions whose memory allocation should change.
type lambdaMemory struct{ report.Base }

func newLambdaMemory() *lambdaMemory {
	return &lambdaMemory{Base: report.Base{
		ReportName:     "lambda-memory",
		ReportTitle:    "Lambda Memory",
		ReportProvider: entity.ProviderRecommendation,
		ReportDesc:     "Function memory recommendations with estimated monthly savings",
		Columns:        []string{"Region", "Function Name", "Runtime", "Current Memory (MB)", "Finding", "Recommended Memory (MB)", entity.SavingsColumn},
		ShowSavings:    true,
	}}
}

func (d *lambdaMemory) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return resourceRequest(in, entity.ResourceLambdaFunction), nil
}

func (d *lambdaMemory) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	return raw.Rename("Estimated Monthly Savings", entity.SavingsColumn).Normalize(d.Columns), nil
}

// rdsRightsizing reports database instances with a cheaper or better
// fitting instance class.
type rdsRightsizing struct{ report.Base }

func newRDSRightsizing() *rdsRightsizing {
	return &rdsRightsizing{Base: report.Base{
		ReportName:     "rds-rightsizing",
		ReportTitle:    "RDS Rightsizing",
		ReportProvider: entity.ProviderRecommendation,
		ReportDesc:     "Database instance class recommendations with estimated monthly savings",
		Columns:        []string{"Region", "Database", "Engine", "Status", "Current Class", "Finding", "Recommended Class", entity.SavingsColumn},
		ShowSavings:    true,
	}}
}

func (d *rdsRightsizing) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return resourceRequest(in, entity.ResourceRDSDatabase), nil
}

func (d *rdsRightsizing) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	return raw.Rename("Estimated Monthly Savings", entity.SavingsColumn).Normalize(d.Columns), nil
}

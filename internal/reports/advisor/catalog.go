// Package advisor holds the report descriptors served by the advisory
// check backend. Each report maps one named Trusted Advisor check onto
// the required column layout.
package advisor

import (
	"fmt"
	"strings"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/report"
)

// An idle public IPv4 address bills at USD 0.005 per hour.
const eipHourlyCost = 0.005
const eipMonthlySavings = eipHourlyCost * 24 * 30

// Catalog returns the advisor descriptors in registration order.
func Catalog() []report.Descriptor {
	return []report.Descriptor{
		newUnassociatedEIPs(),
		newIdleLoadBalancers(),
	}
}

// cell returns the row value at idx, or empty when out of range.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// unassociatedEIPs reports Elastic IP addresses not attached to any
// resource, each billing the flat idle-address rate.
type unassociatedEIPs struct{ report.Base }

func newUnassociatedEIPs() *unassociatedEIPs {
	return &unassociatedEIPs{Base: report.Base{
		ReportName:     "unassociated-elastic-ips",
		ReportTitle:    "Unassociated Elastic IPs",
		ReportProvider: entity.ProviderAdvisor,
		ReportDesc:     "Elastic IP addresses not associated with a running resource",
		Columns:        []string{"Status", "Region", "IP Address", entity.SavingsColumn},
		ShowSavings:    true,
	}}
}

func (d *unassociatedEIPs) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return entity.ReportRequest{Advisor: &entity.AdvisorRequest{
		CheckName: "Unassociated Elastic IP Addresses",
	}}, nil
}

func (d *unassociatedEIPs) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	statusIdx := raw.Index("Status")
	regionIdx := raw.Index("Region")
	ipIdx := raw.Index("IP Address")
	if ipIdx < 0 {
		ipIdx = raw.Index("Resource ID")
	}

	out := entity.ResultTable{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([][]string, 0, len(raw.Rows)),
	}
	for _, row := range raw.Rows {
		out.Rows = append(out.Rows, []string{
			cell(row, statusIdx),
			cell(row, regionIdx),
			cell(row, ipIdx),
			fmt.Sprintf("%.2f", eipMonthlySavings),
		})
	}
	return out, nil
}

// idleLoadBalancers reports load balancers the check flagged as idle,
// with the savings figure the check itself estimates.
type idleLoadBalancers struct{ report.Base }

func newIdleLoadBalancers() *idleLoadBalancers {
	return &idleLoadBalancers{Base: report.Base{
		ReportName:     "idle-load-balancers",
		ReportTitle:    "Idle Load Balancers",
		ReportProvider: entity.ProviderAdvisor,
		ReportDesc:     "Load balancers with no healthy targets or negligible traffic",
		Columns:        []string{"Status", "Region", "Load Balancer", "Reason", entity.SavingsColumn},
		ShowSavings:    true,
	}}
}

func (d *idleLoadBalancers) BuildRequest(in entity.BuildInput) (entity.ReportRequest, error) {
	return entity.ReportRequest{Advisor: &entity.AdvisorRequest{
		CheckName: "Idle Load Balancers",
	}}, nil
}

func (d *idleLoadBalancers) MapRows(raw entity.ResultTable) (entity.ResultTable, error) {
	statusIdx := raw.Index("Status")
	regionIdx := raw.Index("Region")
	nameIdx := raw.Index("Load Balancer Name")
	if nameIdx < 0 {
		nameIdx = raw.Index("Resource ID")
	}
	reasonIdx := raw.Index("Reason")
	savingsIdx := raw.Index("Estimated Monthly Savings")

	out := entity.ResultTable{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([][]string, 0, len(raw.Rows)),
	}
	for _, row := range raw.Rows {
		savings := strings.TrimPrefix(cell(row, savingsIdx), "$")
		if savings == "" {
			savings = "0.00"
		}
		out.Rows = append(out.Rows, []string{
			cell(row, statusIdx),
			cell(row, regionIdx),
			cell(row, nameIdx),
			cell(row, reasonIdx),
			savings,
		})
	}
	return out, nil
}

package repository

import (
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
)

type ExportRepository interface {
	ExportToCSV(outcome *entity.BatchOutcome, filename, outputDir string) (string, error)
	ExportToJSON(outcome *entity.BatchOutcome, filename, outputDir string) (string, error)
	ExportToPDF(outcome *entity.BatchOutcome, filename, outputDir string) (string, error)
}

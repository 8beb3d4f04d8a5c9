package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/jung-kurt/gofpdf"
)

// maxPDFRows limita quantas linhas de cada relatório entram no PDF.
const maxPDFRows = 40

// ExportRepositoryImpl implementa o ExportRepository.
type ExportRepositoryImpl struct{}

// NewExportRepository cria uma nova implementação do ExportRepository.
func NewExportRepository() repository.ExportRepository {
	return &ExportRepositoryImpl{}
}

// ExportToCSV grava o lote em um único CSV: um bloco de resumo seguido
// de uma seção por relatório concluído.
func (r *ExportRepositoryImpl) ExportToCSV(outcome *entity.BatchOutcome, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "csv")
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Bloco de resumo do lote
	writer.Write([]string{"Batch ID", outcome.BatchID})
	writer.Write([]string{"Started", outcome.StartedAt.Format(time.RFC3339)})
	writer.Write([]string{"Finished", outcome.FinishedAt.Format(time.RFC3339)})
	writer.Write([]string{"Accounts", strings.Join(outcome.Scope.Accounts, ", ")})
	writer.Write([]string{"Regions", strings.Join(outcome.Scope.Regions, ", ")})
	writer.Write([]string{"Customer", outcome.Scope.Customer})
	writer.Write([]string{"Total Estimated Savings", fmt.Sprintf("$%.2f", outcome.TotalSavings)})
	writer.Write([]string{})

	// Uma seção por relatório concluído
	for _, run := range outcome.Completed {
		if run.Result == nil {
			continue
		}
		source := "live"
		if run.FromCache {
			source = "cache"
		}
		writer.Write([]string{"Report", entity.SheetName(run.Result.Name), string(run.Provider), source})
		writer.Write(run.Result.Table.Columns)
		for _, row := range run.Result.Table.Rows {
			// Remove quaisquer códigos ANSI que tenham “sobrado” em strings (por segurança)
			writer.Write(cleanRecord(row))
		}
		writer.Write([]string{})
	}

	// Relatórios reprovados ficam documentados no fim do arquivo
	if len(outcome.Failed) > 0 {
		writer.Write([]string{"Failed Reports"})
		writer.Write([]string{"Report", "Provider", "State", "Reason"})
		for _, run := range outcome.Failed {
			writer.Write([]string{
				run.Report,
				string(run.Provider),
				string(run.Execution.State),
				cleanRichTags(run.Execution.StateReason),
			})
		}
	}

	return filepath.Abs(outputFilename)
}

// ExportToJSON grava o lote completo como JSON indentado.
func (r *ExportRepositoryImpl) ExportToJSON(outcome *entity.BatchOutcome, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "json")
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(outcome); err != nil {
		return "", fmt.Errorf("error encoding JSON data: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// ExportToPDF grava o lote em PDF: uma página de resumo e uma página por
// relatório concluído.
func (r *ExportRepositoryImpl) ExportToPDF(outcome *entity.BatchOutcome, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "pdf")
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	headerColor := [3]int{40, 40, 40}
	headerTextColor := [3]int{255, 255, 255}
	sectionTitleColor := [3]int{0, 0, 0}
	bodyTextColor := [3]int{50, 50, 50}
	lineColor := [3]int{200, 200, 200}

	drawSection := func(title string, content string) {
		content = cleanRichTags(content)
		if strings.TrimSpace(content) == "" {
			return
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(sectionTitleColor[0], sectionTitleColor[1], sectionTitleColor[2])
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(7)

		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
		pdf.Ln(4)

		pdf.SetFont("Courier", "", 8)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.MultiCell(190, 4.5, tr(content), "", "L", false)
		pdf.Ln(8)
	}

	pageHeader := func(title, subtitle string) {
		pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
		pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 12, tr(fmt.Sprintf("  %s", title)), "", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		pdf.SetFillColor(240, 240, 240)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("  %s", subtitle)), "", 1, "L", true, 0, "")
		pdf.Ln(10)
	}

	pageFooter := func(page int) {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		footerText := fmt.Sprintf("Generated by AWS Cost Reports (Go) | %s", time.Now().Format("2006-01-02"))
		pdf.CellFormat(0, 10, tr(footerText), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Page %d", page)), "", 0, "R", false, 0, "")
	}

	// Página de resumo
	page := 1
	pdf.AddPage()
	pageHeader("AWS Cost Reports", fmt.Sprintf("Batch %s", outcome.BatchID))

	var summary strings.Builder
	summary.WriteString(fmt.Sprintf("Accounts: %s\n", strings.Join(outcome.Scope.Accounts, ", ")))
	summary.WriteString(fmt.Sprintf("Regions: %s\n", strings.Join(outcome.Scope.Regions, ", ")))
	if outcome.Scope.Customer != "" {
		summary.WriteString(fmt.Sprintf("Customer: %s\n", outcome.Scope.Customer))
	}
	summary.WriteString(fmt.Sprintf("Completed: %d   Failed: %d\n", len(outcome.Completed), len(outcome.Failed)))
	summary.WriteString(fmt.Sprintf("Total Estimated Savings: $%.2f\n", outcome.TotalSavings))
	drawSection("Batch Summary", summary.String())

	if len(outcome.Failed) > 0 {
		var failed strings.Builder
		for _, run := range outcome.Failed {
			failed.WriteString(fmt.Sprintf("%s (%s): %s\n", run.Report, run.Provider, run.Execution.StateReason))
		}
		drawSection("Failed Reports", failed.String())
	}
	pageFooter(page)

	// Uma página por relatório concluído
	for _, run := range outcome.Completed {
		if run.Result == nil {
			continue
		}
		page++
		pdf.AddPage()

		source := "live"
		if run.FromCache {
			source = "cache"
		}
		subtitle := fmt.Sprintf("Provider: %s  |  Source: %s  |  Rows: %d", run.Provider, source, len(run.Result.Table.Rows))
		pageHeader(entity.SheetName(run.Result.Name), subtitle)

		if run.Result.DisplaySavings {
			drawSection("Estimated Monthly Savings", fmt.Sprintf("$%.2f", run.Savings))
		}
		drawSection("Results", tableText(run.Result.Table))
		pageFooter(page)
	}

	if err := pdf.OutputFileAndClose(outputFilename); err != nil {
		return "", fmt.Errorf("error writing PDF file: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// tableText achata uma tabela em linhas de texto para o PDF.
func tableText(table entity.ResultTable) string {
	if table.Empty() {
		return "No rows."
	}

	var b strings.Builder
	b.WriteString(strings.Join(table.Columns, " | "))
	b.WriteString("\n")

	limit := len(table.Rows)
	if limit > maxPDFRows {
		limit = maxPDFRows
	}
	for i := 0; i < limit; i++ {
		b.WriteString(strings.Join(cleanRecord(table.Rows[i]), " | "))
		b.WriteString("\n")
	}
	if len(table.Rows) > limit {
		b.WriteString(fmt.Sprintf("... (+%d more rows)\n", len(table.Rows)-limit))
	}
	return b.String()
}

// cleanRecord limpa códigos de formatação de cada célula.
func cleanRecord(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = cleanRichTags(cell)
	}
	return out
}

// --- Funções Auxiliares ---

// generateFilename cria um nome de arquivo com timestamp e garante que o diretório de saída exista.
func generateFilename(base, dir, ext string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", base, timestamp, ext)
	return filepath.Join(dir, filename), nil
}

// Regex para limpar formatação pterm (rich tags) e sequências ANSI.
var richTagRegex = regexp.MustCompile(`\[/?([a-zA-Z]+|#[0-9a-fA-F]{6})\]`)
var ansiRegex = regexp.MustCompile(`\x1B\[[0-9;]*[A-Za-z]`)

// cleanRichTags remove tags de formatação do pterm e sequências ANSI.
func cleanRichTags(text string) string {
	text = richTagRegex.ReplaceAllString(text, "")
	text = ansiRegex.ReplaceAllString(text, "")
	return text
}

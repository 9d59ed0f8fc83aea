package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xuri/excelize/v2"

	"contractlens/internal/config"
	"contractlens/internal/models"
	"contractlens/internal/repositories"
	"contractlens/internal/services"
)

const sheetName = "Parties"

var headers = []string{
	"ID", "Document", "Status", "Case",
	"Party 1", "Party 1 Short Name", "Party 1 Role",
	"Party 2", "Party 2 Short Name", "Party 2 Role",
	"Emails", "Phones", "ABNs", "ACNs", "Analyzed At", "Error",
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default $CONTRACTLENS_CONFIG)")
	outPath := flag.String("o", "parties.xlsx", "Output workbook path")
	status := flag.String("status", "", "Only export documents with this status")
	search := flag.String("search", "", "Only export documents whose name or parties match")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	repo := repositories.NewDocumentRepository(pool)

	var docs []*models.ContractDocument
	params := repositories.ListParams{
		Status:     models.AnalysisStatus(*status),
		SearchText: *search,
		Limit:      500,
	}
	for {
		page, err := repo.ListDocuments(ctx, params)
		if err != nil {
			log.Fatalf("Failed to list documents: %v", err)
		}
		docs = append(docs, page.Items...)
		if !page.HasMore {
			break
		}
		params.Cursor = page.NextCursor
	}

	file, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *outPath, err)
	}
	if err := writeWorkbook(file, docs); err != nil {
		file.Close()
		log.Fatalf("Failed to write workbook: %v", err)
	}
	if err := file.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", *outPath, err)
	}

	log.Printf("✅ Exported %d documents to %s", len(docs), *outPath)
}

// writeWorkbook writes one row per document to an .xlsx workbook.
func writeWorkbook(w io.Writer, docs []*models.ContractDocument) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, doc := range docs {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		row := documentRow(doc)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", doc.ID, err)
		}
	}

	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 20)
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func documentRow(doc *models.ContractDocument) []any {
	var parties models.PartyPair
	if doc.Parties != nil {
		parties = *doc.Parties
	}
	matched := ""
	if doc.MatchedCase != nil {
		matched = fmt.Sprintf("%d", *doc.MatchedCase)
	}
	analyzedAt := ""
	if doc.AnalyzedAt != nil {
		analyzedAt = doc.AnalyzedAt.UTC().Format(time.RFC3339)
	}
	lastError := ""
	if doc.LastError != nil {
		lastError = *doc.LastError
	}
	joined := func(kind models.PersonalDataKind) string {
		return strings.Join(services.FindingTexts(doc.PersonalData, kind), "; ")
	}

	return []any{
		doc.ID.String(), doc.Name, string(doc.Status), matched,
		parties.Party1.FullName, parties.Party1.ShortName, parties.Party1.Role,
		parties.Party2.FullName, parties.Party2.ShortName, parties.Party2.Role,
		joined(models.PersonalDataEmail), joined(models.PersonalDataPhone),
		joined(models.PersonalDataABN), joined(models.PersonalDataACN),
		analyzedAt, lastError,
	}
}

package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

var exportFixture = []models.AnalysisResult{
	{CVName: "a.txt", Analysis: `[{"k":"v, with comma"}]`, ThreadID: "t-1", MessageID: "m-1"},
	{CVName: "b.docx", Analysis: "line one\nline two", ThreadID: "t-2", MessageID: "m-2"},
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	file, err := ExportResults(exportFixture, "csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.FileName != "cv_analysis_results.csv" || file.ContentType != "text/csv" {
		t.Fatalf("unexpected file metadata: %s %s", file.FileName, file.ContentType)
	}

	rows, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}

	header := []string{"CV Name", "Analysis", "Thread ID", "Message ID"}
	for i, h := range header {
		if rows[0][i] != h {
			t.Fatalf("header %d: expected %q, got %q", i, h, rows[0][i])
		}
	}
	if rows[1][1] != exportFixture[0].Analysis || rows[2][1] != exportFixture[1].Analysis {
		t.Fatalf("analysis text not preserved: %q / %q", rows[1][1], rows[2][1])
	}
	if rows[2][3] != "m-2" {
		t.Fatalf("expected message id m-2, got %q", rows[2][3])
	}
}

func TestExportCSVEmpty(t *testing.T) {
	t.Parallel()

	file, err := ExportResults(nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, _ := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}

func TestExportXLSX(t *testing.T) {
	t.Parallel()

	file, err := ExportResults(exportFixture, "XLSX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.FileName != "cv_analysis_results.xlsx" {
		t.Fatalf("unexpected file name %s", file.FileName)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows("Results")
	if err != nil {
		t.Fatalf("missing Results sheet: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "CV Name" || rows[2][0] != "b.docx" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	t.Parallel()

	if _, err := ExportResults(exportFixture, "pdf"); !errors.Is(err, ErrUnsupportedExportFormat) {
		t.Fatalf("expected ErrUnsupportedExportFormat, got %v", err)
	}
}

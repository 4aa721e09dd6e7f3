package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"

	exportBaseName = "cv_analysis_results"
	exportSheet    = "Results"
)

var ErrUnsupportedExportFormat = errors.New("unsupported export format")

var exportHeaders = []string{"CV Name", "Analysis", "Thread ID", "Message ID"}

// ExportFile is a rendered download.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportResults writes the session's results in the requested format.
func ExportResults(results []models.AnalysisResult, format string) (*ExportFile, error) {
	switch strings.ToLower(format) {
	case "", ExportFormatCSV:
		data, err := exportCSV(results)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			FileName:    exportBaseName + ".csv",
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatXLSX:
		data, err := exportXLSX(results)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			FileName:    exportBaseName + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExportFormat, format)
	}
}

func exportRow(r models.AnalysisResult) []string {
	return []string{r.CVName, r.Analysis, r.ThreadID, r.MessageID}
}

func exportCSV(results []models.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(exportRow(r)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

func exportXLSX(results []models.AnalysisResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for rowIdx, r := range results {
		for colIdx, v := range exportRow(r) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 28)
	_ = f.SetColWidth(exportSheet, "B", "B", 80)
	_ = f.SetColWidth(exportSheet, "C", "D", 38)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Table defines tabular export content, one section per detector output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderCSV encodes the tables as a single CSV document, sections separated
// by a blank line with the section title as its own row.
func RenderCSV(tables []Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("csv export requires at least one table")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, table := range tables {
		if len(table.Headers) == 0 {
			return nil, fmt.Errorf("table %q has no headers", table.Title)
		}
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return nil, fmt.Errorf("write csv separator: %w", err)
			}
		}
		if table.Title != "" {
			if err := writer.Write([]string{table.Title}); err != nil {
				return nil, fmt.Errorf("write csv title: %w", err)
			}
		}
		if err := writer.Write(table.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range table.Rows {
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF renders the tables into a landscape tabular PDF report.
func RenderPDF(title string, tables []Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("pdf export requires at least one table")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	for _, table := range tables {
		if len(table.Headers) == 0 {
			return nil, fmt.Errorf("table %q has no headers", table.Title)
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, table.Title, "", 1, "L", false, 0, "")

		colWidth := 277.0 / float64(len(table.Headers))
		pdf.SetFont("Arial", "B", 9)
		for _, header := range table.Headers {
			pdf.CellFormat(colWidth, 7, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		if len(table.Rows) == 0 {
			pdf.CellFormat(277, 6, "no entries", "1", 1, "C", false, 0, "")
		}
		for _, row := range table.Rows {
			for i := range table.Headers {
				var value string
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(colWidth, 6, value, "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
	sheetName     = "Production"
)

var exportHeader = []string{
	"Level", "Process", "Machine", "Date", "Job No", "Product",
	"Produced", "Meters", "Wastage", "Minutes", "Balance", "Troubleshoot Min", "Avg Speed", "Wastage %",
}

// flatten lays the tree out as table rows: each node's detail lines and children come
// before its subtotal line, and the grand total comes last.
func flatten(tree Tree) [][]string {
	out := make([][]string, 0)
	for _, p := range tree.Processes {
		for _, m := range p.Machines {
			for _, d := range m.Dates {
				day := d.Date.Format(time.DateOnly)
				for _, l := range d.Lines {
					out = append(out, []string{"row", p.Name, m.MachineCode, day, l.JobNumber, l.ProductName,
						formatDecimal(l.Produced), formatDecimal(l.Meters), formatDecimal(l.Wastage),
						formatDecimal(l.Minutes), formatDecimal(l.Balance), formatDecimal(l.Troubleshoot),
						"", formatDecimal(l.WastagePct)})
				}
				out = append(out, summaryLine("date", p.Name, m.MachineCode, day, "", d.Summary))
			}
			out = append(out, summaryLine("machine", p.Name, m.MachineCode, "", "", m.Summary))
		}
		out = append(out, summaryLine("process", p.Name, "", "", "", p.Summary))
	}
	for _, j := range tree.Jobs {
		out = append(out, summaryLine("job", "", "", "", j.JobNumber, j.Summary))
	}
	out = append(out, summaryLine("total", "", "", "", "", tree.Total))
	return out
}

func summaryLine(level, process, machine, day, job string, s Summary) []string {
	return []string{level, process, machine, day, job, "",
		formatDecimal(s.Produced), formatDecimal(s.Meters), formatDecimal(s.Wastage),
		formatDecimal(s.Minutes), formatDecimal(s.Balance), formatDecimal(s.Troubleshoot),
		formatDecimal(s.AvgSpeed), formatDecimal(s.WastagePct)}
}

func formatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// WriteCSV streams the report as CSV, preceded by a comment line describing the filter.
func WriteCSV(w io.Writer, f Filter, tree Tree) error {
	s := newCSVStreamer(w)
	if _, err := s.buf.WriteString(describe(f) + "\r\n"); err != nil {
		return err
	}
	if err := s.writeRow(exportHeader); err != nil {
		return err
	}
	for _, row := range flatten(tree) {
		if err := s.writeRow(row); err != nil {
			return err
		}
	}
	return s.Flush()
}

// WriteXLSX writes the report as a single-sheet workbook.
func WriteXLSX(w io.Writer, f Filter, tree Tree) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := book.SetCellValue(sheetName, "A1", describe(f)); err != nil {
		return err
	}
	headerStyle, err := book.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := book.SetSheetRow(sheetName, "A2", &exportHeader); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 2)
	if err := book.SetCellStyle(sheetName, "A2", last, headerStyle); err != nil {
		return err
	}
	for i, row := range flatten(tree) {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for c, v := range row {
			values[c] = v
			if c >= 6 && v != "" {
				if n, err := decimal.NewFromString(v); err == nil {
					values[c] = n.InexactFloat64()
				}
			}
		}
		if err := book.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}
	if err := book.SetColWidth(sheetName, "A", "F", 16); err != nil {
		return err
	}
	return book.Write(w)
}

func describe(f Filter) string {
	return fmt.Sprintf("# Production report %s to %s, type %s", f.Start.Format(time.DateOnly), f.End.Format(time.DateOnly), f.Granularity)
}

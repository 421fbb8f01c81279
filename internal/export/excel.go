// Package export renders the signed-in user's data as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"homescout/internal/model"
)

var bookingColumns = []string{"Booking ID", "Property", "Check-in", "Check-out", "Nights", "Total", "Status", "Created"}

// sheetWriter wraps an excelize file with a cursor so callers append
// headers and rows without tracking coordinates.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

func (w *sheetWriter) addSheet(name string) error {
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}
	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	cells := make([]any, len(columns))
	for i, c := range columns {
		cells[i] = c
	}
	if err := w.writeCells(cells); err != nil {
		return err
	}
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}
	w.currentRow++
	return nil
}

func (w *sheetWriter) writeRow(row []any) error {
	if err := w.writeCells(row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *sheetWriter) writeCells(vals []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}

// Bookings writes the bookings grouped by status, one sheet per status,
// and streams the workbook to wr.
func Bookings(bookings []model.Booking, wr io.Writer) error {
	w := newSheetWriter()
	defer w.file.Close()

	byStatus := make(map[string][]model.Booking)
	for _, b := range bookings {
		status := b.Status
		if status == "" {
			status = "unknown"
		}
		byStatus[status] = append(byStatus[status], b)
	}

	statuses := make([]string, 0, len(byStatus))
	for s := range byStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	if len(statuses) == 0 {
		statuses = []string{"bookings"}
		byStatus["bookings"] = nil
	}

	for _, status := range statuses {
		if err := w.addSheet(titleCase(status)); err != nil {
			return err
		}
		if err := w.writeHeader(bookingColumns); err != nil {
			return err
		}
		for _, b := range byStatus[status] {
			row := []any{
				b.ID,
				b.Property,
				b.StartDate,
				b.EndDate,
				b.Nights,
				b.Total,
				b.Status,
				b.CreatedAt.Format("2006-01-02 15:04"),
			}
			if err := w.writeRow(row); err != nil {
				return err
			}
		}
	}

	if err := w.file.Write(wr); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

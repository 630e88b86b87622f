package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"leaveportal/internal/domain/leave"
)

var applicationHeader = []string{
	"Employee Name", "Leave Type", "Start Date", "End Date", "Days",
	"Status", "Submitted", "Reviewed", "Reviewer Comment",
}

var balanceHeader = []string{
	"Leave Type", "Year", "Total Days", "Used Days", "Pending Days",
	"Available Days", "Carryover Days",
}

var (
	applicationNumeric = map[int]bool{4: true}
	balanceNumeric     = map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true}
)

func applicationRow(app leave.Application) []string {
	return []string{
		app.UserName,
		app.LeaveTypeName,
		leave.FormatDate(app.StartDate),
		leave.FormatDate(app.EndDate),
		app.NumberOfDays.String(),
		string(app.Status),
		formatTime(app.CreatedAt),
		formatTime(app.ReviewedAt),
		app.ReviewerComment,
	}
}

func balanceRow(b leave.Balance) []string {
	year := ""
	if b.Year > 0 {
		year = strconv.Itoa(b.Year)
	}
	return []string{
		b.LeaveTypeName,
		year,
		b.TotalAllocated.String(),
		b.UsedDays.String(),
		b.PendingDays.String(),
		optionalDays(b.AvailableDays),
		b.CarriedOverDays.String(),
	}
}

// optionalDays leaves the cell empty when the server sent no figure.
func optionalDays(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

// ApplicationsCSV writes one row per application.
func ApplicationsCSV(w io.Writer, apps []leave.Application) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(applicationHeader); err != nil {
		return err
	}
	for _, app := range apps {
		if err := writer.Write(applicationRow(app)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

const (
	applicationsSheet = "Applications"
	balancesSheet     = "Balances"
)

// ApplicationsXLSX writes a workbook with the applications and, when
// balances is non-empty, a second sheet with the balances.
func ApplicationsXLSX(w io.Writer, apps []leave.Application, balances []leave.Balance) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", applicationsSheet); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, applicationRow(app))
	}
	if err := writeSheet(f, applicationsSheet, applicationHeader, rows, applicationNumeric, headerStyle); err != nil {
		return err
	}

	if len(balances) > 0 {
		if _, err := f.NewSheet(balancesSheet); err != nil {
			return err
		}
		rows = rows[:0]
		for _, b := range balances {
			rows = append(rows, balanceRow(b))
		}
		if err := writeSheet(f, balancesSheet, balanceHeader, rows, balanceNumeric, headerStyle); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, numeric map[int]bool, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", toCells(header, nil)); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, toCells(row, numeric)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// toCells keeps the listed columns numeric in the workbook.
func toCells(values []string, numeric map[int]bool) *[]any {
	cells := make([]any, len(values))
	for i, v := range values {
		if numeric[i] {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				cells[i] = n
				continue
			}
		}
		cells[i] = v
	}
	return &cells
}

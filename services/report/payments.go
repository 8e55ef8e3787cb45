// Package reportsvc renders billing data as spreadsheets.
package reportsvc

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
)

const PaymentsSheet = "Payments"

// PaymentColumns is the header row of the payments export. Order is stable.
var PaymentColumns = []string{
	"ID",
	"Student Code",
	"Student",
	"Type",
	"Amount",
	"Currency",
	"Due Date",
	"Status",
	"Paid Date",
	"Method",
	"Reference",
	"Notes",
}

var columnWidths = []struct {
	start, end string
	width      float64
}{
	{"A", "A", 38},
	{"B", "C", 22},
	{"L", "L", 40},
}

// WritePaymentsXLSX writes `details` as a single-sheet workbook to w.
func WritePaymentsXLSX(w io.Writer, details []billing.PaymentDetail, currency string) error {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", PaymentsSheet)

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	last, _ := excelize.CoordinatesToCellName(len(PaymentColumns), 1)
	if err = f.SetCellStyle(PaymentsSheet, "A1", last, style); err != nil {
		return errors.Wrap(err, "styling header")
	}
	for i, header := range PaymentColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(PaymentsSheet, cell, header); err != nil {
			return errors.Wrap(err, "writing header")
		}
	}

	for i, pmt := range details {
		row := i + 2
		status := pmt.DisplayStatus
		if status == "" {
			status = pmt.Status
		}
		var paidDate string
		if pmt.PaidDate.Valid {
			paidDate = pmt.PaidDate.Time.UTC().Format(core.DateLayout)
		}
		amount, _ := pmt.Amount.Float64()

		values := []interface{}{
			pmt.ID,
			pmt.StudentCode,
			pmt.StudentName,
			string(pmt.PaymentType),
			amount,
			currency,
			pmt.DueDate.String(),
			string(status),
			paidDate,
			pmt.Method.String,
			pmt.Reference.String,
			pmt.Notes.String,
		}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(PaymentsSheet, cell, val); err != nil {
				return errors.Wrap(err, fmt.Sprintf("writing row %d", row))
			}
		}
	}

	for _, cw := range columnWidths {
		if err = f.SetColWidth(PaymentsSheet, cw.start, cw.end, cw.width); err != nil {
			return errors.Wrap(err, fmt.Sprintf("sizing columns %s:%s", cw.start, cw.end))
		}
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

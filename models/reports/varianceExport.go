package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ikelabs/counts_backend/models"
)

// WriteVarianceExcel renders a session variance report as a spreadsheet for
// the back office. Row order matches the report: biggest discrepancy first.
func WriteVarianceExcel(report *models.VarianceReport, w io.Writer) error {

	f := excelize.NewFile()
	sheetName := "Variance"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headings := []string{"SKU", "Product", "Brand", "Category", "Subcategory",
		"Counted", "Baseline", "Movements", "Expected", "Variance"}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	for rowIdx, item := range report.Items {
		values := []interface{}{item.Sku, item.ProductName, item.Brand,
			item.Category, item.Subcategory,
			item.CountedQty, item.BaselineQty, item.MovementDelta,
			item.ExpectedQty, item.Variance}
		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			f.SetCellValue(sheetName, cell, v)
		}
	}

	// totals footer
	footerRow := len(report.Items) + 3
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", footerRow), "Total SKUs")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", footerRow), report.TotalSkus)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", footerRow+1), "Total |Variance|")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", footerRow+1), report.TotalVariance)

	return f.Write(w)
}

// Package export writes the flat sales snapshot used for manual inspection.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SalesRow is one exported line of the sales snapshot.
type SalesRow struct {
	Date             string
	Country          string
	AverageUnitPrice string
	OrderItemCount   int
	UnitCount        int
	TotalSales       string
	Currency         string
}

var headers = []string{
	"Date", "Average Unit Price", "Order Item Count", "Unit Count",
	"Total Sales", "Currency", "Country",
}

// WriteSalesSnapshot writes all fetched sales rows to an xlsx file at path.
// Best effort side-channel: callers log failures and move on.
func WriteSalesSnapshot(path string, rows []SalesRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.Date, row.AverageUnitPrice, row.OrderItemCount, row.UnitCount,
			row.TotalSales, row.Currency, row.Country,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

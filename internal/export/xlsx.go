package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tripvera/internal/models"

	"github.com/xuri/excelize/v2"
)

var reservationHeaders = []string{
	"ID", "Activity", "Date", "Start", "End", "Head Count", "Total Price", "Status", "Created At",
}

// ReservationRow pairs a reservation with its activity title for export.
type ReservationRow struct {
	Reservation models.Reservation
	Title       string
}

// WriteReservationsXLSX writes an Excel workbook listing the reservations
// and returns the file path.
func WriteReservationsXLSX(rows []ReservationRow, exportPath string) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(exportPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Reservations"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for col, header := range reservationHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, row := range rows {
		r := row.Reservation
		values := []interface{}{
			r.ID,
			row.Title,
			r.Date,
			r.StartTime,
			r.EndTime,
			r.HeadCount,
			r.TotalPrice,
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 10)
	_ = f.SetColWidth(sheetName, "B", "B", 30)
	_ = f.SetColWidth(sheetName, "C", "I", 16)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("reservations_%s.xlsx", time.Now().Format("2006-01-02"))
	filePath := filepath.Join(exportPath, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	return filePath, nil
}

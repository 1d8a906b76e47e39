package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coworking/internal/booking"
	"coworking/internal/models"
	"coworking/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	OccupancySheet    = "Occupancy"
	ReservationsSheet = "Reservations"
)

var reservationHeaders = []string{"Date", "Space", "Duration", "Start", "Hours", "Add-ons", "Booker", "Total", "ID", "Created"}

// Exporter renders reservations of a date range into an xlsx workbook.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// Write renders the workbook to w.
func (e *Exporter) Write(w io.Writer, from, to time.Time, spaces []models.Space, reservations []booking.Reservation) error {
	f, err := e.build(from, to, spaces, reservations)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// Save writes the workbook into the export directory and returns its path.
func (e *Exporter) Save(from, to time.Time, spaces []models.Space, reservations []booking.Reservation) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.build(from, to, spaces, reservations)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(e.dir, FileName(from, to))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("reservations", len(reservations)).Msg("Excel file created")
	return filePath, nil
}

func FileName(from, to time.Time) string {
	return fmt.Sprintf("reservations_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

func (e *Exporter) build(from, to time.Time, spaces []models.Space, reservations []booking.Reservation) (*excelize.File, error) {
	from, to = booking.DayOf(from), booking.DayOf(to)
	if to.Before(from) {
		return nil, fmt.Errorf("export range ends before it starts")
	}

	f := excelize.NewFile()

	index, err := f.NewSheet(OccupancySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	if _, err := f.NewSheet(ReservationsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	if err := writeOccupancy(f, from, to, spaces, reservations); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeReservations(f, reservations); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// writeOccupancy lays out spaces as rows and dates as columns; each cell
// holds the number of occupied hours.
func writeOccupancy(f *excelize.File, from, to time.Time, spaces []models.Space, reservations []booking.Reservation) error {
	sheet := OccupancySheet
	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Period: %s - %s", from.Format(models.DateLayout), to.Format(models.DateLayout)))

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	spaceStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	fullStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	partialStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	freeStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	col := 2
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheet, cell, d.Format("02.01"))
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
		col++
	}
	lastCol := col - 1

	for i, space := range spaces {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheet, cell, fmt.Sprintf("%s (%s)", space.Name, space.Category))
		_ = f.SetCellStyle(sheet, cell, cell, spaceStyle)

		col := 2
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			occupied := booking.OccupiedHours(space.ID, d, reservations)
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, fmt.Sprintf("%d/%d", occupied.Len(), booking.HoursPerDay))

			style := freeStyle
			switch {
			case occupied.IsFull():
				style = fullStyle
			case !occupied.IsEmpty():
				style = partialStyle
			}
			_ = f.SetCellStyle(sheet, cell, cell, style)
			col++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 30)
	if lastCol >= 2 {
		first, _ := excelize.ColumnNumberToName(2)
		last, _ := excelize.ColumnNumberToName(lastCol)
		_ = f.SetColWidth(sheet, first, last, 10)
		lastName, _ := excelize.CoordinatesToCellName(lastCol, 1)
		_ = f.MergeCell(sheet, "A1", lastName)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	return nil
}

func writeReservations(f *excelize.File, reservations []booking.Reservation) error {
	sheet := ReservationsSheet

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	for i, h := range reservationHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(reservationHeaders), 1)
	_ = f.SetCellStyle(sheet, "A1", lastHeader, headerStyle)

	for i := range reservations {
		r := &reservations[i]
		start, hours := "", ""
		if r.Duration == booking.Hourly {
			start = fmt.Sprintf("%02d:00", r.StartHour)
			hours = fmt.Sprintf("%d", r.HourCount)
		}

		values := []interface{}{
			r.Date.Format(models.DateLayout),
			r.SpaceName,
			string(r.Duration),
			start,
			hours,
			strings.Join(r.Resources, ", "),
			r.BookerName,
			pricing.Round(r.TotalPrice),
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("error writing reservation row: %w", err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 25)
	_ = f.SetColWidth(sheet, "F", "G", 25)
	_ = f.SetColWidth(sheet, "I", "I", 38)
	return nil
}

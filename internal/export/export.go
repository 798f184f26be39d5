// Package export renders bookings for people outside the CLI: an XLSX sheet
// of the booking list and a PDF receipt per booking.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"venuebook/internal/models"
	"venuebook/internal/service"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
	rupeeFormat   = `"₹"#,##,##0`
)

var bookingHeaders = []string{
	"Booking ID", "Venue", "Start", "End", "Days", "Status",
	"Total", "Advance", "Balance Due", "Advance Paid", "Next Action", "Created",
}

type Exporter struct {
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger, now: time.Now}
}

// BookingsFile writes the booking list into a new XLSX file in the export
// directory and returns its path.
func (e *Exporter) BookingsFile(bookings []models.Booking) (string, error) {
	// Create the export directory if it does not exist
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.buildWorkbook(bookings)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(e.dir, fmt.Sprintf("bookings_%s.xlsx", e.now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", path).Int("bookings", len(bookings)).Msg("Excel file created")
	return path, nil
}

// WriteBookings streams the workbook to w.
func (e *Exporter) WriteBookings(w io.Writer, bookings []models.Booking) error {
	f, err := e.buildWorkbook(bookings)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func (e *Exporter) buildWorkbook(bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	if err := writeBookingRows(f, bookings); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, bookings, e.now()); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeBookingRows(f *excelize.File, bookings []models.Booking) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}
	numFmt := rupeeFormat
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("error creating money style: %w", err)
	}
	cancelledStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("error creating status style: %w", err)
	}

	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingHeaders))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", headerStyle)

	for i := range bookings {
		b := &bookings[i]
		row := i + 2
		view := service.Present(b)
		values := []interface{}{
			b.ID,
			view.Venue,
			view.StartDate,
			view.EndDate,
			view.Days,
			view.Status,
			b.TotalPrice,
			b.AdvanceAmount,
			b.BalanceDue,
			yesNo(b.AdvancePaid),
			service.ActionLabel(view.PrimaryAction),
			formatCreated(b.CreatedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}

		from, _ := excelize.CoordinatesToCellName(7, row)
		to, _ := excelize.CoordinatesToCellName(9, row)
		_ = f.SetCellStyle(bookingsSheet, from, to, moneyStyle)
		if b.Status.IsCancelled() {
			status, _ := excelize.CoordinatesToCellName(6, row)
			_ = f.SetCellStyle(bookingsSheet, status, status, cancelledStyle)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 28)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 30)
	_ = f.SetColWidth(bookingsSheet, "C", lastCol, 16)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if len(bookings) > 0 {
		_ = f.AutoFilter(bookingsSheet, fmt.Sprintf("A1:%s%d", lastCol, len(bookings)+1), nil)
	}
	return nil
}

type statusTotals struct {
	count       int
	total       float64
	outstanding float64
}

func writeSummary(f *excelize.File, bookings []models.Booking, generated time.Time) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	totals := make(map[models.BookingStatus]*statusTotals)
	for i := range bookings {
		b := &bookings[i]
		t, ok := totals[b.Status]
		if !ok {
			t = &statusTotals{}
			totals[b.Status] = t
		}
		t.count++
		t.total += b.TotalPrice
		if !b.Status.IsCancelled() {
			t.outstanding += b.BalanceDue
		}
	}

	statuses := make([]models.BookingStatus, 0, len(totals))
	for st := range totals {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })

	_ = f.SetCellValue(summarySheet, "A1", "Generated "+generated.Format("02.01.2006 15:04"))
	_ = f.SetSheetRow(summarySheet, "A2", &[]interface{}{"Status", "Bookings", "Total Value", "Outstanding Balance"})

	row := 3
	for _, st := range statuses {
		t := totals[st]
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetSheetRow(summarySheet, cell, &[]interface{}{service.StatusLabel(st), t.count, t.total, t.outstanding})
		row++
	}
	_ = f.SetColWidth(summarySheet, "A", "D", 22)
	return nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006 15:04")
}

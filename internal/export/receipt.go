package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"venuebook/internal/models"
	"venuebook/internal/service"

	"github.com/phpdave11/gofpdf"
)

// Receipt renders a one-page PDF receipt for the booking. sessions is the
// local payment journal for it and may be empty.
func (e *Exporter) Receipt(b *models.Booking, sessions []models.JournalEntry) ([]byte, error) {
	if b == nil || b.ID == "" {
		return nil, fmt.Errorf("receipt: booking is required")
	}
	view := service.Present(b)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking ID : " + b.ID,
		"Venue      : " + safe(view.Venue, "-"),
		fmt.Sprintf("Dates      : %s to %s (%d day(s))", view.StartDate, view.EndDate, view.Days),
		"Status     : " + view.Status,
		"Issued     : " + e.now().Format("2006-01-02 15:04"),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Amounts")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	amounts := [][2]string{
		{"Total price", pdfAmount(b.TotalPrice)},
		{"Advance (20%)", pdfAmount(b.AdvanceAmount) + paidMark(b.AdvancePaid)},
		{"Balance due", pdfAmount(b.BalanceDue)},
	}
	for _, a := range amounts {
		pdf.CellFormat(60, 7, a[0], "", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, a[1], "", 1, "R", false, 0, "")
	}

	if len(sessions) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Payments")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, s := range sessions {
			payment := "-"
			if s.PaymentID != nil {
				payment = *s.PaymentID
			}
			pdf.Cell(0, 6, fmt.Sprintf("%s  %-7s  %-7s  %s  %s",
				s.CreatedAt.Format("2006-01-02 15:04"), s.Phase, s.Status,
				pdfAmount(float64(s.AmountMinor)/100), payment))
			pdf.Ln(6)
		}
	}

	if b.Status.IsCancelled() {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, service.CancelNotice, "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// ReceiptFile writes the receipt into the export directory.
func (e *Exporter) ReceiptFile(b *models.Booking, sessions []models.JournalEntry) (string, error) {
	data, err := e.Receipt(b, sessions)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("receipt_%s.pdf", b.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("error saving receipt: %w", err)
	}
	e.logger.Info().Str("file_path", path).Str("booking_id", b.ID).Msg("receipt created")
	return path, nil
}

// pdfAmount spells the rupee sign out: the core PDF fonts have no glyph for it.
func pdfAmount(amount float64) string {
	return strings.Replace(models.FormatINR(amount), "₹", "Rs. ", 1)
}

func paidMark(paid bool) string {
	if paid {
		return " (paid)"
	}
	return ""
}

func safe(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

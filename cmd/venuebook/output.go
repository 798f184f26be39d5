package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"venuebook/internal/models"
	"venuebook/internal/service"
)

func printQuote(w io.Writer, venue *models.Venue, q models.Quote) {
	fmt.Fprintf(w, "%s\n", venue.Name)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Dates:\t%s to %s (%d day(s))\n", q.StartDate.Format(models.DateLayout), q.EndDate.Format(models.DateLayout), q.Days)
	fmt.Fprintf(tw, "Price per day:\t%s\n", models.FormatINR(q.PricePerDay))
	fmt.Fprintf(tw, "Total:\t%s\n", models.FormatINR(q.TotalPrice))
	fmt.Fprintf(tw, "Advance now:\t%s\n", models.FormatINR(q.AdvanceAmount))
	fmt.Fprintf(tw, "Balance later:\t%s\n", models.FormatINR(q.BalanceDue))
	_ = tw.Flush()
}

func printBookings(w io.Writer, bookings []models.Booking) {
	if len(bookings) == 0 {
		fmt.Fprintln(w, "No bookings yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVENUE\tDATES\tSTATUS\tTOTAL\tBALANCE\tNEXT")
	for i := range bookings {
		v := service.Present(&bookings[i])
		fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Venue, v.StartDate, v.EndDate, v.Status, v.Total, v.Balance, service.ActionLabel(v.PrimaryAction))
	}
	_ = tw.Flush()
}

func printBooking(w io.Writer, b *models.Booking) {
	v := service.Present(b)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Booking:\t%s\n", v.ID)
	fmt.Fprintf(tw, "Venue:\t%s\n", v.Venue)
	fmt.Fprintf(tw, "Dates:\t%s to %s (%d day(s))\n", v.StartDate, v.EndDate, v.Days)
	fmt.Fprintf(tw, "Status:\t%s\n", v.Status)
	fmt.Fprintf(tw, "Total:\t%s\n", v.Total)
	advance := v.Advance
	if v.AdvancePaid {
		advance += " (paid)"
	}
	fmt.Fprintf(tw, "Advance:\t%s\n", advance)
	fmt.Fprintf(tw, "Balance due:\t%s\n", v.Balance)

	labels := make([]string, 0, len(v.Actions))
	for _, act := range v.Actions {
		if label := service.ActionLabel(act); label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) > 0 {
		fmt.Fprintf(tw, "Actions:\t%s\n", strings.Join(labels, ", "))
	}
	_ = tw.Flush()
}

func printResult(w io.Writer, r *models.PaymentResult) {
	switch r.Status {
	case models.PaymentSuccess:
		fmt.Fprintf(w, "\nPayment successful (%s).\n", r.PaymentID)
	default:
		fmt.Fprintf(w, "\nPayment %s.\n", r.Status)
	}
	if r.Message != "" {
		fmt.Fprintln(w, r.Message)
	}
	if r.Booking != nil {
		fmt.Fprintln(w)
		printBooking(w, r.Booking)
	}
}

func printJournal(w io.Writer, entries []models.JournalEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No payment sessions recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tBOOKING\tPHASE\tORDER\tAMOUNT\tSTATUS\tPAYMENT\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.BookingID, e.Phase, e.OrderID,
			models.FormatINR(float64(e.AmountMinor)/100),
			e.Status, deref(e.PaymentID), deref(e.LastError))
	}
	_ = tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

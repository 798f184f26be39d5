package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"venuebook/internal/domain"
	"venuebook/internal/models"
	"venuebook/internal/service"
)

var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{"quote", "price a stay: -venue ID -start DATE -end DATE", (*app).quote},
	{"book", "create a booking and pay the advance: -venue ID -start DATE -end DATE [-pay=false]", (*app).book},
	{"pay", "pay for a booking: -booking ID [-phase advance|balance]", (*app).pay},
	{"list", "list your bookings", (*app).list},
	{"show", "show one booking: -booking ID", (*app).show},
	{"cancel", "cancel a booking: -booking ID [-yes]", (*app).cancel},
	{"history", "local payment sessions: [-booking ID] [-limit N]", (*app).history},
	{"export", "write the booking list to an XLSX file", (*app).exportBookings},
	{"receipt", "write a PDF receipt: -booking ID", (*app).receipt},
	{"backup", "snapshot the payment journal: [-watch]", (*app).backupJournal},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: venuebook <command> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.summary)
	}
	_ = tw.Flush()
	fmt.Fprintln(w, "\nDates are YYYY-MM-DD. CONFIG_PATH selects the config file.")
}

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	for _, c := range commands {
		if c.name == name {
			return c.run(a, ctx, args)
		}
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	usage(os.Stderr)
	return errUsage
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// parseDate reads a calendar day in the booking time zone. Empty input is
// the zero time so that validation reports the missing field.
func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(models.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: field, Msg: "must be a date like 2024-01-31"}
	}
	return t, nil
}

func (a *app) stayFlags(fs *flag.FlagSet) (venue, start, end *string) {
	return fs.String("venue", "", "venue id"),
		fs.String("start", "", "first day, YYYY-MM-DD"),
		fs.String("end", "", "last day, YYYY-MM-DD")
}

func (a *app) parseStay(start, end string) (time.Time, time.Time, error) {
	loc := a.cfg.Booking.Location()
	from, err := parseDate("start_date", start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate("end_date", end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (a *app) quote(ctx context.Context, args []string) error {
	fs := newFlagSet("quote")
	venueID, start, end := a.stayFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	from, to, err := a.parseStay(*start, *end)
	if err != nil {
		return err
	}

	venue, q, err := a.bookings.QuoteVenue(ctx, a.session, *venueID, from, to)
	if err != nil {
		return err
	}
	printQuote(a.out, venue, q)
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := newFlagSet("book")
	venueID, start, end := a.stayFlags(fs)
	pay := fs.Bool("pay", true, "open the advance payment right away")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	from, to, err := a.parseStay(*start, *end)
	if err != nil {
		return err
	}

	venue, q, err := a.bookings.QuoteVenue(ctx, a.session, *venueID, from, to)
	if err != nil {
		return err
	}
	printQuote(a.out, venue, q)

	booking, err := a.bookings.CreateIntent(ctx, a.session, venue, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\nBooking %s created (%s).\n", booking.ID, service.StatusLabel(booking.Status))
	if !*pay {
		fmt.Fprintf(a.out, "Pay the advance later with: venuebook pay -booking %s\n", booking.ID)
		return nil
	}
	return a.startPayment(ctx, booking.ID, models.PhaseAdvance)
}

func (a *app) pay(ctx context.Context, args []string) error {
	fs := newFlagSet("pay")
	bookingID := fs.String("booking", "", "booking id")
	phase := fs.String("phase", string(models.PhaseAdvance), "advance or balance")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return a.startPayment(ctx, *bookingID, models.PaymentPhase(*phase))
}

func (a *app) startPayment(ctx context.Context, bookingID string, phase models.PaymentPhase) error {
	result, err := a.payments.Start(ctx, a.session, bookingID, phase)
	if result != nil {
		printResult(a.out, result)
	}
	return err
}

func (a *app) list(ctx context.Context, args []string) error {
	if err := parseFlags(newFlagSet("list"), args); err != nil {
		return err
	}
	bookings, err := a.bookings.ListBookings(ctx, a.session)
	if err != nil {
		return err
	}
	printBookings(a.out, bookings)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	fs := newFlagSet("show")
	bookingID := fs.String("booking", "", "booking id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	booking, err := a.bookings.GetBooking(ctx, a.session, *bookingID)
	if err != nil {
		return err
	}
	printBooking(a.out, booking)

	if a.slots != nil {
		owner, err := a.slots.SlotOwner(ctx, booking.ID)
		if err != nil {
			a.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("read checkout slot")
		} else if owner != "" {
			fmt.Fprintln(a.out, "A payment for this booking is in progress in another window.")
		}
	}
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := newFlagSet("cancel")
	bookingID := fs.String("booking", "", "booking id")
	yes := fs.Bool("yes", false, "acknowledge that the advance is not refunded")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	booking, err := a.bookings.GetBooking(ctx, a.session, *bookingID)
	if err != nil {
		return err
	}
	if !service.CanCancel(booking) {
		return fmt.Errorf("booking %s: %w", booking.ID, domain.ErrCancelNotAllowed)
	}

	acknowledged := *yes
	if !acknowledged {
		fmt.Fprintln(a.out, service.CancelNotice)
		acknowledged = confirm(os.Stdin, a.out, "Type 'yes' to cancel the booking: ")
	}

	bookings, err := a.bookings.Cancel(ctx, a.session, booking, acknowledged)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Booking %s cancelled.\n\n", booking.ID)
	printBookings(a.out, bookings)
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := newFlagSet("history")
	bookingID := fs.String("booking", "", "booking id; all bookings when empty")
	limit := fs.Int("limit", 20, "sessions to show when no booking is given")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		entries []models.JournalEntry
		err     error
	)
	if *bookingID != "" {
		entries, err = a.payments.History(ctx, *bookingID)
	} else {
		entries, err = a.db.RecentSessions(ctx, *limit)
	}
	if err != nil {
		return err
	}
	printJournal(a.out, entries)
	return nil
}

func (a *app) exportBookings(ctx context.Context, args []string) error {
	if err := parseFlags(newFlagSet("export"), args); err != nil {
		return err
	}
	bookings, err := a.bookings.ListBookings(ctx, a.session)
	if err != nil {
		return err
	}
	path, err := a.exporter.BookingsFile(bookings)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d booking(s) to %s\n", len(bookings), path)
	return nil
}

func (a *app) receipt(ctx context.Context, args []string) error {
	fs := newFlagSet("receipt")
	bookingID := fs.String("booking", "", "booking id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	booking, err := a.bookings.GetBooking(ctx, a.session, *bookingID)
	if err != nil {
		return err
	}
	sessions, err := a.payments.History(ctx, booking.ID)
	if err != nil {
		a.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("receipt without payment history")
	}
	path, err := a.exporter.ReceiptFile(booking, sessions)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Receipt written to %s\n", path)
	return nil
}

func (a *app) backupJournal(ctx context.Context, args []string) error {
	fs := newFlagSet("backup")
	watch := fs.Bool("watch", false, "keep running and snapshot on the configured schedule")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *watch {
		a.backup.Run(ctx)
		return nil
	}
	path, err := a.backup.Snapshot(ctx)
	if err != nil {
		return err
	}
	removed := a.backup.Prune()
	fmt.Fprintf(a.out, "Journal snapshot written to %s (%d old snapshot(s) removed)\n", path, removed)
	return nil
}

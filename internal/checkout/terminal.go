package checkout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"venuebook/internal/models"
)

// TerminalOverlay is a text checkout for the CLI. It prints the order and
// reads one line:
//
//	<payment_id> <signature>   payment succeeded
//	fail <description>         payment failed at the gateway
//	cancel (or EOF)            overlay dismissed
type TerminalOverlay struct {
	opts Options
	in   io.Reader
	out  io.Writer

	mu     sync.Mutex
	closed bool
}

// NewTerminalConstructor returns a Constructor producing terminal overlays.
func NewTerminalConstructor(in io.Reader, out io.Writer) Constructor {
	return func(opts Options) (Overlay, error) {
		return &TerminalOverlay{opts: opts, in: in, out: out}, nil
	}
}

func (o *TerminalOverlay) Open(ctx context.Context) error {
	fmt.Fprintf(o.out, "\n== %s ==\n", nonEmpty(o.opts.Name, "Checkout"))
	if o.opts.Description != "" {
		fmt.Fprintln(o.out, o.opts.Description)
	}
	fmt.Fprintf(o.out, "Order:  %s\nAmount: %s (%d %s minor units)\n",
		o.opts.OrderID, models.FormatINR(float64(o.opts.Amount)/100), o.opts.Amount, o.opts.Currency)
	fmt.Fprintln(o.out, "Enter '<payment_id> <signature>', 'fail <reason>' or 'cancel':")

	go o.read()
	return nil
}

func (o *TerminalOverlay) read() {
	line, err := bufio.NewReader(o.in).ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		o.dismiss()
		return
	}

	fields := strings.Fields(line)
	switch {
	case len(fields) == 0, strings.EqualFold(fields[0], "cancel"):
		o.dismiss()
	case strings.EqualFold(fields[0], "fail"):
		desc := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		o.fail(Failure{Error: FailureDetail{Code: "PAYMENT_FAILED", Description: nonEmpty(desc, "Payment failed")}})
	case len(fields) >= 2:
		o.succeed(Response{PaymentID: fields[0], OrderID: o.opts.OrderID, Signature: fields[1]})
	default:
		o.fail(Failure{Error: FailureDetail{Code: "BAD_REQUEST_ERROR", Description: "payment id and signature are required"}})
	}
}

func (o *TerminalOverlay) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *TerminalOverlay) succeed(r Response) {
	if o.isClosed() || o.opts.Handler == nil {
		return
	}
	o.opts.Handler(r)
}

func (o *TerminalOverlay) fail(f Failure) {
	if o.isClosed() || o.opts.OnFailure == nil {
		return
	}
	o.opts.OnFailure(f)
}

func (o *TerminalOverlay) dismiss() {
	if o.isClosed() || o.opts.OnDismiss == nil {
		return
	}
	o.opts.OnDismiss()
}

// Close stops any later callback from reaching the options.
func (o *TerminalOverlay) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

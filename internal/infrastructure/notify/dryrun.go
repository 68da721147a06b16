package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

// DryRunNotifier prints the digest instead of delivering it.
type DryRunNotifier struct {
	out io.Writer
}

var _ ports.Notifier = (*DryRunNotifier)(nil)

// NewDryRunNotifier writes to out, or stdout when out is nil.
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out}
}

// Notify prints what would be sent.
func (n *DryRunNotifier) Notify(_ context.Context, records []domain.Record) error {
	if _, err := fmt.Fprintf(n.out, "--- %d new record(s) ---\n%s", len(records), FormatDigest(records)); err != nil {
		return &domain.NotifyError{Channel: "dry-run", Err: err}
	}
	return nil
}

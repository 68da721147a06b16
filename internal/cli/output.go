package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"TourScanner/internal/app"
	"TourScanner/internal/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a pass or the scheduler failed
	ExitCommandError = 2 // bad flags or config
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type sourceSummary struct {
	Source   string          `json:"source"`
	Status   string          `json:"status"`
	Accepted []domain.Record `json:"accepted"`
	Rejected int             `json:"rejected"`
	Error    string          `json:"error,omitempty"`
}

func summarize(results []app.SourceResult) []sourceSummary {
	out := make([]sourceSummary, 0, len(results))
	for _, r := range results {
		s := sourceSummary{
			Source:   r.Source,
			Status:   string(r.Result.Status),
			Accepted: r.Result.Accepted,
			Rejected: r.Result.RejectedCount,
		}
		if s.Accepted == nil {
			s.Accepted = []domain.Record{}
		}
		if r.Err != nil {
			s.Error = r.Err.Error()
			if s.Status == "" {
				s.Status = "scan_failed"
			}
		}
		out = append(out, s)
	}
	return out
}

func writeOnce(w io.Writer, format string, results []app.SourceResult) error {
	summaries := summarize(results)
	if format == "json" {
		return writeJSON(w, summaries)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tNEW\tREJECTED\tERROR")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.Source, s.Status, len(s.Accepted), s.Rejected, s.Error)
	}
	return tw.Flush()
}

func writeRecords(w io.Writer, format string, records []domain.Record) error {
	if format == "json" {
		if records == nil {
			records = []domain.Record{}
		}
		return writeJSON(w, records)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records stored.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tLOCATION\tOCCURS AT\tURL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Subject, r.Location, r.OccursAt, r.ReferenceURL)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

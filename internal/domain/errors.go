package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFetch            = errors.New("fetch failed")
	ErrExtraction       = errors.New("extraction failed")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotify           = errors.New("notification failed")
)

// FetchError reports a transport failure or an unexpected upstream status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ExtractionError reports content the ruleset could not be applied to.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Reason, e.Err)
	}
	return "extract: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// MalformedRecordError names the first required field missing from a raw item.
type MalformedRecordError struct {
	Field string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: missing %s", e.Field)
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// StoreError wraps any I/O or connection failure of a dedup store backend.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// NotifyError wraps a delivery failure of one notification channel.
type NotifyError struct {
	Channel string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

func (e *NotifyError) Is(target error) bool { return target == ErrNotify }

// Kind maps err onto its taxonomy name for log attributes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetch):
		return "FetchError"
	case errors.Is(err, ErrExtraction):
		return "ExtractionError"
	case errors.Is(err, ErrMalformedRecord):
		return "MalformedRecord"
	case errors.Is(err, ErrStoreUnavailable):
		return "StoreUnavailable"
	case errors.Is(err, ErrNotify):
		return "NotifyFailure"
	default:
		return "Unknown"
	}
}

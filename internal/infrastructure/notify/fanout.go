package notify

import (
	"context"
	"errors"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

// Channel is a named delivery target.
type Channel struct {
	Name     string
	Notifier ports.Notifier
}

// Fanout delivers one batch to every channel. It counts as a single
// notification; a failing channel does not stop the others.
type Fanout struct {
	channels []Channel
}

var _ ports.Notifier = (*Fanout)(nil)

// NewFanout builds a notifier over channels.
func NewFanout(channels ...Channel) *Fanout {
	return &Fanout{channels: channels}
}

// Names lists the channels in delivery order.
func (f *Fanout) Names() []string {
	names := make([]string, len(f.channels))
	for i, ch := range f.channels {
		names[i] = ch.Name
	}
	return names
}

// Notify returns the joined failures of all channels.
func (f *Fanout) Notify(ctx context.Context, records []domain.Record) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Notifier.Notify(ctx, records); err != nil {
			if !errors.Is(err, domain.ErrNotify) {
				err = &domain.NotifyError{Channel: ch.Name, Err: err}
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package usecase

import (
	"context"
	"log/slog"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

// CycleStatus tells the non-error outcomes of a cycle apart.
type CycleStatus string

const (
	StatusNoUpcomingItems  CycleStatus = "no_upcoming_items"
	StatusNewRecords       CycleStatus = "new_records"
	StatusNoNewRecords     CycleStatus = "no_new_records"
	StatusStoreUnavailable CycleStatus = "store_unavailable"
)

// CycleResult is the outcome of one ingestion pass.
type CycleResult struct {
	Accepted      []domain.Record
	RejectedCount int
	Status        CycleStatus
	Err           error
}

// CycleDeps wires the collaborators of an ingestion cycle.
type CycleDeps struct {
	Store      ports.DedupStore
	Normalizer Normalizer
	Logger     *slog.Logger
}

// Cycle implements a single normalize-dedup-persist pass.
type Cycle struct {
	store      ports.DedupStore
	normalizer Normalizer
	logger     *slog.Logger
}

// NewCycle constructs the ingestion component.
func NewCycle(deps CycleDeps) *Cycle {
	return &Cycle{
		store:      deps.Store,
		normalizer: deps.Normalizer,
		logger:     deps.Logger,
	}
}

// Run ingests items in extraction order. Records inserted before a store
// failure stay persisted and are reported in Accepted.
func (c *Cycle) Run(ctx context.Context, items []domain.RawItem) CycleResult {
	if len(items) == 0 {
		return CycleResult{Status: StatusNoUpcomingItems}
	}

	result := CycleResult{Status: StatusNoNewRecords}
	for i, item := range items {
		record, err := c.normalizer.Normalize(item)
		if err != nil {
			result.RejectedCount++
			c.debug("skip malformed item", "index", i, "error", err)
			continue
		}

		inserted, err := c.store.InsertIfAbsent(ctx, record)
		if err != nil {
			result.Err = err
			result.Status = StatusStoreUnavailable
			return result
		}
		if !inserted {
			c.debug("skip known record", "subject", record.Subject, "occurs_at", record.OccursAt)
			continue
		}
		result.Accepted = append(result.Accepted, record)
	}

	if len(result.Accepted) > 0 {
		result.Status = StatusNewRecords
	}
	return result
}

func (c *Cycle) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

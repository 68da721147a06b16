package ports

import (
	"context"
	"time"

	"TourScanner/internal/domain"
)

// Fetcher retrieves raw page content for a source.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// Extractor applies a declarative ruleset to raw content.
type Extractor interface {
	Extract(raw []byte, ruleset domain.Ruleset) ([]domain.RawItem, error)
}

// Source yields the raw items of one configured page per call.
type Source interface {
	Name() string
	Scan(ctx context.Context) ([]domain.RawItem, error)
}

// DedupStore is the persistent set of accepted records.
type DedupStore interface {
	Contains(ctx context.Context, record domain.Record) (bool, error)
	// InsertIfAbsent persists record and reports true only if no equal record existed.
	InsertIfAbsent(ctx context.Context, record domain.Record) (bool, error)
	BulkInsertIfAbsent(ctx context.Context, records []domain.Record) ([]bool, error)
	Load(ctx context.Context) ([]domain.Record, error)
	Close() error
}

// Notifier delivers newly accepted records to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, records []domain.Record) error
}

// Clock abstracts wall time so schedulers can be driven deterministically.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TourScanner/internal/domain"
)

type memStore struct {
	mu       sync.Mutex
	records  []domain.Record
	failAt   int // 1-based insert call that fails; 0 never fails
	inserts  int
	closed   bool
	failWith error
}

func (s *memStore) Contains(_ context.Context, record domain.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r == record {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) InsertIfAbsent(_ context.Context, record domain.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.failAt != 0 && s.inserts >= s.failAt {
		err := s.failWith
		if err == nil {
			err = errors.New("disk detached")
		}
		return false, &domain.StoreError{Op: "insert", Err: err}
	}
	for _, r := range s.records {
		if r == record {
			return false, nil
		}
	}
	s.records = append(s.records, record)
	return true, nil
}

func (s *memStore) BulkInsertIfAbsent(ctx context.Context, records []domain.Record) ([]bool, error) {
	out := make([]bool, 0, len(records))
	for _, r := range records {
		ok, err := s.InsertIfAbsent(ctx, r)
		if err != nil {
			return out, err
		}
		out = append(out, ok)
	}
	return out, nil
}

func (s *memStore) Load(context.Context) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Record(nil), s.records...), nil
}

func (s *memStore) Close() error {
	s.closed = true
	return nil
}

type recordingNotifier struct {
	calls [][]domain.Record
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, records []domain.Record) error {
	n.calls = append(n.calls, append([]domain.Record(nil), records...))
	return n.err
}

// fakeClock only moves when Sleep or Advance is called.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.June, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

// scriptedSource replays one response per Scan call, repeating the last one.
type scriptedSource struct {
	clock     *fakeClock
	scanCost  time.Duration
	responses []scanResponse
	scans     []time.Time
}

type scanResponse struct {
	items []domain.RawItem
	err   error
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Scan(context.Context) ([]domain.RawItem, error) {
	if s.clock != nil {
		s.scans = append(s.scans, s.clock.Now())
		s.clock.Advance(s.scanCost)
	}
	if len(s.responses) == 0 {
		return nil, nil
	}
	idx := len(s.scans) - 1
	if idx < 0 || idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	resp := s.responses[idx]
	return resp.items, resp.err
}

func item(subject, location, date, url string) domain.RawItem {
	raw := domain.RawItem{}
	if subject != "" {
		raw["artist"] = subject
	}
	if location != "" {
		raw["location"] = location
	}
	if date != "" {
		raw["date"] = date
	}
	if url != "" {
		raw["url"] = url
	}
	return raw
}

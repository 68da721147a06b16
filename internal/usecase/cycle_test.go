package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourScanner/internal/domain"
)

func newTestCycle(store *memStore) *Cycle {
	return NewCycle(CycleDeps{Store: store, Normalizer: NewNormalizer(domain.FieldMap{})})
}

func TestCyclePreservesExtractionOrder(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	a := item("A", "Paris", "2025-07-01", "")
	b := item("B", "Lyon", "2025-07-02", "")
	c := item("C", "Nice", "2025-07-03", "https://example.org/c")

	result := newTestCycle(store).Run(context.Background(), []domain.RawItem{a, b, a, c})

	require.NoError(t, result.Err)
	assert.Equal(t, StatusNewRecords, result.Status)
	assert.Equal(t, []domain.Record{
		{Subject: "A", Location: "Paris", OccursAt: "2025-07-01"},
		{Subject: "B", Location: "Lyon", OccursAt: "2025-07-02"},
		{Subject: "C", Location: "Nice", OccursAt: "2025-07-03", ReferenceURL: "https://example.org/c"},
	}, result.Accepted)
	assert.Zero(t, result.RejectedCount)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestCycleIsolatesMalformedItems(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	valid := item("Muse", "Berlin", "2025-06-14", "")
	missingSubject := item("", "Berlin", "2025-06-15", "")

	result := newTestCycle(store).Run(context.Background(), []domain.RawItem{valid, missingSubject})

	require.NoError(t, result.Err)
	assert.Equal(t, []domain.Record{{Subject: "Muse", Location: "Berlin", OccursAt: "2025-06-14"}}, result.Accepted)
	assert.Equal(t, 1, result.RejectedCount)
	assert.Equal(t, StatusNewRecords, result.Status)
}

func TestCycleEmptySourceShortCircuits(t *testing.T) {
	t.Parallel()

	store := &memStore{failAt: 1}
	result := newTestCycle(store).Run(context.Background(), nil)

	assert.Equal(t, StatusNoUpcomingItems, result.Status)
	assert.Empty(t, result.Accepted)
	assert.NoError(t, result.Err)
	assert.Zero(t, store.inserts)
}

func TestCycleAllDuplicatesIsDistinctFromNoItems(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	items := []domain.RawItem{item("A", "Paris", "2025-07-01", "")}
	cycle := newTestCycle(store)

	first := cycle.Run(context.Background(), items)
	second := cycle.Run(context.Background(), items)

	assert.Equal(t, StatusNewRecords, first.Status)
	assert.Equal(t, StatusNoNewRecords, second.Status)
	assert.Empty(t, second.Accepted)
	assert.NoError(t, second.Err)
}

func TestCycleStoreFailureKeepsEarlierInserts(t *testing.T) {
	t.Parallel()

	store := &memStore{failAt: 2}
	items := []domain.RawItem{
		item("A", "Paris", "2025-07-01", ""),
		item("B", "Lyon", "2025-07-02", ""),
		item("C", "Nice", "2025-07-03", ""),
	}

	result := newTestCycle(store).Run(context.Background(), items)

	require.ErrorIs(t, result.Err, domain.ErrStoreUnavailable)
	assert.Equal(t, StatusStoreUnavailable, result.Status)
	assert.Equal(t, []domain.Record{{Subject: "A", Location: "Paris", OccursAt: "2025-07-01"}}, result.Accepted)
	assert.Equal(t, 2, store.inserts, "insert attempts stop at the first failure")

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

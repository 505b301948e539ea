package sequence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	counters map[string]int64
	assigned map[string]bool
	locks    int
}

func newFakeStore(assigned ...string) *fakeStore {
	s := &fakeStore{counters: map[string]int64{}, assigned: map[string]bool{}}
	for _, id := range assigned {
		s.assigned[id] = true
	}
	return s
}

func (s *fakeStore) LockCounter(_ context.Context, prefix string) (int64, bool, error) {
	s.locks++
	v, ok := s.counters[prefix]
	return v, ok, nil
}

func (s *fakeStore) SeedCounter(_ context.Context, prefix string, value int64) error {
	if _, ok := s.counters[prefix]; !ok {
		s.counters[prefix] = value
	}
	return nil
}

func (s *fakeStore) AdvanceCounter(_ context.Context, prefix string, value int64) error {
	s.counters[prefix] = value
	return nil
}

func (s *fakeStore) GreatestAssigned(_ context.Context, prefix string) (string, bool, error) {
	best := ""
	for id := range s.assigned {
		if len(id) < len(prefix) || id[:len(prefix)] != prefix {
			continue
		}
		if best == "" || Less(best, id) {
			best = id
		}
	}
	return best, best != "", nil
}

func (s *fakeStore) IdentifierExists(_ context.Context, id string) (bool, error) {
	return s.assigned[id], nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAllocator() *Allocator {
	return NewAllocator(Config{Prefix: "SPK", MinWidth: 3, MaxAttempts: 5}, quietLogger())
}

func TestNextSeedsFromGreatestIdentifier(t *testing.T) {
	store := newFakeStore("SPK007", "SPK042", "SPK010")

	id, err := newTestAllocator().Next(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "SPK043", id)
	assert.Equal(t, int64(43), store.counters["SPK"])
}

func TestNextDropsPaddingPastWidth(t *testing.T) {
	store := newFakeStore("SPK999")

	id, err := newTestAllocator().Next(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "SPK1000", id)
}

func TestNextOrdersNumericallyWhenSeeding(t *testing.T) {
	store := newFakeStore("SPK999", "SPK1000")

	id, err := newTestAllocator().Next(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "SPK1001", id)
}

func TestNextStartsFreshWithoutHistory(t *testing.T) {
	id, err := newTestAllocator().Next(context.Background(), newFakeStore())
	require.NoError(t, err)
	assert.Equal(t, "SPK001", id)
}

func TestNextStartsFreshOnUnparsableSuffix(t *testing.T) {
	store := newFakeStore("SPKXYZ9")

	id, err := newTestAllocator().Next(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "SPK001", id)
}

func TestNextSkipsTakenCandidates(t *testing.T) {
	store := newFakeStore("SPK005", "SPK006")
	store.counters["SPK"] = 4

	id, err := newTestAllocator().Next(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "SPK007", id)
	assert.Equal(t, int64(7), store.counters["SPK"])
}

func TestNextGivesUpAfterMaxAttempts(t *testing.T) {
	store := newFakeStore("SPK001", "SPK002", "SPK003", "SPK004", "SPK005")
	store.counters["SPK"] = 0

	_, err := newTestAllocator().Next(context.Background(), store)
	assert.True(t, errors.Is(err, ErrAllocationConflict))
}

func TestAssignIsIdempotent(t *testing.T) {
	store := newFakeStore()
	alloc := newTestAllocator()

	id, assigned, err := alloc.Assign(context.Background(), store, nil)
	require.NoError(t, err)
	require.True(t, assigned)

	again, assigned, err := alloc.Assign(context.Background(), store, &id)
	require.NoError(t, err)
	assert.False(t, assigned)
	assert.Equal(t, id, again)
	assert.Equal(t, int64(1), store.counters["SPK"], "counter must not advance for an identified loan")
}

func TestFormatAndParse(t *testing.T) {
	assert.Equal(t, "SPK042", Format("SPK", 42, 3))
	assert.Equal(t, "SPK12345", Format("SPK", 12345, 3))

	n, err := ParseSuffix("SPK", "SPK042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = ParseSuffix("SPK", "LN042")
	assert.Error(t, err)
	_, err = ParseSuffix("SPK", "SPK")
	assert.Error(t, err)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nov2025() time.Time { return time.Date(2025, 11, 20, 9, 30, 0, 0, time.UTC) }

func TestFormatIdentifier(t *testing.T) {
	assert.Equal(t, "00001FTICLI112025", FormatIdentifier(1, "FTICLI", nov2025()))
	assert.Equal(t, "99999FTICLI012026", FormatIdentifier(99999, "FTICLI", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Month/year are taken in UTC.
	jakarta := time.FixedZone("WIB", 7*3600)
	local := time.Date(2025, 12, 1, 3, 0, 0, 0, jakarta) // 2025-11-30 20:00 UTC
	assert.Equal(t, "00042FTICLI112025", FormatIdentifier(42, "FTICLI", local))
}

func TestAllocate_ScenarioAndIdempotence(t *testing.T) {
	a := NewIdentifierAllocator(newFakeCounterStore())
	a.Now = nov2025

	id, isNew, err := a.Allocate(context.Background(), "sub-001")
	require.NoError(t, err)
	assert.Equal(t, "00001FTICLI112025", id)
	assert.True(t, isNew)

	again, isNew, err := a.Allocate(context.Background(), "  sub-001  ")
	require.NoError(t, err)
	assert.Equal(t, id, again, "surrounding whitespace is not part of the key")
	assert.False(t, isNew)
}

func TestAllocate_DistinctKeys(t *testing.T) {
	a := NewIdentifierAllocator(newFakeCounterStore())
	a.Now = nov2025

	id1, _, err := a.Allocate(context.Background(), "k1")
	require.NoError(t, err)
	id2, _, err := a.Allocate(context.Background(), "k2")
	require.NoError(t, err)
	assert.NotEqual(t, id1[:5], id2[:5])
}

func TestAllocate_Wraparound(t *testing.T) {
	store := newFakeCounterStore()
	store.last = 99999
	a := NewIdentifierAllocator(store)
	a.Now = nov2025

	id, _, err := a.Allocate(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "00001FTICLI112025", id)
}

func TestAllocate_EmptyKeyRejected(t *testing.T) {
	store := newFakeCounterStore()
	a := NewIdentifierAllocator(store)

	for _, k := range []string{"", "   ", "\t\n"} {
		_, _, err := a.Allocate(context.Background(), k)
		assert.ErrorIs(t, err, ErrInvalidInput, "key %q", k)
	}
	assert.Equal(t, 0, store.last, "rejected keys must not touch the store")
	assert.Empty(t, store.mappings)
}

func TestAllocate_StoreFailure(t *testing.T) {
	store := newFakeCounterStore()
	store.err = errBoom
	a := NewIdentifierAllocator(store)

	_, _, err := a.Allocate(context.Background(), "k")
	require.ErrorIs(t, err, ErrAllocationFailed)
	assert.ErrorIs(t, err, errBoom)
}

func TestAllocate_CustomTypeCode(t *testing.T) {
	a := &IdentifierAllocator{Store: newFakeCounterStore(), TypeCode: "XYZ", Now: nov2025}
	id, _, err := a.Allocate(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "00001XYZ112025", id)
}

func TestAllocate_Observe(t *testing.T) {
	var seen []bool
	a := NewIdentifierAllocator(newFakeCounterStore())
	a.Observe = func(isNew bool, err error) {
		require.NoError(t, err)
		seen = append(seen, isNew)
	}

	_, _, _ = a.Allocate(context.Background(), "k1")
	_, _, _ = a.Allocate(context.Background(), "k1")
	_, _, _ = a.Allocate(context.Background(), "  ")

	assert.Equal(t, []bool{true, false}, seen)
}

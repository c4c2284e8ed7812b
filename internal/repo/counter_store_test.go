package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSequence(t *testing.T) {
	assert.Equal(t, 1, NextSequence(0))
	assert.Equal(t, 2, NextSequence(1))
	assert.Equal(t, 99999, NextSequence(99998))
	assert.Equal(t, 1, NextSequence(99999))
}

func TestSQLCounterStore_FirstAllocationAndReplay(t *testing.T) {
	db := newTestDB(t, true)
	s := NewSQLCounterStore(db)
	ctx := context.Background()

	id, isNew, err := s.Allocate(ctx, "sub-001", fixedFormat)
	require.NoError(t, err)
	assert.Equal(t, "00001FTICLI112025", id)
	assert.True(t, isNew)

	again, isNew, err := s.Allocate(ctx, "sub-001", fixedFormat)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.False(t, isNew)

	c, err := s.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.LastVal, "replay must not advance the counter")
}

func TestSQLCounterStore_DistinctKeysGetDistinctSequences(t *testing.T) {
	s := NewSQLCounterStore(newTestDB(t, true))
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id, isNew, err := s.Allocate(ctx, fmt.Sprintf("k%d", i), fixedFormat)
		require.NoError(t, err)
		require.True(t, isNew)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.True(t, seen["00005FTICLI112025"])
}

func TestSQLCounterStore_Wraparound(t *testing.T) {
	db := newTestDB(t, true)
	s := NewSQLCounterStore(db)
	ctx := context.Background()
	require.NoError(t, SetCounter(ctx, db, SequenceMax))

	id, isNew, err := s.Allocate(ctx, "after-wrap", fixedFormat)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "00001FTICLI112025", id)

	c, _ := s.Counter(ctx)
	assert.Equal(t, 1, c.LastVal)
}

func TestSQLCounterStore_CollisionAfterWrapRollsBack(t *testing.T) {
	db := newTestDB(t, true)
	s := NewSQLCounterStore(db)
	ctx := context.Background()

	_, _, err := s.Allocate(ctx, "first", fixedFormat)
	require.NoError(t, err)
	require.NoError(t, SetCounter(ctx, db, SequenceMax))

	_, _, err = s.Allocate(ctx, "second", fixedFormat)
	require.ErrorIs(t, err, ErrDuplicate)

	c, _ := s.Counter(ctx)
	assert.Equal(t, SequenceMax, c.LastVal, "failed allocation must leave the counter unchanged")
	_, err = GetMapping(ctx, db, "second")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLCounterStore_MissingCounterRow(t *testing.T) {
	db := newTestDB(t, true)
	require.NoError(t, db.Exec("DELETE FROM counter_state").Error)

	_, _, err := NewSQLCounterStore(db).Allocate(context.Background(), "k", fixedFormat)
	assert.ErrorIs(t, err, ErrCounterMissing)
	_, err = GetMapping(context.Background(), db, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLCounterStore_StoreUnavailable(t *testing.T) {
	db := newTestDB(t, false)
	_, _, err := NewSQLCounterStore(db).Allocate(context.Background(), "k", fixedFormat)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDuplicate))
}

func TestSQLCounterStore_Mappings(t *testing.T) {
	db := newTestDB(t, true)
	s := NewSQLCounterStore(db)
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.Now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	for _, k := range []string{"a", "b", "c"} {
		_, _, err := s.Allocate(context.Background(), k, fixedFormat)
		require.NoError(t, err)
	}
	items, total, err := s.Mappings(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].SubmissionID)
	assert.Equal(t, "00003FTICLI112025", items[0].MessageID)
}

// Concurrent allocations run against a file database so the WAL writer lock
// and busy timeout are in play, as in production.
func TestSQLCounterStore_Concurrent(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "reg_data.db"))
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, AutoMigrate(db))
	s := NewSQLCounterStore(db)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		byKey   = map[string]string{}
		sameIDs []string
		newSame int
	)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("distinct-%d", i)
			id, _, err := s.Allocate(context.Background(), key, fixedFormat)
			if assert.NoError(t, err) {
				mu.Lock()
				byKey[key] = id
				mu.Unlock()
			}
		}(i)
		go func() {
			defer wg.Done()
			id, isNew, err := s.Allocate(context.Background(), "shared", fixedFormat)
			if assert.NoError(t, err) {
				mu.Lock()
				sameIDs = append(sameIDs, id)
				if isNew {
					newSame++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, newSame, "exactly one caller may create the shared mapping")
	for _, id := range sameIDs {
		assert.Equal(t, sameIDs[0], id)
	}
	seen := map[string]bool{sameIDs[0]: true}
	for _, id := range byKey {
		assert.False(t, seen[id], "sequence reused: %s", id)
		seen[id] = true
	}
	total, err := CountMappings(context.Background(), db)
	require.NoError(t, err)
	assert.EqualValues(t, n+1, total)
}

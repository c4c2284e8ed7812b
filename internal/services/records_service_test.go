package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/portal-rpa/internal/repo"
)

func TestRecordsService_SQLStore(t *testing.T) {
	db := newServiceDB(t)
	store := repo.NewSQLCounterStore(db)
	alloc := NewIdentifierAllocator(store)
	alloc.Now = nov2025

	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.Now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	for i := 0; i < 3; i++ {
		_, _, err := alloc.Allocate(context.Background(), fmt.Sprintf("sub-%03d", i))
		require.NoError(t, err)
	}

	rs := &RecordsService{Store: store}
	c, err := rs.CounterState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, c.LastVal)

	items, total, err := rs.ListMappings(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "sub-002", items[0].SubmissionID)
	assert.Equal(t, "00003FTICLI112025", items[0].MessageID)

	items, _, err = rs.ListMappings(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestRecordsService_UnseededCounterReadsZero(t *testing.T) {
	db := newServiceDB(t)
	require.NoError(t, db.Exec("DELETE FROM counter_state").Error)

	c, err := (&RecordsService{Store: repo.NewSQLCounterStore(db)}).CounterState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, 0, c.LastVal)
}

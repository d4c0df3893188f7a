package eventstore

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
)

const testRunID = "run-123"

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndGetByRunID(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	payload := []byte(`{"test": "data"}`)

	require.NoError(t, store.Append(ctx, testRunID, "TestEvent", payload, map[string]string{"key": "value"}))

	events, err := store.GetByRunID(ctx, testRunID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, testRunID, e.RunID())
	assert.Equal(t, "TestEvent", e.Type())
	assert.True(t, bytes.Equal(payload, e.Payload()))
	assert.Equal(t, "value", e.Metadata()["key"])
	assert.WithinDuration(t, time.Now(), e.Timestamp(), time.Minute)
}

func TestGetRange(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	now := time.Now()

	for range 3 {
		require.NoError(t, store.Append(ctx, "run-1", "Event", []byte("data"), nil))
	}

	events, err := store.GetRange(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = store.GetRange(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMultipleRuns(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, "run-1", "Event1", []byte("1"), nil))
	require.NoError(t, store.Append(ctx, "run-2", "Event2", []byte("2"), nil))
	require.NoError(t, store.Append(ctx, "run-1", "Event3", []byte("3"), nil))

	events, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Event1", events[0].Type())
	assert.Equal(t, "Event3", events[1].Type())

	events, err = store.GetByRunID(ctx, "run-2")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestClosedStoreReturnsEventStoreError(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Append(t.Context(), "run", "Event", nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryEventStore, errors.GetCategory(err))
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, prefix string) error {
	return m.Called(ctx, prefix).Error(0)
}

func newTieredFixture(t *testing.T, publisher PrefixPublisher) (*TieredStore, *MemoryStore, *MemoryStore) {
	t.Helper()
	l1 := NewMemoryStore(time.Hour)
	l2 := NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = l2.Close() })
	tiered := NewTieredStore(l1, l2, publisher, 15*time.Second, nil)
	t.Cleanup(func() { _ = tiered.Close() })
	return tiered, l1, l2
}

func TestTieredStore_PromotesL2Hits(t *testing.T) {
	tiered, l1, l2 := newTieredFixture(t, nil)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l2.Set(ctx, "analytics:overview:", entryAt(now, "1", time.Hour)))

	e, err := tiered.Get(ctx, "analytics:overview:")
	require.NoError(t, err)
	require.NotNil(t, e)

	local, _ := l1.Get(ctx, "analytics:overview:")
	require.NotNil(t, local)
	assert.True(t, local.ExpiresAt.Before(now.Add(time.Minute)), "L1 copy is capped by the local TTL")
	assert.Equal(t, e.ExpiresAt, now.Add(time.Hour), "L2 entry keeps its expiry")
}

func TestTieredStore_SetWritesBothTiers(t *testing.T) {
	tiered, l1, l2 := newTieredFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, tiered.Set(ctx, "k", entryAt(time.Now(), "1", time.Minute)))

	e1, _ := l1.Get(ctx, "k")
	e2, _ := l2.Get(ctx, "k")
	assert.NotNil(t, e1)
	assert.NotNil(t, e2)
}

func TestTieredStore_DeletePrefixBroadcasts(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, "analytics:").Return(nil)
	tiered, l1, l2 := newTieredFixture(t, publisher)
	ctx := context.Background()

	require.NoError(t, tiered.Set(ctx, "analytics:overview:", entryAt(time.Now(), "1", time.Minute)))

	n, err := tiered.DeletePrefix(ctx, "analytics:")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, l1.Stats().Entries)
	assert.Equal(t, 0, l2.Stats().Entries)
	publisher.AssertExpectations(t)
}

func TestTieredStore_HandleInvalidationClearsOnlyL1(t *testing.T) {
	tiered, l1, l2 := newTieredFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, tiered.Set(ctx, "analytics:overview:", entryAt(time.Now(), "1", time.Minute)))

	tiered.HandleInvalidation(InvalidationMessage{Prefix: "analytics:", Origin: "peer"})

	assert.Equal(t, 0, l1.Stats().Entries)
	assert.Equal(t, 1, l2.Stats().Entries)
}

package session

import (
	"context"
	"testing"
	"time"

	"bookmarket-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	id := &models.Identity{UserID: 7, Email: "a@example.com", Role: models.RoleCustomer}
	require.NoError(t, m.SaveSession(ctx, "tok", id, time.Minute))

	got, err := m.LoadSession(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *id, *got)

	require.NoError(t, m.DeleteSession(ctx, "tok"))
	got, err = m.LoadSession(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	require.NoError(t, m.SaveSession(ctx, "tok", &models.Identity{UserID: 1}, time.Minute))

	clock = clock.Add(59 * time.Second)
	got, err := m.LoadSession(ctx, "tok")
	require.NoError(t, err)
	assert.NotNil(t, got)

	clock = clock.Add(time.Second)
	got, err = m.LoadSession(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	got, err := NewMemoryStore().LoadSession(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreSweepsOnSave(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	require.NoError(t, m.SaveSession(ctx, "old-1", &models.Identity{UserID: 1}, time.Minute))
	require.NoError(t, m.SaveSession(ctx, "old-2", &models.Identity{UserID: 2}, time.Hour))
	assert.Equal(t, 2, m.Len())

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, m.SaveSession(ctx, "new", &models.Identity{UserID: 3}, time.Minute))
	assert.Equal(t, 2, m.Len())

	got, err := m.LoadSession(ctx, "old-2")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

package schedule

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisStoreDefaultsWhenMissing(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRedisStore(client)

	cfg, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().WorkDays, cfg.WorkDays)
	assert.Equal(t, "09:00", cfg.WorkStart)
	assert.Equal(t, "19:00", cfg.WorkEnd)
	assert.Equal(t, 30, cfg.SessionDuration)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client, mr := newTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	price := 12000
	cfg := &Config{
		WorkDays:        []int{2, 4},
		WorkStart:       "10:00",
		WorkEnd:         "16:00",
		SessionDuration: 45,
		BreakStart:      "13:00",
		BreakEnd:        "14:00",
		SessionPrice:    &price,
		OfficeAddress:   "ул. Абая 10",
		WhatsAppEnabled: true,
	}
	require.NoError(t, store.Set(ctx, cfg))
	assert.True(t, mr.Exists(settingsKey))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, got.WorkDays)
	assert.Equal(t, "13:00", got.BreakStart)
	require.NotNil(t, got.SessionPrice)
	assert.Equal(t, 12000, *got.SessionPrice)
	assert.True(t, got.WhatsAppEnabled)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestRedisStoreCorruptDocument(t *testing.T) {
	client, mr := newTestRedis(t)
	require.NoError(t, mr.Set(settingsKey, "{not json"))

	_, err := NewRedisStore(client).Get(context.Background())
	assert.Error(t, err)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	cfg, err := store.Get(ctx)
	require.NoError(t, err)
	cfg.WorkDays[0] = 6

	again, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again.WorkDays[0])
}

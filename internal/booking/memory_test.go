package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryCreateConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first := &Booking{ClientName: "A", Date: day("2025-03-12"), Time: "10:00", Status: StatusPending}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	second := &Booking{ClientName: "B", Date: day("2025-03-12"), Time: "10:00", Status: StatusPending}
	assert.ErrorIs(t, repo.Create(ctx, second), ErrConflict)

	_, err := repo.UpdateStatus(ctx, first.ID, StatusCancelled)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, second), "cancelled booking releases the slot")

	times, err := repo.BookedTimes(ctx, day("2025-03-12"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, times)
}

func TestMemoryRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &Booking{ClientName: "C", Date: day("2025-03-12"), Time: "11:00", Status: StatusPending})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestMemoryRepositoryTerminalStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	b := &Booking{Date: day("2025-03-12"), Time: "10:00", Status: StatusPending}
	require.NoError(t, repo.Create(ctx, b))

	updated, err := repo.UpdateStatus(ctx, b.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)

	_, err = repo.UpdateStatus(ctx, b.ID, StatusCancelled)
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, b.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrTerminalStatus)
	_, err = repo.UpdateStatus(ctx, uuid.New(), StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryMarkReminderSentOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	b := &Booking{Date: day("2025-03-12"), Time: "10:00", Status: StatusPending}
	require.NoError(t, repo.Create(ctx, b))

	set, err := repo.MarkReminderSent(ctx, b.ID, Window24h)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = repo.MarkReminderSent(ctx, b.ID, Window24h)
	require.NoError(t, err)
	assert.False(t, set)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Reminder24hSent)
	assert.False(t, got.Reminder3hSent)

	_, err = repo.MarkReminderSent(ctx, b.ID, ReminderWindow("1h"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemoryRepositoryMarkReminderSentSkipsCancelled(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	b := &Booking{Date: day("2025-03-12"), Time: "11:00", Status: StatusCancelled}
	require.NoError(t, repo.Create(ctx, b))

	set, err := repo.MarkReminderSent(ctx, b.ID, Window3h)
	require.NoError(t, err)
	assert.False(t, set)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Reminder3hSent)
}

func TestMemoryRepositoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, tm := range []string{"12:00", "09:00"} {
		require.NoError(t, repo.Create(ctx, &Booking{Date: day("2025-03-12"), Time: tm, Status: StatusPending, PhoneKey: "7017777777"}))
	}
	other := &Booking{Date: day("2025-03-11"), Time: "09:00", Status: StatusPending, PhoneKey: "7010000000"}
	require.NoError(t, repo.Create(ctx, other))

	list, err := repo.List(ctx, Filter{PhoneKey: "7017777777"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "09:00", list[0].Time)

	require.NoError(t, repo.Delete(ctx, other.ID))
	assert.ErrorIs(t, repo.Delete(ctx, other.ID), ErrNotFound)
}

func TestMemoryBlockedDates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlockedDates()

	d := &BlockedDate{Date: day("2025-03-12"), Reason: "holiday"}
	require.NoError(t, store.Create(ctx, d))
	assert.ErrorIs(t, store.Create(ctx, &BlockedDate{Date: day("2025-03-12")}), ErrConflict)
	require.NoError(t, store.Create(ctx, &BlockedDate{Date: day("2025-03-08")}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, day("2025-03-08"), list[0].Date)

	require.NoError(t, store.Delete(ctx, d.ID))
	assert.ErrorIs(t, store.Delete(ctx, d.ID), ErrNotFound)
}

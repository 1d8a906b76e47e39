package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"coworking/internal/booking"
	"coworking/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testDate() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func hourlyReservation(id, space string, date time.Time, start, count int) *booking.Reservation {
	return &booking.Reservation{
		ID:         id,
		SpaceID:    space,
		SpaceName:  "Room " + space,
		Duration:   booking.Hourly,
		Date:       date,
		StartHour:  start,
		HourCount:  count,
		Resources:  []string{"projector", "projector", "parking"},
		TotalPrice: 42.5,
		BookerName: "Ann",
	}
}

// runStoreContract checks the behavior every ReservationStore must share.
func runStoreContract(t *testing.T, store domain.ReservationStore) {
	ctx := context.Background()
	date := testDate()

	t.Run("append and load", func(t *testing.T) {
		r := hourlyReservation("r-1", "room-1", date, 9, 3)
		require.NoError(t, store.AppendReservation(ctx, r))
		assert.False(t, r.CreatedAt.IsZero())

		loaded, err := store.LoadReservations(ctx, "room-1")
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "r-1", loaded[0].ID)
		assert.Equal(t, []string{"projector", "parking"}, loaded[0].Resources)
		assert.True(t, booking.SameDay(date, loaded[0].Date))
		assert.Equal(t, []int{9, 10, 11}, booking.OccupiedHours("room-1", date, loaded).Hours())
	})

	t.Run("overlapping request rejected", func(t *testing.T) {
		err := store.AppendReservation(ctx, hourlyReservation("r-2", "room-1", date, 10, 2))
		assert.ErrorIs(t, err, booking.ErrSlotTaken)

		_, err = store.GetReservation(ctx, "r-2")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("adjacent request accepted", func(t *testing.T) {
		require.NoError(t, store.AppendReservation(ctx, hourlyReservation("r-3", "room-1", date, 12, 2)))
	})

	t.Run("other space same hours accepted", func(t *testing.T) {
		require.NoError(t, store.AppendReservation(ctx, hourlyReservation("r-4", "room-2", date, 9, 3)))
	})

	t.Run("daily conflicts with any occupancy", func(t *testing.T) {
		daily := &booking.Reservation{ID: "r-5", SpaceID: "room-1", Duration: booking.Daily, Date: date, BookerName: "Bob"}
		assert.ErrorIs(t, store.AppendReservation(ctx, daily), booking.ErrSlotTaken)

		daily.ID = "r-6"
		daily.Date = date.AddDate(0, 0, 1)
		require.NoError(t, store.AppendReservation(ctx, daily))

		late := hourlyReservation("r-7", "room-1", date.AddDate(0, 0, 1), 22, 1)
		assert.ErrorIs(t, store.AppendReservation(ctx, late), booking.ErrSlotTaken)
	})

	t.Run("get by id", func(t *testing.T) {
		r, err := store.GetReservation(ctx, "r-3")
		require.NoError(t, err)
		assert.Equal(t, 12, r.StartHour)
		assert.Equal(t, 2, r.HourCount)
		assert.Equal(t, 42.5, r.TotalPrice)

		_, err = store.GetReservation(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("date range", func(t *testing.T) {
		got, err := store.GetReservationsByDateRange(ctx, date, date)
		require.NoError(t, err)
		assert.Len(t, got, 3)

		got, err = store.GetReservationsByDateRange(ctx, date, date.AddDate(0, 0, 7))
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "r-6", got[3].ID)

		got, err = store.GetReservationsByDateRange(ctx, date.AddDate(0, 1, 0), date.AddDate(0, 2, 0))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, setupTestDB(t))
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestSQLiteStore_OverflowRangeStoredAsIs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AppendReservation(ctx, hourlyReservation("late", "room-1", testDate(), 22, 5)))

	loaded, err := db.LoadReservations(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 5, loaded[0].HourCount)
	assert.Equal(t, []int{22, 23}, booking.OccupiedHours("room-1", testDate(), loaded).Hours())
}

func TestSQLiteStore_MissingHourlyFieldsAreMalformed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO reservations
		(id, space_id, duration, date, booker_name, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"legacy", "room-1", "hourly", "2024-06-01", "Old", time.Now())
	require.NoError(t, err)

	loaded, err := db.LoadReservations(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].Malformed())
	assert.Empty(t, loaded[0].Resources)
	assert.True(t, booking.OccupiedHours("room-1", testDate(), loaded).IsEmpty())
}

func TestSQLiteStore_ConcurrentAppend(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "reservations.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := hourlyReservation(fmt.Sprintf("c-%d", i), "room-1", testDate(), 10, 2)
			err := db.AppendReservation(context.Background(), r)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, booking.ErrSlotTaken):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestMemoryStore_ContextCanceled(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.LoadReservations(ctx, "room-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.AppendReservation(ctx, hourlyReservation("x", "room-1", testDate(), 1, 1)), context.Canceled)
}

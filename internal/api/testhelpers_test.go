package api

import (
	"context"
	"io"
	"testing"
	"time"

	"coworking/internal/booking"
	"coworking/internal/clock"
	"coworking/internal/config"
	"coworking/internal/database"
	"coworking/internal/events"
	"coworking/internal/export"
	"coworking/internal/models"
	"coworking/internal/pricing"
	"coworking/internal/repository"
	"coworking/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

var testSpaces = []models.Space{
	{ID: "room-1", Name: "Board Room", Category: "meeting_room", Capacity: 8, SortOrder: 2},
	{ID: "desk-1", Name: "Hot Desk", Category: "desk", Capacity: 1, SortOrder: 1},
}

type testEnv struct {
	store    *database.MemoryStore
	bookings *service.BookingService
	drafts   *service.DraftService
	exporter *export.Exporter
	logger   *zerolog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	store := database.NewMemoryStore()
	bus := events.NewEventBus()
	resolver := booking.NewResolver(clock.NewMockClock(testNow), time.UTC, &logger)
	calc := pricing.NewCalculator(pricing.DefaultRateTable(), &logger)
	bookings := service.NewBookingService(store, testSpaces, resolver, calc, bus, service.BookingOptions{MaxBookingDays: 90}, &logger)
	drafts := service.NewDraftService(repository.NewMemoryDraftRepository(time.Hour), bookings, bus, &logger)

	return &testEnv{
		store:    store,
		bookings: bookings,
		drafts:   drafts,
		exporter: export.NewExporter(t.TempDir(), &logger),
		logger:   &logger,
	}
}

func (e *testEnv) httpServer(cfg config.APIConfig, ready Pinger) *HTTPServer {
	return NewHTTPServer(cfg, e.bookings, e.drafts, e.exporter, ready, e.logger)
}

// seedMorning books 09:00-12:00 of 2024-06-01 in room-1.
func (e *testEnv) seedMorning(t *testing.T) *booking.Reservation {
	t.Helper()
	r := &booking.Reservation{
		ID:         "seed-1",
		SpaceID:    "room-1",
		SpaceName:  "Board Room",
		Duration:   booking.Hourly,
		Date:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		StartHour:  9,
		HourCount:  3,
		Resources:  []string{},
		TotalPrice: 97.5,
		BookerName: "Seed",
	}
	require.NoError(t, e.store.AppendReservation(context.Background(), r))
	return r
}

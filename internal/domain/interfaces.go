package domain

import (
	"context"
	"time"

	"coworking/internal/booking"
	"coworking/internal/models"
)

// ReservationStore is the persistence port for reservations.
// AppendReservation must reject a reservation whose hours intersect the
// stored occupancy of its space and date with booking.ErrSlotTaken.
type ReservationStore interface {
	LoadReservations(ctx context.Context, spaceID string) ([]booking.Reservation, error)
	AppendReservation(ctx context.Context, r *booking.Reservation) error
	GetReservation(ctx context.Context, id string) (*booking.Reservation, error)
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]booking.Reservation, error)
}

type DraftRepository interface {
	GetDraft(ctx context.Context, sessionID string) (*models.Draft, error)
	SetDraft(ctx context.Context, draft *models.Draft) error
	ClearDraft(ctx context.Context, sessionID string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"coworking/internal/booking"
)

// MemoryStore keeps reservations in process memory.
type MemoryStore struct {
	mu           sync.RWMutex
	reservations []booking.Reservation
	byID         map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) LoadReservations(ctx context.Context, spaceID string) ([]booking.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []booking.Reservation
	for i := range s.reservations {
		if s.reservations[i].SpaceID == spaceID {
			out = append(out, cloneReservation(s.reservations[i]))
		}
	}
	return out, nil
}

func (s *MemoryStore) AppendReservation(ctx context.Context, r *booking.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.OccupiedHours(r.SpaceID, r.Date, s.reservations).Intersects(r.Hours()) {
		return booking.ErrSlotTaken
	}

	r.CreatedAt = time.Now()
	stored := cloneReservation(*r)
	stored.Resources = booking.DedupeIDs(stored.Resources)
	s.byID[r.ID] = len(s.reservations)
	s.reservations = append(s.reservations, stored)
	return nil
}

func (s *MemoryStore) GetReservation(ctx context.Context, id string) (*booking.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	r := cloneReservation(s.reservations[idx])
	return &r, nil
}

func (s *MemoryStore) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]booking.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from, to := booking.DayOf(start), booking.DayOf(end)

	s.mu.RLock()
	var out []booking.Reservation
	for i := range s.reservations {
		d := booking.DayOf(s.reservations[i].Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, cloneReservation(s.reservations[i]))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := booking.DayOf(out[i].Date), booking.DayOf(out[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		if out[i].SpaceID != out[j].SpaceID {
			return out[i].SpaceID < out[j].SpaceID
		}
		return out[i].StartHour < out[j].StartHour
	})
	return out, nil
}

func (s *MemoryStore) Ready(context.Context) error {
	return nil
}

func cloneReservation(r booking.Reservation) booking.Reservation {
	r.Resources = append([]string{}, r.Resources...)
	return r
}

package booking

import (
	"errors"
	"time"

	"coworking/internal/clock"

	"github.com/rs/zerolog"
)

var ErrSlotTaken = errors.New("requested hours are already booked")

// SameDay compares the calendar dates of a and b as each value reads on its
// own wall clock. Time of day and zone offset are not considered.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayOf truncates t to midnight UTC of its wall-clock date.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OccupiedHours unions the hours taken by reservations of spaceID on the
// calendar date of date.
func OccupiedHours(spaceID string, date time.Time, reservations []Reservation) HourSet {
	var occupied HourSet
	for i := range reservations {
		r := &reservations[i]
		if r.SpaceID != spaceID || !SameDay(r.Date, date) {
			continue
		}
		occupied = occupied.Union(r.Hours())
		if occupied.IsFull() {
			break
		}
	}
	return occupied
}

// AvailableStartHours lists the free hours of the date in ascending order.
func AvailableStartHours(spaceID string, date time.Time, reservations []Reservation) []int {
	return OccupiedHours(spaceID, date, reservations).Free()
}

// DayAvailability is the occupancy of one space on one date.
type DayAvailability struct {
	SpaceID   string    `json:"space_id"`
	Date      time.Time `json:"date"`
	Occupied  HourSet   `json:"occupied"`
	Available []int     `json:"available"`
	Bookable  bool      `json:"bookable"`
}

// Resolver answers availability questions relative to the current day.
type Resolver struct {
	clock  clock.Clock
	loc    *time.Location
	logger *zerolog.Logger
}

func NewResolver(clk clock.Clock, loc *time.Location, logger *zerolog.Logger) *Resolver {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{clock: clk, loc: loc, logger: logger}
}

// Today is the current calendar day in the resolver's time zone.
func (r *Resolver) Today() time.Time {
	return DayOf(r.clock.Now().In(r.loc))
}

func (r *Resolver) OccupiedHours(spaceID string, date time.Time, reservations []Reservation) HourSet {
	for i := range reservations {
		res := &reservations[i]
		if res.SpaceID != spaceID || !SameDay(res.Date, date) || !res.Malformed() {
			continue
		}
		r.logger.Warn().
			Str("reservation_id", res.ID).
			Str("space_id", res.SpaceID).
			Int("start_hour", res.StartHour).
			Int("hour_count", res.HourCount).
			Msg("Malformed hourly reservation counted as zero hours")
	}
	return OccupiedHours(spaceID, date, reservations)
}

func (r *Resolver) AvailableStartHours(spaceID string, date time.Time, reservations []Reservation) []int {
	return r.OccupiedHours(spaceID, date, reservations).Free()
}

// IsDateBookable is false for dates before today and for fully occupied dates.
func (r *Resolver) IsDateBookable(spaceID string, date time.Time, reservations []Reservation) bool {
	if r.IsPast(date) {
		return false
	}
	return !r.OccupiedHours(spaceID, date, reservations).IsFull()
}

func (r *Resolver) IsPast(date time.Time) bool {
	return DayOf(date).Before(r.Today())
}

func (r *Resolver) Day(spaceID string, date time.Time, reservations []Reservation) DayAvailability {
	occupied := r.OccupiedHours(spaceID, date, reservations)
	return DayAvailability{
		SpaceID:   spaceID,
		Date:      DayOf(date),
		Occupied:  occupied,
		Available: occupied.Free(),
		Bookable:  !r.IsPast(date) && !occupied.IsFull(),
	}
}

package booking

import (
	"fmt"
	"strings"
	"time"
)

// HoursPerDay is the number of bookable hour slots in a calendar day.
const HoursPerDay = 24

type DurationClass string

const (
	Hourly  DurationClass = "hourly"
	Daily   DurationClass = "daily"
	Monthly DurationClass = "monthly"
)

func (d DurationClass) Valid() bool {
	switch d {
	case Hourly, Daily, Monthly:
		return true
	}
	return false
}

func ParseDurationClass(s string) (DurationClass, error) {
	d := DurationClass(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown duration class %q", s)
	}
	return d, nil
}

// Reservation is a committed booking of one space on one calendar date.
type Reservation struct {
	ID         string        `json:"id"`
	SpaceID    string        `json:"space_id"`
	SpaceName  string        `json:"space_name"`
	Duration   DurationClass `json:"duration"`
	Date       time.Time     `json:"date"`
	StartHour  int           `json:"start_hour"`
	HourCount  int           `json:"hour_count"`
	Resources  []string      `json:"resources"`
	TotalPrice float64       `json:"total_price"`
	BookerName string        `json:"booker_name"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Malformed reports an hourly reservation whose start hour or hour count
// cannot describe any range of the day.
func (r *Reservation) Malformed() bool {
	if r.Duration != Hourly {
		return false
	}
	return r.HourCount < 1 || r.StartHour < 0 || r.StartHour >= HoursPerDay
}

// Hours returns the hours the reservation occupies on its own date.
// Anything other than an hourly reservation takes the whole day.
func (r *Reservation) Hours() HourSet {
	if r.Malformed() {
		return 0
	}
	return RequestedHours(r.Duration, r.StartHour, r.HourCount)
}

// DedupeIDs trims ids, drops empty ones and keeps the first occurrence of each.
func DedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

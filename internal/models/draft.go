package models

import (
	"strings"
	"time"

	"coworking/internal/booking"
)

// Draft is the unsubmitted form state of one session.
type Draft struct {
	SessionID  string                `json:"session_id"`
	SpaceID    string                `json:"space_id"`
	Duration   booking.DurationClass `json:"duration"`
	Date       string                `json:"date,omitempty"`
	HourCount  int                   `json:"hour_count"`
	StartHour  int                   `json:"start_hour"`
	Resources  []string              `json:"resources"`
	BookerName string                `json:"booker_name"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func NewDraft(sessionID, spaceID string) *Draft {
	return &Draft{
		SessionID: sessionID,
		SpaceID:   spaceID,
		Duration:  booking.Hourly,
		HourCount: DefaultHourCount,
		StartHour: DefaultStartHour,
		Resources: []string{},
	}
}

// ParsedDate returns the chosen date, ok is false while none is chosen.
func (d *Draft) ParsedDate() (time.Time, bool) {
	if strings.TrimSpace(d.Date) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(d.Date))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Normalize fills defaults and drops duplicate add-ons.
func (d *Draft) Normalize() {
	if d.Duration == "" {
		d.Duration = booking.Hourly
	}
	if d.Duration == booking.Hourly && d.HourCount < 1 {
		d.HourCount = DefaultHourCount
	}
	d.Resources = booking.DedupeIDs(d.Resources)
	d.BookerName = strings.TrimSpace(d.BookerName)
	d.Date = strings.TrimSpace(d.Date)
}

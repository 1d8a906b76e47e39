package models

import (
	"testing"
	"time"

	"coworking/internal/booking"

	"github.com/stretchr/testify/assert"
)

func TestNewDraft_Defaults(t *testing.T) {
	d := NewDraft("sess-1", "room-1")

	assert.Equal(t, booking.Hourly, d.Duration)
	assert.Equal(t, DefaultHourCount, d.HourCount)
	assert.Equal(t, DefaultStartHour, d.StartHour)
	assert.Empty(t, d.Resources)

	_, ok := d.ParsedDate()
	assert.False(t, ok)
}

func TestDraft_ParsedDate(t *testing.T) {
	d := &Draft{Date: "2024-06-01"}
	got, ok := d.ParsedDate()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), got)

	d.Date = "01.06.2024"
	_, ok = d.ParsedDate()
	assert.False(t, ok)
}

func TestDraft_Normalize(t *testing.T) {
	d := &Draft{HourCount: 0, Resources: []string{"a", "a", " "}, BookerName: "  Ann  ", Date: " 2024-06-01 "}
	d.Normalize()

	assert.Equal(t, booking.Hourly, d.Duration)
	assert.Equal(t, 1, d.HourCount)
	assert.Equal(t, []string{"a"}, d.Resources)
	assert.Equal(t, "Ann", d.BookerName)
	assert.Equal(t, "2024-06-01", d.Date)
}

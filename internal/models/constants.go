package models

import "time"

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

const (
	// DefaultDraftTTL lifetime of a draft in Redis
	DefaultDraftTTL = 24 * time.Hour

	// DefaultMaxBookingDays how far ahead a reservation may be placed
	DefaultMaxBookingDays = 365

	// DefaultCalendarDays days returned by the calendar endpoint when none are asked for
	DefaultCalendarDays = 30

	// MaxCalendarDays upper bound of a single calendar request
	MaxCalendarDays = 92

	// DefaultStartHour and DefaultHourCount seed a new draft
	DefaultStartHour = 9
	DefaultHourCount = 1

	// DefaultExportRangeDays export window when the request names none
	DefaultExportRangeDays = 31

	// MaxBookerNameLength bound on the booker name
	MaxBookerNameLength = 200
)

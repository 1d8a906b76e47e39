package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/api/v1/spaces", 200)
	})
}

func TestObserveReservation(t *testing.T) {
	before := testutil.ToFloat64(reservations.WithLabelValues("desk", "hourly"))
	revenueBefore := testutil.ToFloat64(revenue.WithLabelValues("desk"))

	ObserveReservation("desk", "hourly", 12.5)

	assert.Equal(t, before+1, testutil.ToFloat64(reservations.WithLabelValues("desk", "hourly")))
	assert.InDelta(t, revenueBefore+12.5, testutil.ToFloat64(revenue.WithLabelValues("desk")), 1e-9)
}

func TestIncConflictAndQuote(t *testing.T) {
	before := testutil.ToFloat64(conflicts)
	IncConflict()
	assert.Equal(t, before+1, testutil.ToFloat64(conflicts))

	q := testutil.ToFloat64(quotes.WithLabelValues("meeting_room", "daily"))
	IncQuote("meeting_room", "daily")
	assert.Equal(t, q+1, testutil.ToFloat64(quotes.WithLabelValues("meeting_room", "daily")))
}

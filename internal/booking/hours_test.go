package booking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourRange(t *testing.T) {
	tests := []struct {
		name  string
		start int
		count int
		want  []int
	}{
		{"single", 9, 1, []int{9}},
		{"span", 9, 3, []int{9, 10, 11}},
		{"past midnight", 23, 3, []int{23}},
		{"negative start", -2, 4, []int{0, 1}},
		{"zero count", 5, 0, []int{}},
		{"whole day", 0, 24, FullDay().Hours()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HourRange(tt.start, tt.count).Hours())
		})
	}
}

func TestHourSet_FreeAndFull(t *testing.T) {
	assert.True(t, FullDay().IsFull())
	assert.Empty(t, FullDay().Free())

	var s HourSet
	assert.Len(t, s.Free(), HoursPerDay)
	assert.Equal(t, []int{0, 23}, HourRange(1, 22).Free())
}

func TestHourSet_IgnoresOutOfRange(t *testing.T) {
	var s HourSet
	s = s.With(24).With(-1).With(30)
	assert.True(t, s.IsEmpty())
	assert.False(t, FullDay().Has(24))
}

func TestHourSet_JSON(t *testing.T) {
	data, err := json.Marshal(HourRange(9, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `[9,10,11]`, string(data))

	empty, err := json.Marshal(HourSet(0))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))

	var back HourSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, HourRange(9, 3), back)
}

func TestReservation_Hours(t *testing.T) {
	r := Reservation{Duration: Hourly, StartHour: 17, HourCount: 2}
	assert.Equal(t, []int{17, 18}, r.Hours().Hours())

	r = Reservation{Duration: Monthly, StartHour: 17, HourCount: 2}
	assert.True(t, r.Hours().IsFull())

	r = Reservation{Duration: Hourly, StartHour: 3, HourCount: 0}
	assert.True(t, r.Malformed())
	assert.True(t, r.Hours().IsEmpty())
}

func TestParseDurationClass(t *testing.T) {
	d, err := ParseDurationClass(" Daily ")
	require.NoError(t, err)
	assert.Equal(t, Daily, d)

	_, err = ParseDurationClass("weekly")
	assert.Error(t, err)
}

func TestDedupeIDs(t *testing.T) {
	got := DedupeIDs([]string{"projector", " parking", "", "projector", "parking "})
	assert.Equal(t, []string{"projector", "parking"}, got)
	assert.Empty(t, DedupeIDs(nil))
}

func TestRequestedHours(t *testing.T) {
	assert.Equal(t, []int{10, 11}, RequestedHours(Hourly, 10, 2).Hours())
	assert.True(t, RequestedHours(Daily, 10, 2).IsFull())
	assert.True(t, RequestedHours(Monthly, 0, 0).IsFull())
}

package booking

import (
	"encoding/json"
	"math/bits"
)

// HourSet is a set of hour indexes in [0,23], one bit per hour.
type HourSet uint32

const fullDay = HourSet(1<<HoursPerDay - 1)

func FullDay() HourSet {
	return fullDay
}

// HourRange returns the hours start..start+count-1. Indexes outside [0,23]
// are dropped, so a range running past midnight is truncated.
func HourRange(start, count int) HourSet {
	var s HourSet
	end := min(start+count, HoursPerDay)
	for h := max(start, 0); h < end; h++ {
		s = s.With(h)
	}
	return s
}

// RequestedHours is the set a new reservation of class d would occupy.
func RequestedHours(d DurationClass, start, count int) HourSet {
	if d != Hourly {
		return FullDay()
	}
	return HourRange(start, count)
}

func (s HourSet) Has(h int) bool {
	if h < 0 || h >= HoursPerDay {
		return false
	}
	return s&(1<<uint(h)) != 0
}

// With returns s plus hour h. Out of range hours are ignored.
func (s HourSet) With(h int) HourSet {
	if h < 0 || h >= HoursPerDay {
		return s
	}
	return s | 1<<uint(h)
}

func (s HourSet) Union(o HourSet) HourSet {
	return (s | o) & fullDay
}

func (s HourSet) Intersects(o HourSet) bool {
	return s&o != 0
}

// Conflicts reports whether any hour of start..start+count-1 is already in s.
func (s HourSet) Conflicts(start, count int) bool {
	return s.Intersects(HourRange(start, count))
}

func (s HourSet) Len() int {
	return bits.OnesCount32(uint32(s & fullDay))
}

func (s HourSet) IsFull() bool {
	return s&fullDay == fullDay
}

func (s HourSet) IsEmpty() bool {
	return s&fullDay == 0
}

// Hours lists the members in ascending order.
func (s HourSet) Hours() []int {
	out := make([]int, 0, s.Len())
	for h := 0; h < HoursPerDay; h++ {
		if s.Has(h) {
			out = append(out, h)
		}
	}
	return out
}

// Free lists the hours not in s in ascending order.
func (s HourSet) Free() []int {
	return (^s & fullDay).Hours()
}

func (s HourSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Hours())
}

func (s *HourSet) UnmarshalJSON(data []byte) error {
	var hours []int
	if err := json.Unmarshal(data, &hours); err != nil {
		return err
	}
	var out HourSet
	for _, h := range hours {
		out = out.With(h)
	}
	*s = out
	return nil
}

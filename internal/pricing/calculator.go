package pricing

import (
	"fmt"
	"math"

	"coworking/internal/booking"

	"github.com/rs/zerolog"
)

const (
	PeakStartHour  = 9
	PeakEndHour    = 17
	PeakMultiplier = 1.3
)

// IsPeakHour reports whether h falls in the surcharged window [9,17].
func IsPeakHour(h int) bool {
	return h >= PeakStartHour && h <= PeakEndHour
}

// Line is one priced add-on of a quote.
type Line struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// Quote is a price with its breakdown. Amounts are unrounded.
type Quote struct {
	Category  string                `json:"category"`
	Duration  booking.DurationClass `json:"duration"`
	BaseRate  float64               `json:"base_rate"`
	Hours     int                   `json:"hours"`
	PeakHours int                   `json:"peak_hours"`
	Base      float64               `json:"base"`
	Surcharge float64               `json:"surcharge"`
	AddOns    []Line                `json:"addons"`
	Total     float64               `json:"total"`
}

type Calculator struct {
	rates  RateTable
	addOns map[string]AddOn
	logger *zerolog.Logger
}

func NewCalculator(rates RateTable, logger *zerolog.Logger) *Calculator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	addOns := make(map[string]AddOn, len(rates.AddOns))
	for _, a := range rates.AddOns {
		addOns[a.ID] = a
	}
	return &Calculator{rates: rates, addOns: addOns, logger: logger}
}

// AddOns returns the add-on catalogue in configured order.
func (c *Calculator) AddOns() []AddOn {
	out := make([]AddOn, len(c.rates.AddOns))
	copy(out, c.rates.AddOns)
	return out
}

func (c *Calculator) Rates() RateTable {
	return c.rates
}

// Price is the total of Quote.
func (c *Calculator) Price(category string, d booking.DurationClass, hourCount int, addOnIDs []string, startHour int) float64 {
	return c.Quote(category, d, hourCount, addOnIDs, startHour).Total
}

// Quote prices a candidate reservation. Unknown categories, duration classes
// and add-ons contribute nothing.
func (c *Calculator) Quote(category string, d booking.DurationClass, hourCount int, addOnIDs []string, startHour int) Quote {
	q := Quote{Category: category, Duration: d, AddOns: []Line{}}

	rate, ok := c.rates.BaseRate(category, d)
	if !ok {
		c.logger.Debug().
			Str("category", category).
			Str("duration", string(d)).
			Msg("No base rate, pricing base at zero")
	}
	q.BaseRate = rate

	if d == booking.Hourly {
		// a request never spans more than a day
		hourCount = min(max(hourCount, 0), booking.HoursPerDay)
		for h := startHour; h < startHour+hourCount; h++ {
			q.Hours++
			if IsPeakHour(h) {
				q.PeakHours++
				q.Total += rate * PeakMultiplier
			} else {
				q.Total += rate
			}
		}
		q.Base = rate * float64(q.Hours)
		q.Surcharge = rate * (PeakMultiplier - 1) * float64(q.PeakHours)
	} else {
		q.Base = rate
		q.Total = rate
	}

	for _, id := range booking.DedupeIDs(addOnIDs) {
		a, ok := c.addOns[id]
		if !ok {
			c.logger.Debug().Str("addon", id).Msg("Unknown add-on, priced at zero")
			a = AddOn{ID: id, Label: id}
		}
		q.AddOns = append(q.AddOns, Line{ID: a.ID, Label: a.Label, Price: a.Price})
		q.Total += a.Price
	}

	return q
}

// Round rounds an amount to cents for presentation.
func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}

func Format(amount float64) string {
	return fmt.Sprintf("%.2f", Round(amount))
}

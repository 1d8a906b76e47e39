package pricing

import (
	"fmt"
	"os"

	"coworking/internal/booking"

	"gopkg.in/yaml.v2"
)

// CategoryRates are the base rates of one space category.
type CategoryRates struct {
	Hourly  float64 `yaml:"hourly" json:"hourly"`
	Daily   float64 `yaml:"daily" json:"daily"`
	Monthly float64 `yaml:"monthly" json:"monthly"`
}

type AddOn struct {
	ID    string  `yaml:"id" json:"id"`
	Label string  `yaml:"label" json:"label"`
	Price float64 `yaml:"price" json:"price"`
}

// RateTable holds every price the calculator knows about.
type RateTable struct {
	Categories map[string]CategoryRates `yaml:"categories" json:"categories"`
	AddOns     []AddOn                  `yaml:"addons" json:"addons"`
}

func DefaultRateTable() RateTable {
	return RateTable{
		Categories: map[string]CategoryRates{
			"desk":           {Hourly: 5, Daily: 25, Monthly: 300},
			"meeting_room":   {Hourly: 25, Daily: 150, Monthly: 2000},
			"private_office": {Hourly: 15, Daily: 90, Monthly: 1200},
			"event_space":    {Hourly: 60, Daily: 400, Monthly: 5000},
		},
		AddOns: []AddOn{
			{ID: "projector", Label: "Projector", Price: 15},
			{ID: "whiteboard", Label: "Whiteboard", Price: 5},
			{ID: "parking", Label: "Parking", Price: 10},
			{ID: "lockers", Label: "Lockers", Price: 8},
			{ID: "printer", Label: "Printer", Price: 12},
		},
	}
}

func (t RateTable) IsEmpty() bool {
	return len(t.Categories) == 0 && len(t.AddOns) == 0
}

// BaseRate returns the rate for the category and duration class.
func (t RateTable) BaseRate(category string, d booking.DurationClass) (float64, bool) {
	rates, ok := t.Categories[category]
	if !ok {
		return 0, false
	}
	switch d {
	case booking.Hourly:
		return rates.Hourly, true
	case booking.Daily:
		return rates.Daily, true
	case booking.Monthly:
		return rates.Monthly, true
	}
	return 0, false
}

func (t RateTable) Validate() error {
	for name, r := range t.Categories {
		if name == "" {
			return fmt.Errorf("rates: empty category name")
		}
		if r.Hourly < 0 || r.Daily < 0 || r.Monthly < 0 {
			return fmt.Errorf("rates: negative rate for category %q", name)
		}
	}

	seen := make(map[string]struct{}, len(t.AddOns))
	for _, a := range t.AddOns {
		if a.ID == "" {
			return fmt.Errorf("rates: add-on without id")
		}
		if a.Price < 0 {
			return fmt.Errorf("rates: negative price for add-on %q", a.ID)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("rates: duplicate add-on %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// LoadRateTable reads a standalone rates file.
func LoadRateTable(path string) (RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RateTable{}, fmt.Errorf("read rates file: %w", err)
	}

	var table RateTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return RateTable{}, fmt.Errorf("parse rates file: %w", err)
	}
	if err := table.Validate(); err != nil {
		return RateTable{}, err
	}
	return table, nil
}

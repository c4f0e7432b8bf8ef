package models

import "strings"

// OpeningHours описывает часы работы тира в один день недели, "HH:MM" 24ч.
type OpeningHours struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// IsZero reports whether the day has no usable hours (closed day).
func (o OpeningHours) IsZero() bool {
	return strings.TrimSpace(o.Start) == "" || strings.TrimSpace(o.End) == ""
}

// Range is a shooting facility that can be booked. Read-only for the booking
// core: ranges are loaded from configs/ranges.yaml and never mutated at runtime.
type Range struct {
	ID                 string                  `yaml:"id" json:"id"`
	Name               string                  `yaml:"name" json:"name"`
	Description        string                  `yaml:"description" json:"description,omitempty"`
	PricePerHour       string                  `yaml:"price_per_hour" json:"price_per_hour"`
	MaxBookingsPerSlot int64                   `yaml:"max_bookings_per_slot" json:"max_bookings_per_slot"`
	OpeningHours       map[string]OpeningHours `yaml:"opening_hours" json:"opening_hours"`
	SortOrder          int64                   `yaml:"sort_order" json:"sort_order"`
	IsActive           bool                    `yaml:"is_active" json:"is_active"`
}

// Capacity returns the effective shooters-per-slot limit.
func (r *Range) Capacity() int64 {
	if r == nil || r.MaxBookingsPerSlot <= 0 {
		return DefaultMaxBookingsPerSlot
	}
	return r.MaxBookingsPerSlot
}

// HoursFor returns the opening hours for a weekday name ("Monday"..."Sunday"),
// or nil when the range is closed that day.
func (r *Range) HoursFor(weekday string) *OpeningHours {
	if r == nil || r.OpeningHours == nil {
		return nil
	}
	hours, ok := r.OpeningHours[weekday]
	if !ok || hours.IsZero() {
		return nil
	}
	return &hours
}

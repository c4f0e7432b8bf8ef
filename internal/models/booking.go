package models

import "time"

// BookingDraft is an unpersisted booking request pending payment confirmation.
// It is built by the composer and discarded if the user cancels.
type BookingDraft struct {
	RangeID      string    `json:"range_id"`
	RangeName    string    `json:"range_name"`
	UserID       int64     `json:"user_id"`
	UserName     string    `json:"user_name"`
	PricePerHour string    `json:"price_per_hour"`
	ShooterCount int64     `json:"shooter_count"`
	SlotID       string    `json:"slot_id"`
	SlotDisplay  string    `json:"slot_display"`
	Date         time.Time `json:"date"`
	DateDisplay  string    `json:"date_display"`
	Weekday      string    `json:"weekday"`
	TotalPrice   float64   `json:"total_price"`
	CreatedAt    time.Time `json:"created_at"`
}

// Booking is a committed booking record. Created exactly once per successful
// payment confirmation and immutable afterwards in this core's scope.
type Booking struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"` // BK{unix-millis}{5 base36 chars}
	RangeID       string    `json:"range_id"`
	RangeName     string    `json:"range_name"`
	UserID        int64     `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserNickname  string    `json:"user_nickname"`
	Phone         string    `json:"phone"`
	Date          time.Time `json:"date"`
	SlotID        string    `json:"slot_id"`
	SlotDisplay   string    `json:"slot_display"`
	ShooterCount  int64     `json:"shooter_count"`
	PricePerHour  string    `json:"price_per_hour"`
	TotalPrice    float64   `json:"total_price"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"` // pending for cash
	Status        string    `json:"status"`         // confirmed, cancelled
	Visited       bool      `json:"visited"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Availability summarizes how many shooters already booked a slot.
type Availability struct {
	Date      time.Time `json:"date"`
	RangeID   string    `json:"range_id"`
	SlotID    string    `json:"slot_id"`
	Booked    int64     `json:"booked"`
	Available int64     `json:"available"`
}

package database

import "errors"

var (
	// ErrSlotUnavailable возвращается, когда вместимость слота исчерпана
	ErrSlotUnavailable = errors.New("slot capacity exceeded")

	// ErrRangeNotFound неизвестный идентификатор тира
	ErrRangeNotFound = errors.New("range not found")

	// ErrBookingNotFound бронь не найдена
	ErrBookingNotFound = errors.New("booking not found")
)

package service

import "errors"

// Ошибки валидации при сборке брони. Каждая соответствует своему
// пользовательскому уведомлению.
var (
	ErrUnauthenticated     = errors.New("user is not authenticated")
	ErrMissingDate         = errors.New("booking date is not selected")
	ErrMissingSlot         = errors.New("time slot is not selected")
	ErrInvalidShooterCount = errors.New("shooter count is out of range")
	ErrRangeUnavailable    = errors.New("range is closed on the selected date")
)

// Ошибки платежного цикла.
var (
	ErrPaymentMethodUnavailable = errors.New("payment method is not available yet")
	ErrInvalidPaymentMethod     = errors.New("payment method cannot be confirmed")
	ErrCommitInFlight           = errors.New("booking commit already in progress")
	ErrInvalidFlowState         = errors.New("operation not allowed in current flow state")
)

package models

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	PaymentStatusPending = "pending"

	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodOnline = "online"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	StateMainMenu     = "main_menu"
	StateSelectRange  = "select_range"
	StateSelectDate   = "select_date"
	StateSelectSlot   = "select_slot"
	StateShooterCount = "shooter_count"
	StatePayment      = "payment"
)

const (
	// DefaultMaxBookingsPerSlot вместимость слота, если тир её не задал
	DefaultMaxBookingsPerSlot = 5

	// SlotDurationMinutes длительность одного слота
	SlotDurationMinutes = 60

	// DefaultRedisTTL время жизни состояния пользователя в Redis
	DefaultRedisTTL = 24 * 60 * 60 // 24 часа в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// SuccessDisplaySeconds задержка перед возвратом в меню после оплаты
	SuccessDisplaySeconds = 3
)

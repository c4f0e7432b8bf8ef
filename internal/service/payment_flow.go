package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"rangebook/internal/models"

	"github.com/rs/zerolog"
)

// FlowState состояние платежного цикла одной брони.
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowAwaitingMethod
	FlowConfirming
	FlowSucceeded
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowAwaitingMethod:
		return "awaiting_method"
	case FlowConfirming:
		return "confirming"
	case FlowSucceeded:
		return "succeeded"
	case FlowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PaymentFlow ведет одну бронь от черновика до записи в хранилище.
// Сейчас принимается только наличная оплата: выбор карты или онлайн-оплаты
// отклоняется без смены состояния. Confirm защищен от повторного входа,
// пока коммит не завершился.
type PaymentFlow struct {
	bookings *BookingService
	logger   *zerolog.Logger

	mu      sync.Mutex
	state   FlowState
	draft   *models.BookingDraft
	method  string
	booking *models.Booking
	lastErr error

	// задержка показа экрана успеха перед возвратом в меню
	completionDelay time.Duration
	onComplete      func(booking *models.Booking)
}

func NewPaymentFlow(bookings *BookingService, logger *zerolog.Logger) *PaymentFlow {
	return &PaymentFlow{
		bookings:        bookings,
		logger:          logger,
		state:           FlowIdle,
		completionDelay: models.SuccessDisplaySeconds * time.Second,
	}
}

// SetOnComplete задает колбэк, вызываемый через completionDelay после
// успешной оплаты. Используется ботом для возврата в главное меню.
func (f *PaymentFlow) SetOnComplete(delay time.Duration, fn func(booking *models.Booking)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if delay > 0 {
		f.completionDelay = delay
	}
	f.onComplete = fn
}

// Begin переводит цикл из Idle в выбор способа оплаты.
func (f *PaymentFlow) Begin(draft *models.BookingDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FlowIdle {
		return ErrInvalidFlowState
	}
	if draft == nil {
		return ErrMissingSlot
	}

	f.draft = draft
	f.method = ""
	f.booking = nil
	f.lastErr = nil
	f.state = FlowAwaitingMethod
	return nil
}

// SelectMethod фиксирует способ оплаты. Карта и онлайн пока не подключены:
// возвращается ErrPaymentMethodUnavailable, состояние не меняется.
func (f *PaymentFlow) SelectMethod(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FlowAwaitingMethod {
		return ErrInvalidFlowState
	}

	switch method {
	case models.PaymentMethodCash:
		f.method = method
		return nil
	case models.PaymentMethodCard, models.PaymentMethodOnline:
		return ErrPaymentMethodUnavailable
	default:
		return ErrPaymentMethodUnavailable
	}
}

// Confirm коммитит бронь. Повторный вызов во время коммита возвращает
// ErrCommitInFlight. Успех переводит цикл в Succeeded и запускает таймер
// onComplete; ошибка хранилища переводит в Failed с сохранением причины.
func (f *PaymentFlow) Confirm(ctx context.Context) (*models.Booking, error) {
	f.mu.Lock()
	switch f.state {
	case FlowConfirming:
		f.mu.Unlock()
		return nil, ErrCommitInFlight
	case FlowAwaitingMethod:
		// ok
	default:
		f.mu.Unlock()
		return nil, ErrInvalidFlowState
	}

	if f.method != models.PaymentMethodCash {
		f.mu.Unlock()
		return nil, ErrInvalidPaymentMethod
	}

	draft := f.draft
	f.state = FlowConfirming
	f.mu.Unlock()

	booking := buildBooking(draft, f.method, f.bookings.clock.Now())

	// Коммит идет без удержания мьютекса: защитой от повторного входа
	// служит состояние FlowConfirming.
	err := f.bookings.CommitBooking(ctx, booking)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = FlowFailed
		f.lastErr = err
		if f.logger != nil {
			f.logger.Error().Err(err).Str("code", booking.Code).Msg("Коммит брони не прошел")
		}
		return nil, err
	}

	f.state = FlowSucceeded
	f.booking = booking
	if f.logger != nil {
		f.logger.Info().Str("code", booking.Code).Float64("total", booking.TotalPrice).Msg("Бронь оплачена")
	}

	if f.onComplete != nil {
		fn := f.onComplete
		time.AfterFunc(f.completionDelay, func() { fn(booking) })
	}
	return booking, nil
}

// Retry возвращает цикл из Failed к выбору способа оплаты, сохраняя черновик.
func (f *PaymentFlow) Retry() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FlowFailed {
		return ErrInvalidFlowState
	}
	f.state = FlowAwaitingMethod
	f.lastErr = nil
	return nil
}

// Cancel сбрасывает цикл. Разрешен только до начала коммита.
func (f *PaymentFlow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case FlowIdle, FlowAwaitingMethod, FlowFailed:
		f.state = FlowIdle
		f.draft = nil
		f.method = ""
		f.booking = nil
		f.lastErr = nil
		return nil
	default:
		return ErrInvalidFlowState
	}
}

func (f *PaymentFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *PaymentFlow) Draft() *models.BookingDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *PaymentFlow) Booking() *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.booking
}

func (f *PaymentFlow) LastErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func buildBooking(draft *models.BookingDraft, method string, now time.Time) *models.Booking {
	return &models.Booking{
		Code:          newBookingCode(now),
		RangeID:       draft.RangeID,
		RangeName:     draft.RangeName,
		UserID:        draft.UserID,
		UserName:      draft.UserName,
		Date:          draft.Date,
		SlotID:        draft.SlotID,
		SlotDisplay:   draft.SlotDisplay,
		ShooterCount:  draft.ShooterCount,
		PricePerHour:  draft.PricePerHour,
		TotalPrice:    draft.TotalPrice,
		PaymentMethod: method,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.StatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newBookingCode собирает код вида BK{unix-millis}{5 символов base36}.
// Миллисекундная метка делает коллизии практически невозможными даже без
// проверки уникальности суффикса.
func newBookingCode(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("BK")
	sb.WriteString(fmt.Sprintf("%d", now.UnixMilli()))
	for i := 0; i < 5; i++ {
		sb.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return sb.String()
}

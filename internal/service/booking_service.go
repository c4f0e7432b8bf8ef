package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"rangebook/internal/database"
	"rangebook/internal/domain"
	"rangebook/internal/events"
	"rangebook/internal/models"
	"rangebook/internal/schedule"

	"github.com/rs/zerolog"
)

// BookingRequest это сырой ввод пользователя до валидации.
type BookingRequest struct {
	Range        *models.Range
	User         *models.User
	Date         time.Time
	Slot         *models.Slot
	ShooterCount int64
}

type BookingService struct {
	repo           domain.Repository
	eventBus       domain.EventPublisher
	sheetsWorker   domain.SyncWorker
	clock          domain.Clock
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, clock domain.Clock, maxBookingDays int, logger *zerolog.Logger) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = 365
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &BookingService{
		repo:           repo,
		eventBus:       eventBus,
		sheetsWorker:   sheetsWorker,
		clock:          clock,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

// ComposeBooking валидирует запрос и собирает черновик брони.
// Порядок проверок фиксирован: сначала пользователь, потом дата, слот,
// количество стрелков и часы работы тира.
func (s *BookingService) ComposeBooking(req BookingRequest) (*models.BookingDraft, error) {
	if req.User == nil || req.User.TelegramID == 0 {
		return nil, ErrUnauthenticated
	}
	if req.Date.IsZero() {
		return nil, ErrMissingDate
	}
	if req.Slot == nil || req.Slot.ID == "" {
		return nil, ErrMissingSlot
	}

	capacity := req.Range.Capacity()
	if req.ShooterCount < 1 || req.ShooterCount > capacity {
		return nil, ErrInvalidShooterCount
	}

	weekday := req.Date.Weekday().String()
	if req.Range == nil || req.Range.ID == "" || req.Range.HoursFor(weekday) == nil {
		return nil, ErrRangeUnavailable
	}

	price, err := strconv.ParseFloat(req.Range.PricePerHour, 64)
	if err != nil {
		price = 0
	}

	now := s.clock.Now()
	return &models.BookingDraft{
		RangeID:      req.Range.ID,
		RangeName:    req.Range.Name,
		UserID:       req.User.TelegramID,
		UserName:     req.User.DisplayName(),
		PricePerHour: req.Range.PricePerHour,
		ShooterCount: req.ShooterCount,
		SlotID:       req.Slot.ID,
		SlotDisplay:  req.Slot.Display,
		Date:         req.Date,
		DateDisplay:  req.Date.Format("02.01.2006"),
		Weekday:      weekday,
		TotalPrice:   price * float64(req.ShooterCount),
		CreatedAt:    now,
	}, nil
}

// ValidateBookingDate отсекает прошлое и даты дальше горизонта бронирования.
func (s *BookingService) ValidateBookingDate(date time.Time) error {
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return ErrMissingDate
	}
	if date.After(now.AddDate(0, 0, s.maxBookingDays)) {
		return ErrMissingDate
	}
	return nil
}

// CommitBooking записывает бронь в хранилище, публикует событие и ставит
// задачу синхронизации. Проверка вместимости происходит внутри транзакции
// хранилища, поэтому параллельные коммиты в один слот безопасны.
func (s *BookingService) CommitBooking(ctx context.Context, booking *models.Booking) error {
	if err := s.repo.CommitBookingWithLock(ctx, booking); err != nil {
		s.publishFailure(booking, err)
		return err
	}

	s.publishEvent(events.EventBookingCommitted, booking, "")
	s.enqueueSync(ctx, booking, "upsert")

	return nil
}

// AvailableSlots возвращает слоты тира на дату с учётом уже занятых мест.
// Слоты, где свободных мест меньше requested, исключаются; requested <= 0
// трактуется как один стрелок.
func (s *BookingService) AvailableSlots(ctx context.Context, rng *models.Range, date time.Time, requested int64) ([]models.Slot, map[string]int64, error) {
	if rng == nil {
		return nil, nil, database.ErrRangeNotFound
	}
	if requested <= 0 {
		requested = 1
	}

	slots := schedule.GenerateSlots(date, rng.HoursFor(date.Weekday().String()), s.clock.Now())
	if len(slots) == 0 {
		return nil, nil, nil
	}

	booked, err := s.repo.GetSlotBookedCounts(ctx, rng.ID, date)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load slot occupancy: %w", err)
	}

	capacity := rng.Capacity()
	remaining := make(map[string]int64, len(slots))
	free := make([]models.Slot, 0, len(slots))
	for _, slot := range slots {
		left := capacity - booked[slot.ID]
		if left < 0 {
			left = 0
		}
		remaining[slot.ID] = left
		if left >= requested {
			free = append(free, slot)
		}
	}
	return free, remaining, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	return s.repo.GetBookingByCode(ctx, code)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	return s.repo.GetDailyBookings(ctx, start, end)
}

func (s *BookingService) GetRanges() []models.Range {
	return s.repo.GetRanges()
}

func (s *BookingService) GetRangeByID(id string) (*models.Range, error) {
	return s.repo.GetRangeByID(id)
}

func (s *BookingService) MaxBookingDays() int {
	return s.maxBookingDays
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, errMsg string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     booking.ID,
		Code:          booking.Code,
		UserID:        booking.UserID,
		UserName:      booking.UserName,
		RangeID:       booking.RangeID,
		RangeName:     booking.RangeName,
		Date:          booking.Date,
		SlotID:        booking.SlotID,
		SlotDisplay:   booking.SlotDisplay,
		ShooterCount:  booking.ShooterCount,
		TotalPrice:    booking.TotalPrice,
		Status:        booking.Status,
		PaymentMethod: booking.PaymentMethod,
		Error:         errMsg,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) publishFailure(booking *models.Booking, cause error) {
	s.publishEvent(events.EventCommitFailed, booking, cause.Error())
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = booking.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

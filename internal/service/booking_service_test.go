package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"rangebook/internal/database"
	"rangebook/internal/domain"
	"rangebook/internal/events"
	"rangebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo реализует domain.Repository в памяти для тестов сервисов.
type stubRepo struct {
	mu           sync.Mutex
	ranges       map[string]models.Range
	bookings     []*models.Booking
	bookedCounts map[string]int64
	commitErr    error
	commitGate   chan struct{} // если задан, коммит ждет закрытия канала
	commitCalls  int
}

func newStubRepo(ranges ...models.Range) *stubRepo {
	r := &stubRepo{
		ranges:       make(map[string]models.Range),
		bookedCounts: make(map[string]int64),
	}
	for _, rng := range ranges {
		r.ranges[rng.ID] = rng
	}
	return r
}

func (r *stubRepo) CommitBookingWithLock(ctx context.Context, booking *models.Booking) error {
	if r.commitGate != nil {
		<-r.commitGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitCalls++
	if r.commitErr != nil {
		return r.commitErr
	}
	booking.ID = int64(len(r.bookings) + 1)
	r.bookings = append(r.bookings, booking)
	r.bookedCounts[booking.SlotID] += booking.ShooterCount
	return nil
}

func (r *stubRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, database.ErrBookingNotFound
}

func (r *stubRepo) GetBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.Code == code {
			return b, nil
		}
	}
	return nil, database.ErrBookingNotFound
}

func (r *stubRepo) GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return nil, nil
}

func (r *stubRepo) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return nil, nil
}

func (r *stubRepo) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	return nil, nil
}

func (r *stubRepo) GetSlotBookedCounts(ctx context.Context, rangeID string, date time.Time) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.bookedCounts))
	for k, v := range r.bookedCounts {
		out[k] = v
	}
	return out, nil
}

func (r *stubRepo) GetRanges() []models.Range {
	out := make([]models.Range, 0, len(r.ranges))
	for _, rng := range r.ranges {
		out = append(out, rng)
	}
	return out
}

func (r *stubRepo) GetRangeByID(id string) (*models.Range, error) {
	rng, ok := r.ranges[id]
	if !ok {
		return nil, database.ErrRangeNotFound
	}
	return &rng, nil
}

func (r *stubRepo) GetAllUsers(ctx context.Context) ([]*models.User, error) { return nil, nil }
func (r *stubRepo) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return nil, nil
}
func (r *stubRepo) CreateOrUpdateUser(ctx context.Context, user *models.User) error { return nil }
func (r *stubRepo) UpdateUserActivity(ctx context.Context, telegramID int64) error  { return nil }
func (r *stubRepo) UpdateUserPhone(ctx context.Context, telegramID int64, phone string) error {
	return nil
}
func (r *stubRepo) GetActiveUsers(ctx context.Context, days int) ([]*models.User, error) {
	return nil, nil
}
func (r *stubRepo) GetUsersByManagerStatus(ctx context.Context, isManager bool) ([]*models.User, error) {
	return nil, nil
}

func weekHours(start, end string) map[string]models.OpeningHours {
	hours := models.OpeningHours{Start: start, End: end}
	week := make(map[string]models.OpeningHours)
	for _, day := range []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"} {
		week[day] = hours
	}
	return week
}

func testRange() *models.Range {
	return &models.Range{
		ID:                 "pistol-25",
		Name:               "Пистолетный тир",
		PricePerHour:       "2500",
		MaxBookingsPerSlot: 5,
		OpeningHours:       weekHours("09:00", "13:00"),
		IsActive:           true,
	}
}

func testUser() *models.User {
	return &models.User{TelegramID: 42, FirstName: "Иван", LastName: "Петров"}
}

func newTestBookingService(repo domain.Repository, clock domain.Clock) *BookingService {
	logger := zerolog.Nop()
	return NewBookingService(repo, nil, nil, clock, 30, &logger)
}

func TestComposeBooking(t *testing.T) {
	clock := domain.FixedClock{T: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	svc := newTestBookingService(newStubRepo(), clock)

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	slot := &models.Slot{ID: "09:00-10:00", Display: "9:00 AM - 10:00 AM"}

	valid := func() BookingRequest {
		return BookingRequest{
			Range:        testRange(),
			User:         testUser(),
			Date:         date,
			Slot:         slot,
			ShooterCount: 3,
		}
	}

	t.Run("HappyPath", func(t *testing.T) {
		draft, err := svc.ComposeBooking(valid())
		require.NoError(t, err)

		assert.Equal(t, "pistol-25", draft.RangeID)
		assert.Equal(t, int64(42), draft.UserID)
		assert.Equal(t, "Иван Петров", draft.UserName)
		assert.Equal(t, "10.03.2025", draft.DateDisplay)
		assert.Equal(t, "Monday", draft.Weekday)
		assert.Equal(t, float64(7500), draft.TotalPrice)
		assert.Equal(t, clock.T, draft.CreatedAt)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		req := valid()
		req.User = nil
		_, err := svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrUnauthenticated)

		req = valid()
		req.User = &models.User{}
		_, err = svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("MissingDate", func(t *testing.T) {
		req := valid()
		req.Date = time.Time{}
		_, err := svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrMissingDate)
	})

	t.Run("MissingSlot", func(t *testing.T) {
		req := valid()
		req.Slot = nil
		_, err := svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrMissingSlot)

		req = valid()
		req.Slot = &models.Slot{}
		_, err = svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrMissingSlot)
	})

	t.Run("InvalidShooterCount", func(t *testing.T) {
		req := valid()
		req.ShooterCount = 0
		_, err := svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrInvalidShooterCount)

		req = valid()
		req.ShooterCount = 6 // вместимость 5
		_, err = svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrInvalidShooterCount)
	})

	t.Run("RangeUnavailable", func(t *testing.T) {
		req := valid()
		req.Range = nil
		_, err := svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrRangeUnavailable)

		// тир без идентификатора тоже считается недоступным
		req = valid()
		rng := testRange()
		rng.ID = ""
		req.Range = rng
		_, err = svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrRangeUnavailable)

		// тир закрыт в выбранный день недели
		req = valid()
		rng = testRange()
		delete(rng.OpeningHours, "Monday")
		req.Range = rng
		_, err = svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrRangeUnavailable)
	})

	t.Run("ValidationOrder", func(t *testing.T) {
		// при нескольких дефектах побеждает первый по порядку проверок
		req := BookingRequest{Range: nil, User: nil, ShooterCount: 0}
		_, err := svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrUnauthenticated)

		req = BookingRequest{Range: nil, User: testUser(), Date: date, Slot: slot, ShooterCount: 99}
		_, err = svc.ComposeBooking(req)
		assert.ErrorIs(t, err, ErrInvalidShooterCount)
	})
}

func TestValidateBookingDate(t *testing.T) {
	clock := domain.FixedClock{T: time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)}
	svc := newTestBookingService(newStubRepo(), clock)

	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, svc.ValidateBookingDate(today))
	assert.NoError(t, svc.ValidateBookingDate(today.AddDate(0, 0, 30)))
	assert.Error(t, svc.ValidateBookingDate(today.AddDate(0, 0, -1)))
	assert.Error(t, svc.ValidateBookingDate(today.AddDate(0, 0, 31)))
}

func TestAvailableSlots(t *testing.T) {
	clock := domain.FixedClock{T: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rng := testRange()

	repo := newStubRepo(*rng)
	repo.bookedCounts["09:00-10:00"] = 5 // полностью занят
	repo.bookedCounts["10:00-11:00"] = 3 // осталось 2 места

	svc := newTestBookingService(repo, clock)

	t.Run("SingleShooter", func(t *testing.T) {
		slots, remaining, err := svc.AvailableSlots(context.Background(), rng, date, 1)
		require.NoError(t, err)

		ids := make([]string, 0, len(slots))
		for _, s := range slots {
			ids = append(ids, s.ID)
		}
		assert.Equal(t, []string{"10:00-11:00", "11:00-12:00", "12:00-13:00"}, ids)
		assert.Equal(t, int64(2), remaining["10:00-11:00"])
		assert.Equal(t, int64(5), remaining["11:00-12:00"])
	})

	t.Run("GroupDoesNotFit", func(t *testing.T) {
		slots, _, err := svc.AvailableSlots(context.Background(), rng, date, 3)
		require.NoError(t, err)

		for _, s := range slots {
			assert.NotEqual(t, "10:00-11:00", s.ID)
		}
		assert.Len(t, slots, 2)
	})

	t.Run("ZeroRequestedMeansOne", func(t *testing.T) {
		slots, _, err := svc.AvailableSlots(context.Background(), rng, date, 0)
		require.NoError(t, err)
		assert.Len(t, slots, 3)
	})
}

func TestCommitBookingPublishesEvents(t *testing.T) {
	clock := domain.FixedClock{T: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	logger := zerolog.Nop()

	t.Run("Success", func(t *testing.T) {
		repo := newStubRepo(*testRange())
		bus := events.NewEventBus()
		svc := NewBookingService(repo, bus, nil, clock, 30, &logger)

		var got []string
		var mu sync.Mutex
		bus.Subscribe(events.EventBookingCommitted, func(ev *events.Event) error {
			mu.Lock()
			got = append(got, ev.Type)
			mu.Unlock()
			return nil
		})

		booking := &models.Booking{Code: "BK1", RangeID: "pistol-25", SlotID: "09:00-10:00", ShooterCount: 2}
		require.NoError(t, svc.CommitBooking(context.Background(), booking))
		assert.NotZero(t, booking.ID)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{events.EventBookingCommitted}, got)
	})

	t.Run("Failure", func(t *testing.T) {
		repo := newStubRepo(*testRange())
		repo.commitErr = database.ErrSlotUnavailable
		bus := events.NewEventBus()
		svc := NewBookingService(repo, bus, nil, clock, 30, &logger)

		var failures int
		var mu sync.Mutex
		bus.Subscribe(events.EventCommitFailed, func(ev *events.Event) error {
			mu.Lock()
			failures++
			mu.Unlock()
			return nil
		})

		booking := &models.Booking{Code: "BK2", RangeID: "pistol-25", SlotID: "09:00-10:00", ShooterCount: 2}
		err := svc.CommitBooking(context.Background(), booking)
		assert.ErrorIs(t, err, database.ErrSlotUnavailable)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, failures)
	})
}

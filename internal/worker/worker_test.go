package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rangebook/internal/database"
	"rangebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	assert.Equal(t, 8*time.Second, policy.NextDelay(4))
	// ограничение сверху
	assert.Equal(t, 10*time.Second, policy.NextDelay(5))
	// некорректная попытка трактуется как первая
	assert.Equal(t, time.Second, policy.NextDelay(0))
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy := RetryPolicy{}
	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
}

// fakeSheets записывает вызовы, имитируя Google Sheets.
type fakeSheets struct {
	upserts  []int64
	appends  []int64
	statuses map[int64]string
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{statuses: make(map[int64]string)}
}

func (f *fakeSheets) AppendBooking(ctx context.Context, booking *models.Booking) error {
	f.appends = append(f.appends, booking.ID)
	return nil
}

func (f *fakeSheets) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	f.upserts = append(f.upserts, booking.ID)
	return nil
}

func (f *fakeSheets) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	f.statuses[bookingID] = status
	return nil
}

func (f *fakeSheets) ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error {
	return nil
}

func newWorkerTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "worker_test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnqueueTask(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	db := newWorkerTestDB(t)
	w := NewSheetsWorker(db, newFakeSheets(), nil, RetryPolicy{}, &logger)

	t.Run("PersistsToDatabase", func(t *testing.T) {
		booking := &models.Booking{ID: 7, Code: "BK7"}
		require.NoError(t, w.EnqueueTask(ctx, TaskUpsert, booking.ID, booking, ""))

		tasks, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, TaskUpsert, tasks[0].TaskType)
		assert.Equal(t, int64(7), tasks[0].BookingID)
	})

	t.Run("RequiresTaskType", func(t *testing.T) {
		err := w.EnqueueTask(ctx, "", 7, nil, "")
		assert.Error(t, err)
	})

	t.Run("RequiresBookingID", func(t *testing.T) {
		err := w.EnqueueTask(ctx, TaskUpsert, 0, nil, "")
		assert.Error(t, err)
	})

	t.Run("BookingIDFromPayload", func(t *testing.T) {
		booking := &models.Booking{ID: 9, Code: "BK9"}
		assert.NoError(t, w.EnqueueTask(ctx, TaskUpsert, 0, booking, ""))
	})
}

func TestProcessTask(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	db := newWorkerTestDB(t)
	sheets := newFakeSheets()
	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, &logger)

	booking := &models.Booking{ID: 7, Code: "BK7", Status: models.StatusConfirmed}
	require.NoError(t, w.EnqueueTask(ctx, TaskUpsert, booking.ID, booking, ""))
	require.NoError(t, w.EnqueueTask(ctx, TaskUpdateStatus, booking.ID, nil, models.StatusCancelled))

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}

	assert.Equal(t, []int64{7}, sheets.upserts)
	assert.Equal(t, models.StatusCancelled, sheets.statuses[7])

	// все задачи выполнены, очередь пуста
	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUnknownTaskTypeFails(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	db := newWorkerTestDB(t)
	w := NewSheetsWorker(db, newFakeSheets(), nil, RetryPolicy{MaxRetries: 1}, &logger)

	booking := &models.Booking{ID: 3, Code: "BK3"}
	require.NoError(t, w.EnqueueTask(ctx, "bogus", booking.ID, booking, ""))

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	w.processTask(ctx, &tasks[0])

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

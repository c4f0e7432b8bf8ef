package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"rangebook/internal/config"
	"rangebook/internal/database"
	"rangebook/internal/domain"
	"rangebook/internal/models"
	"rangebook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api_test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hours := models.OpeningHours{Start: "09:00", End: "13:00"}
	week := make(map[string]models.OpeningHours)
	for _, day := range []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"} {
		week[day] = hours
	}
	db.SetRanges([]models.Range{{
		ID:                 "pistol-25",
		Name:               "Пистолетный тир",
		PricePerHour:       "2500",
		MaxBookingsPerSlot: 5,
		OpeningHours:       week,
		IsActive:           true,
	}})

	bookings := service.NewBookingService(db, nil, nil, domain.SystemClock{}, 30, &logger)

	cfg := config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys:      []config.APIClientKey{{Key: testAPIKey, Name: "test"}},
		},
	}

	return NewHTTPServer(cfg, bookings, &logger)
}

func doRequest(t *testing.T, srv *HTTPServer, method, path, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHTTPServerAuth(t *testing.T) {
	srv := newTestServer(t)

	t.Run("HealthzWithoutKey", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MissingKey", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/ranges", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("WrongKey", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/ranges", "wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ValidKey", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/ranges", testAPIKey)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHandleRanges(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ranges", testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ranges []models.Range `json:"ranges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Ranges, 1)
	assert.Equal(t, "pistol-25", body.Ranges[0].ID)

	t.Run("MethodNotAllowed", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/ranges", testAPIKey)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleSlots(t *testing.T) {
	srv := newTestServer(t)
	futureDate := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	t.Run("ReturnsSlots", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/slots/pistol-25?date="+futureDate, testAPIKey)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			RangeID string `json:"range_id"`
			Date    string `json:"date"`
			Slots   []struct {
				ID        string `json:"id"`
				Display   string `json:"display"`
				Remaining int64  `json:"remaining"`
			} `json:"slots"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "pistol-25", body.RangeID)
		assert.Equal(t, futureDate, body.Date)
		require.Len(t, body.Slots, 4)
		assert.Equal(t, "09:00-10:00", body.Slots[0].ID)
		assert.Equal(t, int64(5), body.Slots[0].Remaining)
	})

	t.Run("ShootersFilter", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/slots/pistol-25?date="+futureDate+"&shooters=5", testAPIKey)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("UnknownRange", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/slots/no-such?date="+futureDate, testAPIKey)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("MissingDate", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/slots/pistol-25", testAPIKey)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("BadDate", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/slots/pistol-25?date=10.03.2025", testAPIKey)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("BadShooters", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/slots/pistol-25?date="+futureDate+"&shooters=0", testAPIKey)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MissingRangeID", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/slots/?date="+futureDate, testAPIKey)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rangebook/internal/api"
	"rangebook/internal/config"
	"rangebook/internal/database"
	"rangebook/internal/domain"
	"rangebook/internal/logging"
	"rangebook/internal/metrics"
	"rangebook/internal/models"
	"rangebook/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	yamlv2 "gopkg.in/yaml.v2"
)

// Отдельный процесс HTTP API: справочник тиров и доступность слотов без
// запуска Telegram-бота.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ranges, err := loadRanges(&logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()
	db.SetRanges(ranges)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	bookingService := service.NewBookingService(db, nil, nil, domain.SystemClock{}, cfg.Bot.MaxBookingDays, &logger)
	httpServer := api.NewHTTPServer(cfg.API, bookingService, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadRanges(logger *zerolog.Logger) ([]models.Range, error) {
	rangesPath := os.Getenv("RANGES_PATH")
	if rangesPath == "" {
		rangesPath = "configs/ranges.yaml"
	}

	data, err := os.ReadFile(rangesPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", rangesPath)
		return nil, err
	}

	var rangesConfig struct {
		Ranges []models.Range `yaml:"ranges"`
	}
	if err := yamlv2.Unmarshal(data, &rangesConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга ranges.yaml")
		return nil, err
	}

	if err := config.ValidateRanges(rangesConfig.Ranges); err != nil {
		logger.Error().Err(err).Msg("Ranges validation failed")
		return nil, err
	}

	return rangesConfig.Ranges, nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Monitoring.PrometheusPort).Msg("Prometheus metrics listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
}

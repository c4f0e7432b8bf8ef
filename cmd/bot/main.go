package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rangebook/internal/api"
	"rangebook/internal/bot"
	"rangebook/internal/config"
	"rangebook/internal/database"
	"rangebook/internal/domain"
	"rangebook/internal/events"
	"rangebook/internal/google"
	"rangebook/internal/logging"
	"rangebook/internal/metrics"
	"rangebook/internal/models"
	"rangebook/internal/repository"
	"rangebook/internal/service"
	"rangebook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	yamlv2 "gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, ranges, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, ranges, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateService := initStateService(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	sheetsService := initGoogleSheets(ctx, cfg, &logger)

	// Воркер синхронизации Google Sheets; интерфейс остается nil, если
	// таблицы не настроены, чтобы сервисы не звали пустой воркер.
	var syncWorker domain.SyncWorker
	if sheetsService != nil {
		retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
		sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, retryPolicy, &logger)
		go sheetsWorker.Start(ctx)
		syncWorker = sheetsWorker
	}

	eventBus := events.NewEventBus()

	bookingService := service.NewBookingService(db, eventBus, syncWorker, domain.SystemClock{}, cfg.Bot.MaxBookingDays, &logger)
	userService := service.NewUserService(db, cfg, &logger)
	botMetrics := bot.NewMetrics()

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, bookingService, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return startBot(ctx, cfg, stateService, eventBus, bookingService, userService, botMetrics, &logger)
}

func loadConfigAndLogger() (*config.Config, []models.Range, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	rangesPath := os.Getenv("RANGES_PATH")
	if rangesPath == "" {
		rangesPath = "configs/ranges.yaml"
	}
	rangesData, err := os.ReadFile(rangesPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", rangesPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var rangesConfig struct {
		Ranges []models.Range `yaml:"ranges"`
	}
	if err := yamlv2.Unmarshal(rangesData, &rangesConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга ranges.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateRanges(rangesConfig.Ranges); err != nil {
		logger.Error().Err(err).Msg("Ranges validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, rangesConfig.Ranges, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, ranges []models.Range, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	db.SetRanges(ranges)
	return db, nil
}

// initGoogleSheets возвращает nil, если таблицы не настроены: бот умеет
// работать и без выгрузки в Google Sheets.
func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		logger.Warn().Msg("Google Sheets не настроены, синхронизация отключена")
		return nil
	}

	sheetsSvc, err := google.NewSheetsService(cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets service initialized successfully")
	return sheetsSvc
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient, time.Duration(models.DefaultRedisTTL)*time.Second)
	fallbackRepo := repository.NewMemoryStateRepository(time.Duration(models.DefaultRedisTTL) * time.Second)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
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

func startBot(
	ctx context.Context,
	cfg *config.Config,
	stateService *service.StateService,
	eventBus *events.EventBus,
	bookingService *service.BookingService,
	userService *service.UserService,
	botMetrics *bot.Metrics,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tgService := service.NewTelegramService(bot.NewBotWrapper(botAPI))
	notifier := bot.NewTelegramNotifier(tgService, logger)
	subscribeBookingEvents(ctx, eventBus, cfg, notifier, logger)

	telegramBot := bot.NewBot(tgService, cfg, stateService, userService, bookingService, botMetrics, logger)

	telegramBot.Start(ctx)
	logger.Info().Msg("Shutdown complete.")
	return nil
}

// subscribeBookingEvents держит менеджеров в курсе: успешные коммиты
// считаются в метриках, проваленные уходят уведомлением.
func subscribeBookingEvents(
	ctx context.Context,
	bus *events.EventBus,
	cfg *config.Config,
	notifier domain.Notifier,
	logger *zerolog.Logger,
) {
	decode := func(ev *events.Event) (events.BookingEventPayload, error) {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return payload, err
		}
		return payload, nil
	}

	bus.Subscribe(events.EventBookingCommitted, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		metrics.IncCommit("success")
		logger.Info().
			Str("code", payload.Code).
			Str("range_id", payload.RangeID).
			Int64("shooters", payload.ShooterCount).
			Msg("Бронь записана")
		return nil
	})

	bus.Subscribe(events.EventCommitFailed, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		metrics.IncCommit("failure")

		for _, managerID := range cfg.Managers {
			notifier.Notify(ctx, managerID, domain.Notification{
				Title:       "Не удалось сохранить бронь " + payload.Code,
				Description: payload.Error,
				Severity:    domain.SeverityError,
			})
		}
		return nil
	})
}

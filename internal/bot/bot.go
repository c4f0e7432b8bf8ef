package bot

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"rangebook/internal/config"
	"rangebook/internal/domain"
	"rangebook/internal/models"
	"rangebook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Bot связывает Telegram-транспорт с сервисами записи. Каждый апдейт
// обрабатывается в своей горутине с собственным контекстом и request_id.
type Bot struct {
	tg       domain.TelegramService
	config   *config.Config
	states   domain.StateManager
	users    *service.UserService
	bookings *service.BookingService
	metrics  *Metrics
	logger   *zerolog.Logger

	// платежный цикл живет отдельно для каждого пользователя
	flowsMu sync.Mutex
	flows   map[int64]*service.PaymentFlow
}

func NewBot(
	tg domain.TelegramService,
	cfg *config.Config,
	states domain.StateManager,
	users *service.UserService,
	bookings *service.BookingService,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	return &Bot{
		tg:       tg,
		config:   cfg,
		states:   states,
		users:    users,
		bookings: bookings,
		metrics:  metrics,
		logger:   logger,
		flows:    make(map[int64]*service.PaymentFlow),
	}
}

// Start запускает цикл получения апдейтов; блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Бот запущен")

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			b.logger.Info().Msg("Бот остановлен")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(parent context.Context, update tgbotapi.Update) {
	start := time.Now()
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	logger := b.logger.With().Str("request_id", requestID).Logger()
	ctx = logger.WithContext(ctx)

	defer b.withRecovery(update)
	defer func() {
		b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
	}()

	switch {
	case update.Message != nil:
		b.metrics.UpdatesTotal.WithLabelValues("message").Inc()
		if !b.allowUpdate(ctx, update.Message.From) {
			return
		}
		b.trackUser(ctx, update.Message.From)
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		if !b.allowUpdate(ctx, update.CallbackQuery.From) {
			return
		}
		b.trackUser(ctx, update.CallbackQuery.From)
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// allowUpdate отсекает черный список и слишком частые сообщения.
// Менеджеры под ограничение частоты не попадают.
func (b *Bot) allowUpdate(ctx context.Context, from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if b.users.IsBlacklisted(from.ID) {
		return false
	}
	if b.users.IsManager(from.ID) {
		return true
	}

	limit := b.config.Bot.RateLimitMessages
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	allowed, err := b.states.CheckRateLimit(ctx, from.ID, limit, window)
	if err != nil {
		// лимитер недоступен, пропускаем сообщение
		return true
	}
	if !allowed {
		b.metrics.RateLimitHits.Inc()
		b.sendMessage(from.ID, "⚠️ Вы отправляете сообщения слишком часто. Подождите немного.")
		return false
	}
	return true
}

func (b *Bot) trackUser(ctx context.Context, from *tgbotapi.User) {
	user := &models.User{
		TelegramID:   from.ID,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
	}
	if err := b.users.SaveUser(ctx, user); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", from.ID).Msg("Не удалось сохранить пользователя")
	}
}

func (b *Bot) withRecovery(update tgbotapi.Update) {
	if r := recover(); r != nil {
		b.logger.Error().
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("Паника при обработке апдейта")

		if update.Message != nil {
			b.sendMessage(update.Message.Chat.ID, "Произошла ошибка. Попробуйте еще раз: /start")
		}
	}
}

// paymentFlow возвращает платежный цикл пользователя, создавая его при
// первом обращении. Колбэк завершения возвращает пользователя в меню.
func (b *Bot) paymentFlow(userID int64) *service.PaymentFlow {
	b.flowsMu.Lock()
	defer b.flowsMu.Unlock()

	if flow, ok := b.flows[userID]; ok {
		return flow
	}

	flow := service.NewPaymentFlow(b.bookings, b.logger)
	flow.SetOnComplete(models.SuccessDisplaySeconds*time.Second, func(booking *models.Booking) {
		b.resetFlow(userID)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = b.states.ClearUserState(ctx, userID)
		b.handleMainMenu(userID)
	})
	b.flows[userID] = flow
	return flow
}

func (b *Bot) resetFlow(userID int64) {
	b.flowsMu.Lock()
	defer b.flowsMu.Unlock()
	delete(b.flows, userID)
}

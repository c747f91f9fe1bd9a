package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"scheduling-engine/core/cache"
	"scheduling-engine/core/config"
	"scheduling-engine/core/constants"
	"scheduling-engine/core/database"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/middleware"
	"scheduling-engine/core/queue"
	"scheduling-engine/core/storage"
	"scheduling-engine/modules/availability"
	availRepo "scheduling-engine/modules/availability/repository"
	availService "scheduling-engine/modules/availability/service"
	"scheduling-engine/modules/booking"
	bookingRepo "scheduling-engine/modules/booking/repository"
	bookingService "scheduling-engine/modules/booking/service"
	"scheduling-engine/modules/booking/worker"
	briefService "scheduling-engine/modules/brief/service"
	"scheduling-engine/modules/calendar"
	calendarRepo "scheduling-engine/modules/calendar/repository"
	calendarService "scheduling-engine/modules/calendar/service"
	"scheduling-engine/modules/notification"
	notificationRepo "scheduling-engine/modules/notification/repository"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

type repositories struct {
	availability availRepo.AvailabilityRepository
	bookings     bookingRepo.BookingRepository
	calendars    calendarRepo.CalendarRepository
	notification notificationRepo.NotificationRepository
}

// app holds what Run has to close on the way out.
type app struct {
	db        *database.Database
	cache     cache.Cache
	client    *queue.Client
	worker    *queue.Server
	scheduler *queue.Scheduler
	inline    *worker.InlineOutbox
}

// Run wires the process from config and serves until SIGINT or SIGTERM.
func Run() error {
	cfg, err := config.Init()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()

	repos, err := a.openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	if err := a.openCache(cfg); err != nil {
		return err
	}
	store, err := openObjectStore(cfg)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	mw := middleware.NewMiddleware(limiter)
	e.Use(echoMiddleware.Recover())
	e.Use(mw.RequestLogger())
	e.GET("/health", a.health)

	api := e.Group("/api/v1")
	public := api.Group("/public", mw.RateLimit())
	private := api.Group("/private", mw.AuthMiddleware())

	availabilitySvc := availability.Init(private, repos.availability)
	ledger := bookingService.NewLedger(repos.bookings, availabilitySvc)

	oauthCfg := calendarService.NewOAuthConfig(cfg.GoogleAPI)
	var busyCalendar calendarService.Calendar = calendarService.NoopCalendar{}
	if cfg.GoogleAPI.ClientID != "" {
		google := calendarService.NewGoogleCalendar(repos.calendars, oauthCfg)
		busyCalendar = calendarService.NewCachedCalendar(google, a.cache)
	} else {
		logger.Warn("Server:Run:GoogleCalendarDisabled")
	}
	calendar.Init(private, calendarService.NewConnectionService(repos.calendars, oauthCfg, a.cache))

	notifier := notification.Init(private, repos.notification)
	briefs := briefService.NewBriefService(store)
	handler := worker.NewEffectHandler(ledger, busyCalendar, notifier, briefs)
	digest := worker.NewDigestJob(availabilitySvc, ledger, notifier)

	outbox, err := a.startOutbox(cfg, handler, digest)
	if err != nil {
		return err
	}

	resolver := availService.NewResolver(ledger, busyCalendar)
	scheduling := bookingService.NewSchedulingService(availabilitySvc, resolver, ledger, busyCalendar, briefs, outbox)
	booking.Init(public, private, scheduling)

	go sweepRateLimiter(ctx, limiter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server:Shutdown:Error", "error", err)
		}
	}()

	logger.Info("Server:Run:Listening", "addr", addr, "storage", cfg.Storage.Driver, "queue", cfg.Queue.Enabled)
	if err := e.Start(addr); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Server:Run:Stopped")
	return nil
}

func (a *app) openStorage(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("Server:Storage:InMemory")
		return &repositories{
			availability: availRepo.NewMemoryRepository(),
			bookings:     bookingRepo.NewMemoryRepository(),
			calendars:    calendarRepo.NewMemoryRepository(),
			notification: notificationRepo.NewMemoryRepository(),
		}, nil
	}

	db, err := database.InitDB(database.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
	})
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}
	return &repositories{
		availability: availRepo.NewAvailabilityRepository(db),
		bookings:     bookingRepo.NewBookingRepository(db),
		calendars:    calendarRepo.NewCalendarRepository(db),
		notification: notificationRepo.NewNotificationRepository(db),
	}, nil
}

func (a *app) openCache(cfg *config.Config) error {
	if cfg.Redis.Addr == "" {
		a.cache = cache.NewMemoryCache()
		return nil
	}
	c, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	a.cache = c
	return nil
}

func openObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.S3.Bucket == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewS3Store(storage.S3Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
}

// startOutbox runs effects through asynq when the queue is enabled and
// in-process otherwise. The daily digest needs the asynq scheduler.
func (a *app) startOutbox(cfg *config.Config, handler *worker.EffectHandler, digest *worker.DigestJob) (bookingService.Outbox, error) {
	if !cfg.Queue.Enabled {
		logger.Warn("Server:Outbox:Inline", "daily_digest", false)
		a.inline = worker.NewInlineOutbox(handler)
		return a.inline, nil
	}

	redisCfg := queue.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	a.client = queue.NewClient(redisCfg)

	a.worker = queue.NewServer(redisCfg, cfg.Queue.Concurrency)
	worker.RegisterHandlers(a.worker, handler)
	worker.RegisterDigest(a.worker, digest)
	if err := a.worker.Start(); err != nil {
		return nil, fmt.Errorf("start queue worker: %w", err)
	}

	a.scheduler = queue.NewScheduler(redisCfg)
	if err := a.scheduler.Register(constants.DailyDigestCron, worker.TaskTypeDailyDigest); err != nil {
		return nil, fmt.Errorf("register daily digest: %w", err)
	}
	if err := a.scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}
	return worker.NewQueueOutbox(a.client), nil
}

func sweepRateLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}

func (a *app) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), constants.HealthTimeout)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			status["database"] = "down"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "up"
		}
	}
	if err := a.cache.Ping(ctx); err != nil {
		status["cache"] = "down"
		code = http.StatusServiceUnavailable
	} else {
		status["cache"] = "up"
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	return c.JSON(code, status)
}

func (a *app) close() {
	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}
	if a.worker != nil {
		a.worker.Shutdown()
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			logger.Warn("Server:Close:QueueClient", "error", err)
		}
	}
	if a.inline != nil {
		a.inline.Wait()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Warn("Server:Close:Cache", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Server:Close:Database", "error", err)
		}
	}
}

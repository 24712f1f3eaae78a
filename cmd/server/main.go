package main // Entry point package

import (
	"context"
	"errors"
	"log" // fallback logger until zap is up
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/checkout"
	"github.com/iliyamo/studio-booking/internal/config" // Internal config loader
	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/logging"
	"github.com/iliyamo/studio-booking/internal/mail"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/obs"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/router" // Internal router setup
	queue_publisher "github.com/iliyamo/studio-booking/internal/service"
	"github.com/iliyamo/studio-booking/internal/validation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadDotEnv()
	cfg := config.Load() // Load environment config
	ledgerCfg, err := config.LoadLedger()
	if err != nil {
		log.Fatalf("ledger config: %v", err)
	}
	stripeCfg, err := config.LoadStripe()
	if err != nil {
		log.Fatalf("stripe config: %v", err)
	}
	mailCfg, err := config.LoadMail()
	if err != nil {
		log.Fatalf("mail config: %v", err)
	}
	replayCfg := config.LoadReplayConfig()
	limits := config.LoadRateLimits()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, "studio-booking", cfg.Env, logger)
	if err != nil {
		logger.Fatal("tracer", zap.Error(err))
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("mysql", zap.Error(err))
	}
	defer db.Close()

	rdb, err := config.NewRedisClient()
	if err != nil {
		// rate limiting, caching and replay turn into pass-through
		logger.Warn("redis unavailable, running without it", zap.Error(err))
	}

	// ---- repositories ----
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	courses := repository.NewCourseRepo(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)
	promos := repository.NewPromoRepo(db)
	checkouts := repository.NewCheckoutRepo(db)
	rentals := repository.NewRentalRepo(db)
	outbox := repository.NewMailRepo(db)

	// ---- core services ----
	table := catalog.Default()
	store := ledger.NewSQLStore(db, ledgerCfg.TxMaxAttempts)
	books := ledger.New(ledger.Options{
		Store:           store,
		Reader:          store,
		Catalog:         table,
		Composer:        mail.NewComposer(mailCfg.FromName, ledgerCfg.CancelLeadDays),
		Location:        ledgerCfg.Location(),
		LeadDays:        ledgerCfg.CancelLeadDays,
		DefaultPackSize: ledgerCfg.DefaultPackSize,
		Logger:          logger.Named("ledger"),
	})
	pay := checkout.New(checkout.Deps{
		Gateway:         checkout.NewStripeGateway(stripeCfg.SecretKey, stripeCfg.WebhookSecret),
		Ledger:          books,
		Catalog:         table,
		Profiles:        profiles,
		Courses:         courses,
		Events:          events,
		Bookings:        bookings,
		Promos:          promos,
		Checkouts:       checkouts,
		Currency:        stripeCfg.Currency,
		DefaultPackSize: ledgerCfg.DefaultPackSize,
		Logger:          logger.Named("checkout"),
	})

	publisher := queue_publisher.NewMailPublisher(mailCfg.RabbitURL, mailCfg.Queue, logger.Named("publisher"))
	defer publisher.Close()
	relay := queue.NewRelay(outbox, publisher, mailCfg.RelayInterval, mailCfg.RelayBatch, logger.Named("relay"))
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	// ---- HTTP ----
	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = validation.New()
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	guards := router.Guards{
		Cache:       middleware.NewRedisCache(replayCfg.Cache, rdb),
		Idempotency: middleware.NewIdempotency(replayCfg.Idempotency, rdb),
		AuthLimit:   middleware.NewTokenBucket(limits.Auth, rdb, logger),
		PayLimit:    middleware.NewTokenBucket(limits.Checkout, rdb, logger),
	}
	pings := map[string]handler.Pinger{"mysql": db.PingContext}
	if rdb != nil {
		pings["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	router.RegisterRoutes(e, pings) // Register application routes
	router.RegisterAuth(e,
		handler.NewAuthHandler(cfg, users, tokens, logger),
		handler.NewProfileHandler(profiles, books, logger),
		cfg.JWTSecret, guards)
	router.RegisterPublic(e, handler.NewPublicHandler(table, courses, events, rentals, books, logger), guards)
	bookingHandler := handler.NewBookingHandler(books, logger)
	router.RegisterBookings(e, bookingHandler, handler.NewCheckoutHandler(pay, logger), cfg.JWTSecret, guards)
	router.RegisterAdmin(e,
		handler.NewAdminHandler(table, courses, events, books, promos, rentals, books, logger),
		bookingHandler, cfg.JWTSecret, guards)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	stop()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	select {
	case <-relayDone:
	case <-sctx.Done():
		logger.Warn("mail relay did not stop in time")
	}
	if err := shutdownTracer(sctx); err != nil {
		logger.Error("tracer shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-reservation/internal/clock"
	"github.com/iliyamo/event-reservation/internal/config"
	"github.com/iliyamo/event-reservation/internal/database"
	"github.com/iliyamo/event-reservation/internal/handler"
	"github.com/iliyamo/event-reservation/internal/middleware"
	"github.com/iliyamo/event-reservation/internal/queue"
	"github.com/iliyamo/event-reservation/internal/repository"
	"github.com/iliyamo/event-reservation/internal/router"
	"github.com/iliyamo/event-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // optional .env for local development

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	store := repository.NewStore(db)
	svc := service.NewReservationService(store, clock.NewSystem(),
		service.WithDefaultTTL(cfg.LockTTL),
		service.WithMaxTTL(cfg.MaxLockTTL),
	)

	events := handler.NewEventHandler(store)
	reservations := handler.NewReservationHandler(svc, store, queue.NewPublisher())

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response caching disabled")
	}
	limit := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	router.Register(e, events, reservations, limit, cache)

	// Reaper reclaims abandoned seat locks for the whole process
	// lifetime; it stops with the root context during shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reaper := service.NewReaper(svc, cfg.SweepInterval)
	go reaper.Run(ctx)

	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, lock_ttl=%s, sweep=%s)", addr, cfg.Env, cfg.LockTTL, cfg.SweepInterval)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("failed to shut down server: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("failed to close database: %v", err)
	}
	log.Println("stopped")
}

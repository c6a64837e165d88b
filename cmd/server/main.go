package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/tappy-heartful/streak-navi-sub000/internal/config"
	"github.com/tappy-heartful/streak-navi-sub000/internal/database"
	"github.com/tappy-heartful/streak-navi-sub000/internal/handler"
	"github.com/tappy-heartful/streak-navi-sub000/internal/inventory"
	"github.com/tappy-heartful/streak-navi-sub000/internal/middleware"
	"github.com/tappy-heartful/streak-navi-sub000/internal/queue"
	"github.com/tappy-heartful/streak-navi-sub000/internal/repository"
	"github.com/tappy-heartful/streak-navi-sub000/internal/router"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	events := repository.NewEventRepo(db)
	reservations := repository.NewReservationRepo(db)
	members := repository.NewMemberRepo(db)
	tokens := repository.NewTokenRepo(db)

	store := repository.NewInventoryStore(db, events, reservations)
	engine := inventory.NewEngine(store)

	e := echo.New()

	// Redis-backed rate limiting and response caching.  Both degrade to
	// no-ops when Redis is unavailable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	authH := handler.NewAuthHandler(cfg, members, tokens)
	resH := handler.NewReservationHandler(engine, reservations)
	adminH := handler.NewAdminEventHandler(events, reservations)
	publicH := handler.NewPublicHandler(events)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH)
	router.RegisterReservations(e, resH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	// Background consumer writing logs/reservation.log; reconnects forever.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

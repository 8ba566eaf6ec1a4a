package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/antiapp/cafe-focus-rewards/internal/config"
	"github.com/antiapp/cafe-focus-rewards/internal/database"
	"github.com/antiapp/cafe-focus-rewards/internal/handler"
	"github.com/antiapp/cafe-focus-rewards/internal/ledger"
	"github.com/antiapp/cafe-focus-rewards/internal/middleware"
	"github.com/antiapp/cafe-focus-rewards/internal/queue"
	"github.com/antiapp/cafe-focus-rewards/internal/repository"
	"github.com/antiapp/cafe-focus-rewards/internal/router"
	"github.com/antiapp/cafe-focus-rewards/internal/token"
)

func main() {
	_ = godotenv.Load() // best effort; real deployments set env directly

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Redis backs the response cache and the rate limiter.  A nil
	// client disables both rather than blocking startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	// Repositories and the settlement core.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	cafes := repository.NewCafeRepo(db)
	events := repository.NewEventRepo(db)
	sessions := repository.NewSessionRepo(db)
	registrations := repository.NewRegistrationRepo(db)
	balances := repository.NewBalanceRepo(db)

	svc := ledger.New(repository.NewLedgerStore(db), ledger.SystemClock{}, ledger.Config{
		ConversionFactor:    cfg.ConversionFactor,
		RewardDecimals:      cfg.RewardDecimals,
		CommissionRate:      cfg.CommissionRate,
		SingleGlobalSession: cfg.SingleGlobalSession,
	})

	minter := token.NewClient(cfg.TreasuryURL, cfg.RewardDecimals)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(cafes, events)
	merchantH := handler.NewMerchantHandler(cafes, sessions)
	sessionH := handler.NewSessionHandler(svc, cafes, sessions, users, minter)
	regH := handler.NewRegistrationHandler(svc, events, registrations, balances)

	// Routes.  Public browse sits behind the Redis response cache;
	// customer settlement endpoints behind the token-bucket limiter.
	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, sessionH, regH, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterMerchant(e, merchantH, cfg.JWTSecret)

	// Background consumer: settlement announcements end up in
	// logs/session.log.
	go func() {
		if err := queue.StartSessionConsumer(); err != nil {
			log.Printf("session consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/booking"
	"github.com/novabanka/branch-appointments/internal/chatbot"
	"github.com/novabanka/branch-appointments/internal/config"
	"github.com/novabanka/branch-appointments/internal/database"
	"github.com/novabanka/branch-appointments/internal/handler"
	"github.com/novabanka/branch-appointments/internal/middleware"
	"github.com/novabanka/branch-appointments/internal/queue"
	"github.com/novabanka/branch-appointments/internal/repository"
	"github.com/novabanka/branch-appointments/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	branchRepo := repository.NewBranchRepo(db)
	apptRepo := repository.NewAppointmentRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	chatRepo := repository.NewChatRepo(db)

	engine := booking.NewEngine(branchRepo, apptRepo)

	var bot *chatbot.Client
	if cfg.GroqAPIKey != "" {
		bot, err = chatbot.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
		if err != nil {
			log.Fatalf("chatbot: %v", err)
		}
	} else {
		log.Printf("GROQ_API_KEY not set; chat endpoints serve a static fallback")
	}

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	branchHandler := handler.NewBranchHandler(branchRepo, engine)
	customerHandler := handler.NewCustomerHandler(engine, branchRepo)
	employeeHandler := handler.NewEmployeeHandler(engine)
	chatHandler := handler.NewChatHandler(bot, chatRepo, branchRepo, engine)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, branchHandler, cache)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterCustomer(e, customerHandler, chatHandler, cfg.JWTSecret)
	router.RegisterEmployee(e, employeeHandler, cfg.JWTSecret)

	// Background consumer writes appointment events to logs/.
	go func() {
		if err := queue.StartAppointmentConsumer(); err != nil {
			log.Printf("appointment consumer stopped: %v", err)
		}
	}()

	// Sweeper: BOOKED appointments whose slot passed more than a day
	// ago are flipped to COMPLETED so they stop counting as open.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := apptRepo.CompletePast(ctx, time.Now().UTC().Add(-24*time.Hour))
			cancel()
			if err != nil {
				log.Printf("sweeper: complete past appointments failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweeper: completed %d past appointments", n)
			}
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

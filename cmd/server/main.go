package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/desk-allocation/internal/allocation"
	"github.com/iliyamo/desk-allocation/internal/config"
	"github.com/iliyamo/desk-allocation/internal/database"
	"github.com/iliyamo/desk-allocation/internal/handler"
	"github.com/iliyamo/desk-allocation/internal/policy"
	"github.com/iliyamo/desk-allocation/internal/queue"
	"github.com/iliyamo/desk-allocation/internal/repository"
	"github.com/iliyamo/desk-allocation/internal/router"
)

func main() {
	// .env is optional; real deployments set the variables directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and the occupancy cache; nil means both
	// degrade gracefully.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and occupancy cache disabled")
	}

	deskRepo := repository.NewDeskRepo(db)
	employeeRepo := repository.NewEmployeeRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	evaluator := policy.NewEvaluator(deskRepo, nil)
	engine := allocation.NewEngine(deskRepo, employeeRepo, evaluator, nil)

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, userRepo, tokenRepo),
		Desks:      handler.NewDeskHandler(deskRepo),
		Employees:  handler.NewEmployeeHandler(employeeRepo),
		Assignment: handler.NewAssignmentHandler(engine, deskRepo, employeeRepo),
		Occupancy:  handler.NewOccupancyHandler(deskRepo, rdb, config.LoadOccupancyCacheConfig()),
	}

	// The audit consumer drains desk.assigned/desk.released into the
	// assignment log; it reconnects on its own and never stops the server.
	go func() {
		if err := queue.StartAssignmentConsumer(); err != nil {
			log.Printf("assignment consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, h.Auth, cfg.JWTSecret)
	router.RegisterAPI(e, h, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/alphaboutique/shop-api/internal/activation"
	"github.com/alphaboutique/shop-api/internal/config"
	"github.com/alphaboutique/shop-api/internal/database"
	"github.com/alphaboutique/shop-api/internal/handler"
	"github.com/alphaboutique/shop-api/internal/queue"
	"github.com/alphaboutique/shop-api/internal/repository"
	"github.com/alphaboutique/shop-api/internal/router"
	queue_publisher "github.com/alphaboutique/shop-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database open: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Bootstrap(ctx, db); err != nil {
		log.Fatalf("schema bootstrap: %v", err)
	}
	cancel()

	users := repository.NewUserRepo(db)
	publisher := queue_publisher.New(cfg.AMQPURL)
	engine := activation.NewEngine(users, publisher,
		time.Duration(cfg.ActivationTTLMin)*time.Minute)

	// Background mail worker; broker outages never block the API.
	go queue.StartActivationMailConsumer(cfg)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache disabled")
	}

	e := echo.New()
	router.Register(e, handler.NewAuthHandler(cfg, users, engine), cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

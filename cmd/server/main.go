// Command server boots the ticketing API: configuration, MySQL, Redis,
// the reservation engine, HTTP routes and the broker consumer.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/reservation"
	"github.com/iliyamo/event-ticketing/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	txm := repository.NewSQLTxManager(db)

	engine := reservation.NewEngine(txm, events, tickets, cfg.CodeRetryLimit)

	publish := os.Getenv("QUEUE_DISABLED") != "true"
	if publish {
		go func() {
			if err := queue.StartTicketConsumer(); err != nil {
				log.Printf("ticket consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Cfg:    cfg,
		Redis:  rdb,
		Health: handler.NewHealthHandler(db),
		Auth:   handler.NewAuthHandler(users, tokens, cfg),
		Public: handler.NewPublicEventHandler(events, tickets),
		Promo:  handler.NewPromoterEventHandler(events, txm),
		Buyer:  handler.NewBuyerTicketHandler(engine, tickets, publish),
	})

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}

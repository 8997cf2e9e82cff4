package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/restaurant-table-service/internal/broadcast"
	"github.com/iliyamo/restaurant-table-service/internal/config"
	"github.com/iliyamo/restaurant-table-service/internal/database"
	"github.com/iliyamo/restaurant-table-service/internal/handler"
	"github.com/iliyamo/restaurant-table-service/internal/lock"
	"github.com/iliyamo/restaurant-table-service/internal/queue"
	"github.com/iliyamo/restaurant-table-service/internal/repository"
	"github.com/iliyamo/restaurant-table-service/internal/router"
	"github.com/iliyamo/restaurant-table-service/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and catalog cache disabled")
	}

	store := repository.NewMySQL(db)
	hub := broadcast.New(cfg.HubBuffer)
	locks := lock.NewKeyed()

	tables := service.NewTableRegistry(store, hub, locks)
	carts := service.NewCartStore(store, locks)
	orders := service.NewOrderCoordinator(store, hub, locks, cfg.PriceLookupTimeout, cfg.RetryBackoff)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Tables:   handler.NewTableHandler(tables),
		Carts:    handler.NewCartHandler(carts),
		Orders:   handler.NewOrderHandler(orders),
		Products: handler.NewProductHandler(store),
		Events:   handler.NewEventsHandler(hub),
	}, cfg, rlCfg, rdb, cfg.CatalogCacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if cfg.AMQPURL != "" {
		fwd := queue.NewForwarder(cfg.AMQPURL, cfg.EventQueue, hub)
		g.Go(func() error {
			err := fwd.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	} else {
		log.Printf("AMQP_URL not set; event forwarding disabled")
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-flash-sale.git/internal/config"
	"github.com/ariefcatur/go-flash-sale.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-flash-sale.git/internal/kafka"
	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/postgres"
	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (order.created stream)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	prod.Start()

	queue := &redisx.Queue{R: rdb}
	stock := &redisx.StockStore{R: rdb}
	tracker := &orders.Tracker{R: rdb, TTL: cfg.StatusTTL}
	repo := &orders.Repo{DB: db}
	limiter := &redisx.RateLimiter{R: rdb, Limit: cfg.RateLimitMax, Window: cfg.RateLimitWindow}
	idem := &redisx.IdemStore{R: rdb, TTL: cfg.IdempotencyTTL}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Repo:     repo,
		Tracker:  tracker,
		Stock:    stock,
		Queue:    queue,
		Redis:    rdb,
		Producer: prod,
		Service:  cfg.ServiceName,
		Admission: []func(http.Handler) http.Handler{
			httpx.RateLimit(limiter, cfg.RateLimitMax),
			httpx.QueueLimit(queue, cfg.MaxQueueDepth),
			httpx.Idempotency(idem),
		},
	}
	oh.Register(router)

	ph := &httpx.ProductsHandler{Repo: repo, Stock: stock}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	// handlers are drained before the inbox closes, so no Publish can
	// race the shutdown
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
}

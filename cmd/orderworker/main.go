package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-flash-sale.git/internal/config"
	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/postgres"
	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
	"github.com/ariefcatur/go-flash-sale.git/internal/worker"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	w := &worker.OrderWorker{
		Queue:      &redisx.Queue{R: rdb},
		Store:      &orders.Repo{DB: db},
		Tracker:    &orders.Tracker{R: rdb, TTL: cfg.StatusTTL},
		PopTimeout: cfg.PopTimeout,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down order workers...")
		cancel()
	}()

	log.Printf("order worker pool started: workers=%d", cfg.OrderWorkers)
	w.Run(ctx, cfg.OrderWorkers) // blocks until all loops drain
}

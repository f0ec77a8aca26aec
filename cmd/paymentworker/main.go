package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-flash-sale.git/internal/config"
	kafkax "github.com/ariefcatur/go-flash-sale.git/internal/kafka"
	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/payment"
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

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderFinalized, 1024)
	prod.Start()

	w := &worker.PaymentWorker{
		Queue:          &redisx.Queue{R: rdb},
		Store:          &orders.Repo{DB: db},
		Tracker:        &orders.Tracker{R: rdb, TTL: cfg.StatusTTL},
		Stock:          &redisx.StockStore{R: rdb},
		Gateway:        payment.NewSimulator(cfg.GatewayLatency, cfg.GatewayFailRate),
		Producer:       prod,
		ServiceName:    cfg.ServiceName + "-payment",
		PopTimeout:     cfg.PopTimeout,
		GatewayTimeout: cfg.GatewayTimeout,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down payment workers...")
		cancel()
	}()

	log.Printf("payment worker pool started: workers=%d", cfg.PaymentWorkers)
	w.Run(ctx, cfg.PaymentWorkers) // blocks until all loops drain

	// workers are done publishing; now the inbox can close
	prod.Close()
	prod.WaitClosed()
}

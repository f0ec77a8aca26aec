// Seeds the Redis hot path from the durable ledger: one reservation
// counter and one cached data blob per product. Run before opening a
// sale, after the product rows exist.
package main

import (
	"context"
	"log"
	"time"

	"github.com/ariefcatur/go-flash-sale.git/internal/config"
	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/postgres"
	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	repo := &orders.Repo{DB: db}
	stock := &redisx.StockStore{R: rdb}
	queue := &redisx.Queue{R: rdb}

	// jobs left over from a previous sale reference counters we are
	// about to reset, so flush the pipeline before reseeding
	for _, q := range []string{redisx.QueueOrders, redisx.QueuePayments} {
		if err := queue.Clear(ctx, q); err != nil {
			log.Fatalf("clear %s: %v", q, err)
		}
		log.Printf("cleared %s", q)
	}

	products, err := repo.ListProducts(ctx)
	if err != nil {
		log.Fatalf("list products: %v", err)
	}
	if len(products) == 0 {
		log.Println("no products in the ledger, nothing to seed")
		return
	}

	for _, p := range products {
		if err := stock.Seed(ctx, p.ID, p.Stock); err != nil {
			log.Fatalf("seed stock %s: %v", p.ID, err)
		}
		if err := redisx.SetProductData(ctx, rdb, redisx.ProductData{
			ID: p.ID, Name: p.Name, PriceCents: p.PriceCents,
		}); err != nil {
			log.Fatalf("seed data %s: %v", p.ID, err)
		}
		log.Printf("seeded %s (%s) stock=%d", p.ID, p.Name, p.Stock)
	}

	log.Printf("seeded %d products", len(products))
}

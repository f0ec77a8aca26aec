package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	kafkax "github.com/ariefcatur/go-flash-sale.git/internal/kafka"
	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type OrdersHandler struct {
	Repo     *orders.Repo
	Tracker  *orders.Tracker
	Stock    *redisx.StockStore
	Queue    *redisx.Queue
	Redis    *redis.Client
	Producer *kafkax.Producer
	Service  string

	// admission + idempotency decorators for the buy route
	Admission []func(http.Handler) http.Handler
}

type BuyFlashReq struct {
	ProductID string `json:"product_id"`
}

type BuyFlashResp struct {
	OrderID        string             `json:"order_id"`
	Status         orders.Status      `json:"status"`
	CheckStatusURL string             `json:"check_status_url"`
	Product        redisx.ProductData `json:"product"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/order", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.With(append([]func(http.Handler) http.Handler{Identity}, h.Admission...)...).
			Post("/buy-flash", h.buyFlash)
		r.Get("/{id}/status", h.getStatus)
	})
}

// buyFlash is the synchronous half of the pipeline: admission and the
// idempotency guard already ran, so what remains is the atomic counter
// gate and handing the job to the order queue.
func (h *OrdersHandler) buyFlash(w http.ResponseWriter, r *http.Request) {
	var req BuyFlashReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product id required"})
		return
	}
	userID := CallerID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	product, err := redisx.GetProductData(ctx, h.Redis, req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "inventory unavailable"})
		return
	}
	if product == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	// the single race-free gate: DECR, undo on negative
	granted, _, err := h.Stock.Reserve(ctx, req.ProductID)
	if err != nil {
		// fail closed: without the counter we must not admit anyone
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "inventory unavailable"})
		return
	}
	if !granted {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "product out of stock"})
		return
	}

	orderID := orders.NewOrderID(userID, req.ProductID)
	job := orders.OrderJob{
		OrderID:    orderID,
		UserID:     userID,
		ProductID:  req.ProductID,
		PriceCents: product.PriceCents,
		EnqueuedAt: time.Now().UnixMilli(),
	}
	// queued lands in the tracker before the job is visible to any
	// worker, so later stage writes can only move the status forward
	_ = h.Tracker.Set(ctx, orderID, orders.StatusQueued, orders.Extra{
		UserID:     userID,
		ProductID:  req.ProductID,
		TotalCents: product.PriceCents,
	})

	if err := h.Queue.Push(ctx, redisx.QueueOrders, job); err != nil {
		// the job never entered the pipeline, so compensation is ours
		_ = h.Stock.Release(ctx, req.ProductID)
		_ = h.Tracker.Set(ctx, orderID, orders.StatusFailed, orders.Extra{Error: "failed to enqueue order"})
		log.Printf("[buy-flash] enqueue %s failed: %v", orderID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process order"})
		return
	}

	if h.Producer != nil {
		ev := orders.NewEnvelope(orders.EventOrderCreated, h.Service, orderID,
			r.Header.Get("X-Request-Id"), orders.OrderCreatedPayload{
				OrderID:    orderID,
				UserID:     userID,
				ProductID:  req.ProductID,
				TotalCents: product.PriceCents,
			})
		h.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusAccepted, BuyFlashResp{
		OrderID:        orderID,
		Status:         orders.StatusQueued,
		CheckStatusURL: fmt.Sprintf("/order/%s/status", orderID),
		Product:        *product,
	})
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// fast path: tracker cache
	if rec, err := h.Tracker.Get(ctx, orderID); err == nil && rec != nil {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	// fallback: durable ledger, same record shape
	o, err := h.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	rec := orders.FromOrder(o)
	// re-warm the cache so the next poll stays off Postgres
	_ = h.Tracker.Set(ctx, o.ID, o.Status, orders.Extra{
		UserID: o.UserID, ProductID: o.ProductID, TotalCents: o.TotalCents,
	})
	writeJSON(w, http.StatusOK, rec)
}

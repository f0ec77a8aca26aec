package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
	"github.com/go-chi/chi/v5"
)

type ProductsHandler struct {
	Repo  *orders.Repo
	Stock *redisx.StockStore
}

type ProductResp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Stock      int       `json:"stock"`
	PriceCents int       `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/products/{id}", h.getProduct)
	// SSE route stays outside any request timeout
	r.Get("/products/{id}/stock/stream", h.streamStock)
}

// getProduct reads the durable ledger. Advisory for buyers: the buy path
// gates on the cache counter, not on this value.
func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.GetProduct(ctx, productID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ProductResp{
		ID: p.ID, Name: p.Name, Stock: p.Stock, PriceCents: p.PriceCents,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	})
}

// streamStock pushes {"stock": n} events whenever the reservation store
// syncs a new ledger value, plus periodic keepalives. The subscription is
// released when the client goes away.
func (h *ProductsHandler) streamStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	sub := h.Stock.Subscribe(r.Context(), productID)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// current counter first so the client renders without waiting
	if n, err := h.Stock.Current(r.Context(), productID); err == nil {
		fmt.Fprintf(w, "data: {\"stock\": %d}\n\n", n)
	}
	flusher.Flush()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-r.Context().Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: {\"stock\": %s}\n\n", m.Payload)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
)

type ctxKey int

const callerKey ctxKey = 0

// CallerID returns the identity attached by Identity, or "".
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(callerKey).(string)
	return id
}

// Identity extracts the caller from the X-User-ID header (the token
// layer in front of this service resolves real tokens to that header).
// Mutating routes require it.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-User-ID")
		if user == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing caller identity"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, user)))
	})
}

// Allower is the slice of redisx.RateLimiter the middleware needs.
type Allower interface {
	Allow(ctx context.Context, id string) (ok bool, remaining int, retryAfter time.Duration, err error)
}

// RateLimit sheds per-caller request floods before they reach the
// pipeline. Keyed on user identity when present, client IP otherwise.
// Advisory only: a limiter outage lets the request through.
func RateLimit(lim Allower, max int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := CallerID(r.Context())
			if id == "" {
				id = clientIP(r)
			}

			ok, remaining, retryAfter, err := lim.Allow(r.Context(), id)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", max))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			if !ok {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":       "too many requests",
					"retry_after": int(retryAfter.Seconds()),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DepthReader is the queue-length slice of redisx.Queue.
type DepthReader interface {
	Length(ctx context.Context, name string) (int64, error)
}

// QueueLimit rejects new buys once either pipeline queue is saturated,
// signaling backpressure before work piles up behind the workers.
func QueueLimit(q DepthReader, maxDepth int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range []string{redisx.QueueOrders, redisx.QueuePayments} {
				n, err := q.Length(r.Context(), name)
				if err != nil {
					continue // advisory gate, correctness lives elsewhere
				}
				if n >= maxDepth {
					w.Header().Set("Retry-After", "5")
					writeJSON(w, http.StatusServiceUnavailable, map[string]string{
						"error": "service is busy, please try again later",
					})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

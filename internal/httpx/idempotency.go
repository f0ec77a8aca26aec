package httpx

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
)

// IdemStore is the slice of redisx.IdemStore the guard needs.
type IdemStore interface {
	Begin(ctx context.Context, fp string) (claimed bool, prev *redisx.IdemRecord, err error)
	Finish(ctx context.Context, fp string, status int, body []byte) error
	Clear(ctx context.Context, fp string) error
}

// Idempotency deduplicates retried requests by a fingerprint of caller,
// method, path and canonicalized body. Resolved records replay the stored
// response; a still-pending fingerprint answers 409 instead of running
// the handler twice. Successful responses release the fingerprint so a
// legitimately new identical request can run later; failures are retained
// for the TTL so retries see the same outcome without new side effects.
func Idempotency(store IdemStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fp, err := Fingerprint(CallerID(r.Context()), r.Method, r.URL.Path, body)
			if err != nil {
				// not canonicalizable (not JSON): let the handler reject it
				next.ServeHTTP(w, r)
				return
			}

			claimed, prev, err := store.Begin(r.Context(), fp)
			if err != nil {
				// guard unavailable: the pipeline's own idempotency on order
				// id still holds, so let the request through
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				if prev.Pending {
					writeJSON(w, http.StatusConflict, map[string]string{"error": "request already in flight"})
					return
				}
				w.Header().Set("X-Idempotent-Replay", "true")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(prev.Status)
				_, _ = w.Write(prev.Body)
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}

			// the pending record must never outlive the handler, whatever
			// the exit path
			done := false
			defer func() {
				if !done {
					_ = store.Clear(context.WithoutCancel(r.Context()), fp)
				}
			}()

			next.ServeHTTP(rec, r)

			// the request context dies with the client connection; the
			// record write must survive a disconnect or the pending claim
			// blocks retries for its whole TTL
			cctx := context.WithoutCancel(r.Context())
			if rec.status >= 200 && rec.status < 300 {
				_ = store.Clear(cctx, fp)
			} else {
				_ = store.Finish(cctx, fp, rec.status, rec.body.Bytes())
			}
			done = true
		})
	}
}

// Fingerprint hashes identity, method, path and the canonical body. Key
// order in the JSON body does not affect the result.
func Fingerprint(identity, method, path string, body []byte) (string, error) {
	canon, err := canonicalJSON(body)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(identity))
	h.Write([]byte{0})
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON re-encodes the body with object keys recursively sorted.
func canonicalJSON(body []byte) ([]byte, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// recorder captures status and body so the guard can store or replay the
// handler's response.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
	wrote  bool
}

func (r *recorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wrote = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

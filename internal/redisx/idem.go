package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdemRecord is the cached outcome of a fingerprinted request. Pending
// records hold no response yet; resolved records replay Status/Body.
type IdemRecord struct {
	Pending   bool            `json:"pending,omitempty"`
	Status    int             `json:"status,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// IdemStore guards retried requests. The pending->resolved transition is
// anchored on SET NX so two identical concurrent requests cannot both
// claim the fingerprint.
type IdemStore struct {
	R   *redis.Client
	TTL time.Duration
}

func idemKey(fp string) string { return fmt.Sprintf(KeyIdem, fp) }

// Begin claims the fingerprint. claimed=true means the caller owns the
// execution; otherwise prev holds whatever the winner stored so far.
func (s *IdemStore) Begin(ctx context.Context, fp string) (claimed bool, prev *IdemRecord, err error) {
	rec := IdemRecord{Pending: true, Timestamp: time.Now().UTC()}
	b, _ := json.Marshal(rec)

	ok, err := s.R.SetNX(ctx, idemKey(fp), b, s.TTL).Result()
	if err != nil {
		return false, nil, err
	}
	if ok {
		return true, nil, nil
	}

	prev, err = s.Get(ctx, fp)
	if err != nil {
		return false, nil, err
	}
	if prev == nil {
		// winner's record expired or was cleared between SETNX and GET;
		// treat as still in flight so the client retries
		return false, &IdemRecord{Pending: true}, nil
	}
	return false, prev, nil
}

func (s *IdemStore) Get(ctx context.Context, fp string) (*IdemRecord, error) {
	raw, err := s.R.Get(ctx, idemKey(fp)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec IdemRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Finish stores the final response so retries within the TTL replay it.
func (s *IdemStore) Finish(ctx context.Context, fp string, status int, body []byte) error {
	rec := IdemRecord{Status: status, Body: body, Timestamp: time.Now().UTC()}
	b, _ := json.Marshal(rec)
	return s.R.Set(ctx, idemKey(fp), b, s.TTL).Err()
}

// Clear drops the record, releasing the fingerprint for future requests.
func (s *IdemStore) Clear(ctx context.Context, fp string) error {
	return s.R.Del(ctx, idemKey(fp)).Err()
}

package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
)

type RedisStore struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration, prefix string) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "turnly:"
	}
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (s *RedisStore) draftKey(id string) string   { return s.prefix + "draft:" + id }
func (s *RedisStore) receiptKey(id string) string { return s.prefix + "receipt:" + id }

func (s *RedisStore) Get(ctx context.Context, id string) (Draft, error) {
	var d Draft
	if err := s.get(ctx, s.draftKey(id), &d, apperr.ErrDraftNotFound); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (s *RedisStore) Save(ctx context.Context, d Draft) error {
	return s.set(ctx, s.draftKey(d.ID), d)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.draftKey(id)).Err(); err != nil {
		return apperr.Transient("could not update your booking session, please try again", err)
	}
	return nil
}

func (s *RedisStore) SaveReceipt(ctx context.Context, id string, r Receipt) error {
	return s.set(ctx, s.receiptKey(id), r)
}

func (s *RedisStore) Receipt(ctx context.Context, id string) (Receipt, error) {
	var r Receipt
	if err := s.get(ctx, s.receiptKey(id), &r, ErrReceiptNotFound); err != nil {
		return Receipt{}, err
	}
	return r, nil
}

func (s *RedisStore) get(ctx context.Context, key string, dst any, missing *apperr.Error) error {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return missing
	}
	if err != nil {
		return apperr.Transient("could not load your booking session, please try again", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// unreadable sessions are treated as expired
		return missing.WithError(fmt.Errorf("decode %s: %w", key, err))
	}
	return nil
}

func (s *RedisStore) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return apperr.Transient("could not save your booking session, please try again", err)
	}
	return nil
}

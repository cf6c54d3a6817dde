package draft

import (
	"context"
	"sync"
	"time"

	"github.com/turnly/turnly/services/booking-service/internal/apperr"
)

const DefaultTTL = 2 * time.Hour

var ErrReceiptNotFound = apperr.NotFound("receipt_not_found", "there is no recent booking to show")

// Store keeps drafts and receipts for one TTL after their last save.
type Store interface {
	Get(ctx context.Context, id string) (Draft, error)
	Save(ctx context.Context, d Draft) error
	Delete(ctx context.Context, id string) error
	SaveReceipt(ctx context.Context, id string, r Receipt) error
	Receipt(ctx context.Context, id string) (Receipt, error)
}

type entry[T any] struct {
	value   T
	expires time.Time
}

type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	drafts   map[string]entry[Draft]
	receipts map[string]entry[Receipt]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		drafts:   map[string]entry[Draft]{},
		receipts: map[string]entry[Receipt]{},
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.drafts[id]
	if !ok || !s.now().Before(e.expires) {
		delete(s.drafts, id)
		return Draft{}, apperr.ErrDraftNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Save(_ context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.drafts[d.ID] = entry[Draft]{value: d, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

func (s *MemoryStore) SaveReceipt(_ context.Context, id string, r Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[id] = entry[Receipt]{value: r, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Receipt(_ context.Context, id string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.receipts[id]
	if !ok || !s.now().Before(e.expires) {
		delete(s.receipts, id)
		return Receipt{}, ErrReceiptNotFound
	}
	return e.value, nil
}

// sweep drops expired entries; callers hold mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for id, e := range s.drafts {
		if !now.Before(e.expires) {
			delete(s.drafts, id)
		}
	}
	for id, e := range s.receipts {
		if !now.Before(e.expires) {
			delete(s.receipts, id)
		}
	}
}

// Package memory provides in-process repositories used when STORAGE_BACKEND
// is "memory" and by end-to-end tests. Records are held BSON-encoded so that
// callers never share memory with the store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
)

// Store is a generic ports.Repository over an entity type.
type Store[T any, P domain.EntityPtr[T]] struct {
	mu     sync.RWMutex
	docs   map[int64][]byte
	nextID int64
	now    func() time.Time
}

func NewStore[T any, P domain.EntityPtr[T]]() *Store[T, P] {
	return &Store[T, P]{docs: make(map[int64][]byte), now: time.Now}
}

func (s *Store[T, P]) Create(_ context.Context, e *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p := P(e)
	p.SetEntityID(s.nextID)
	p.Touch(s.now().UTC())

	raw, err := bson.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	s.docs[s.nextID] = raw
	return nil
}

func (s *Store[T, P]) FindByID(_ context.Context, id int64) (*T, error) {
	s.mu.RLock()
	raw, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return decode[T](raw)
}

func (s *Store[T, P]) List(_ context.Context, filter ports.ListFilter) ([]*T, int64, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	ids := make([]int64, 0, len(s.docs))
	for id, raw := range s.docs {
		if filter.Scope == nil || inScope(raw, filter.Scope) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	total := int64(len(ids))
	start := min(filter.Offset(), len(ids))
	end := min(start+filter.Limit, len(ids))

	raws := make([][]byte, 0, end-start)
	for _, id := range ids[start:end] {
		raws = append(raws, s.docs[id])
	}
	s.mu.RUnlock()

	items := make([]*T, 0, len(raws))
	for _, raw := range raws {
		e, err := decode[T](raw)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}

func (s *Store[T, P]) Update(_ context.Context, e *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := P(e)
	if _, ok := s.docs[p.EntityID()]; !ok {
		return domain.ErrNotFound
	}
	p.Touch(s.now().UTC())

	raw, err := bson.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	s.docs[p.EntityID()] = raw
	return nil
}

func (s *Store[T, P]) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

// Len reports how many records are stored.
func (s *Store[T, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func inScope(raw []byte, scope *ports.OwnerScope) bool {
	v, ok := bson.Raw(raw).Lookup(scope.Field).AsInt64OK()
	if !ok {
		return false
	}
	return slices.Contains(scope.IDs, v)
}

func decode[T any](raw []byte) (*T, error) {
	e := new(T)
	if err := bson.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return e, nil
}

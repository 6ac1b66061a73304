package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
)

// UserStore is an in-process ports.UserRepository with a unique email index.
type UserStore struct {
	mu      sync.RWMutex
	users   map[int64]domain.User
	byEmail map[string]int64
	nextID  int64
	now     func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[int64]domain.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return domain.ErrUserExists
	}
	s.nextID++
	now := s.now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = *user
	s.byEmail[email] = user.ID
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *UserStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) List(_ context.Context, filter ports.ListFilter) ([]*domain.User, int64, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		if filter.Scope == nil || slices.Contains(filter.Scope.IDs, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	start := min(filter.Offset(), len(ids))
	end := min(start+filter.Limit, len(ids))
	out := make([]*domain.User, 0, end-start)
	for _, id := range ids[start:end] {
		u := s.users[id]
		out = append(out, &u)
	}
	return out, int64(len(ids)), nil
}

func (s *UserStore) UpdateRole(_ context.Context, id int64, role domain.Role) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return &u, nil
}

func (s *UserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, strings.ToLower(u.Email))
	return nil
}

package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/core/ports"
	"github.com/pawhaus/boarding-api/internal/infrastructure/cache"
)

// CacheTTLs are the lifetimes of cached list pages and single records.
type CacheTTLs struct {
	List time.Duration
	Item time.Duration
}

// FamilyRules describes how one resource family is owned, checked and
// announced. A family without OwnerOf is not personal: permission alone
// gates it.
type FamilyRules[T any] struct {
	// Family is the cache prefix, the entity type and the channel name.
	Family string
	// Singular prefixes owner notification types, e.g. "pet" -> "pet_created".
	Singular string
	// OwnerField is the stored field matched by the default list scope.
	OwnerField string

	OwnerOf func(ctx context.Context, e *T) (int64, error)
	// Scope overrides the default OwnerField == actor scope for lists.
	Scope func(ctx context.Context, actor domain.Identity) (*ports.OwnerScope, error)
	// Claim stamps the actor as owner when a user writes.
	Claim    func(e *T, actor domain.Identity)
	Validate func(ctx context.Context, e *T) error
	// Summary is the data of the owner notification. Defaults to the record.
	Summary func(e *T) any
	// Related families whose cached reads embed this family's data.
	Related []string
}

// ResourceService runs the read and write pipeline for one family:
// authorize, claim, validate, write, invalidate, then notify.
type ResourceService[T any, P domain.EntityPtr[T]] struct {
	rules    FamilyRules[T]
	repo     ports.Repository[T]
	cache    *cache.Service
	notifier ports.Notifier
	ttl      CacheTTLs
	log      zerolog.Logger
}

var _ ports.ResourceService[domain.Pet] = (*ResourceService[domain.Pet, *domain.Pet])(nil)

func NewResourceService[T any, P domain.EntityPtr[T]](
	rules FamilyRules[T],
	repo ports.Repository[T],
	c *cache.Service,
	n ports.Notifier,
	ttl CacheTTLs,
	log zerolog.Logger,
) *ResourceService[T, P] {
	if n == nil {
		n = NopNotifier{}
	}
	return &ResourceService[T, P]{
		rules:    rules,
		repo:     repo,
		cache:    c,
		notifier: n,
		ttl:      ttl,
		log:      log.With().Str("family", rules.Family).Logger(),
	}
}

func (s *ResourceService[T, P]) List(ctx context.Context, actor domain.Identity, filter ports.ListFilter) (*ports.Page[T], error) {
	filter = filter.Normalize()
	filter.Scope = nil
	visibility := "all"

	if s.personal() && !actor.IsStaff() {
		scope, err := s.scope(ctx, actor)
		if err != nil {
			return nil, err
		}
		filter.Scope = scope
		visibility = "owner:" + strconv.FormatInt(actor.ID, 10)
	}

	key := cache.GenerateKey(s.rules.Family+":all", map[string]any{
		"scope": visibility,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
	page, err := cache.Read(ctx, s.cache, key, s.ttl.List, func(ctx context.Context) (ports.Page[T], error) {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return ports.Page[T]{}, err
		}
		out := make([]T, 0, len(items))
		for _, it := range items {
			out = append(out, *it)
		}
		return ports.Page[T]{Items: out, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *ResourceService[T, P]) Get(ctx context.Context, actor domain.Identity, id int64) (*T, error) {
	key := cache.GenerateKey(s.rules.Family+":by_id", map[string]any{"id": id})
	e, err := cache.Read(ctx, s.cache, key, s.ttl.Item, func(ctx context.Context) (T, error) {
		found, err := s.repo.FindByID(ctx, id)
		if err != nil {
			var zero T
			return zero, err
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *ResourceService[T, P]) Create(ctx context.Context, actor domain.Identity, e *T) (*T, error) {
	P(e).SetEntityID(0)
	s.claim(e, actor)
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, e); err != nil {
		return nil, err
	}

	if err := s.invalidating(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, e)
	}); err != nil {
		return nil, err
	}

	s.announce(ctx, domain.ActionCreated, e, e)
	return e, nil
}

func (s *ResourceService[T, P]) Update(ctx context.Context, actor domain.Identity, id int64, mutate func(*T) error) (*T, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, e); err != nil {
		return nil, err
	}

	if err := mutate(e); err != nil {
		return nil, err
	}
	P(e).SetEntityID(id)
	s.claim(e, actor)
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	// A user may not move a record out of their own reach.
	if err := s.authorize(ctx, actor, e); err != nil {
		return nil, err
	}

	if err := s.invalidating(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, e)
	}); err != nil {
		return nil, err
	}

	s.announce(ctx, domain.ActionUpdated, e, e)
	return e, nil
}

func (s *ResourceService[T, P]) Delete(ctx context.Context, actor domain.Identity, id int64) error {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, e); err != nil {
		return err
	}

	if err := s.invalidating(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	}); err != nil {
		return err
	}

	s.announce(ctx, domain.ActionDeleted, e, map[string]any{"id": id})
	return nil
}

func (s *ResourceService[T, P]) personal() bool { return s.rules.OwnerOf != nil }

func (s *ResourceService[T, P]) scope(ctx context.Context, actor domain.Identity) (*ports.OwnerScope, error) {
	if s.rules.Scope != nil {
		return s.rules.Scope(ctx, actor)
	}
	return &ports.OwnerScope{Field: s.rules.OwnerField, IDs: []int64{actor.ID}}, nil
}

func (s *ResourceService[T, P]) claim(e *T, actor domain.Identity) {
	if s.rules.Claim != nil && !actor.IsStaff() {
		s.rules.Claim(e, actor)
	}
}

func (s *ResourceService[T, P]) validate(ctx context.Context, e *T) error {
	if s.rules.Validate == nil {
		return nil
	}
	return s.rules.Validate(ctx, e)
}

// authorize hides records the actor does not own behind ErrNotFound.
func (s *ResourceService[T, P]) authorize(ctx context.Context, actor domain.Identity, e *T) error {
	if !s.personal() || actor.IsStaff() {
		return nil
	}
	owner, err := s.rules.OwnerOf(ctx, e)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if !domain.CanAccessOwnedResource(actor, owner) {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ResourceService[T, P]) invalidating(ctx context.Context, write func(context.Context) error) error {
	if err := cache.Invalidate(ctx, s.cache, s.rules.Family, write); err != nil {
		return err
	}
	for _, family := range s.rules.Related {
		s.cache.InvalidateFamily(ctx, family)
	}
	return nil
}

// announce publishes after a committed write. Notification faults are logged
// and never reach the caller.
func (s *ResourceService[T, P]) announce(ctx context.Context, action domain.Action, e *T, payload any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("action", string(action)).Msg("notification failed")
		}
	}()

	s.notifier.NotifyEntityChange(ctx, s.rules.Family, action, payload)

	if !s.personal() {
		return
	}
	owner, err := s.rules.OwnerOf(ctx, e)
	if err != nil || owner <= 0 {
		s.log.Debug().Err(err).Int64("id", P(e).EntityID()).Msg("owner not resolved, skipping owner notification")
		return
	}
	var data any = e
	if s.rules.Summary != nil {
		data = s.rules.Summary(e)
	}
	s.notifier.NotifyIdentity(ctx, owner, s.rules.Singular+"_"+string(action), data)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) NotifyEntityChange(context.Context, string, domain.Action, any) {}
func (NopNotifier) NotifyIdentity(context.Context, int64, string, any) {}
func (NopNotifier) NotifySystem(context.Context, string, string) {}

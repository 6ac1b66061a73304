package ports

import (
	"context"

	"github.com/pawhaus/boarding-api/internal/core/domain"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// OwnerScope restricts a list to records whose Field is one of IDs.
// An empty IDs slice matches nothing.
type OwnerScope struct {
	Field string
	IDs   []int64
}

// ListFilter carries the query parameters for listing a resource family.
type ListFilter struct {
	Scope *OwnerScope // nil = unfiltered (staff)
	Page  int         // 1-based
	Limit int         // capped at MaxPageLimit
}

// Normalize applies paging defaults and caps.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// Offset is the number of records skipped before the page starts.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Page is a homogeneous list result plus paging metadata. It is the unit that
// list reads cache.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Repository is the storage collaborator for one entity family. Missing
// records are reported as domain.ErrNotFound.
type Repository[T any] interface {
	Create(ctx context.Context, e *T) error
	FindByID(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, filter ListFilter) ([]*T, int64, error)
	Update(ctx context.Context, e *T) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository persists accounts. Email is unique.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.User, int64, error)
	UpdateRole(ctx context.Context, id int64, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}
